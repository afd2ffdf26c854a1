package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace/internal/domain"
	"marketplace/internal/service"
)

// productRequest carries prices as decimal strings such as "9.99".
type productRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Price       string `json:"price" binding:"required"`
	Quantity    *int   `json:"quantity" binding:"required,min=0"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

type ProductResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
	SellerID    int64  `json:"seller_id"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type SellerListingResponse struct {
	ProductResponse
	SellerUsername string `json:"seller_username,omitempty"`
	SellerEmail    string `json:"seller_email,omitempty"`
	SellerFound    bool   `json:"seller_found"`
}

func productToResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       domain.FormatPrice(p.Price),
		Quantity:    p.Quantity,
		SellerID:    p.SellerID,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}

func productsToResponse(products []domain.Product) []ProductResponse {
	resp := make([]ProductResponse, len(products))
	for i := range products {
		resp[i] = productToResponse(products[i])
	}
	return resp
}

func (h *Handler) bindProduct(c *gin.Context) (service.ProductInput, bool) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return service.ProductInput{}, false
	}

	price, err := domain.ParsePrice(req.Price)
	if err != nil {
		h.writeError(c, err)
		return service.ProductInput{}, false
	}

	return service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Quantity:    *req.Quantity,
	}, true
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.products.ListAllProducts(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, productsToResponse(products))
}

func (h *Handler) searchProducts(c *gin.Context) {
	products, err := h.products.SearchProducts(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, productsToResponse(products))
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c, "product")
	if !ok {
		return
	}

	product, err := h.products.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, productToResponse(*product))
}

func (h *Handler) myProducts(c *gin.Context) {
	products, err := h.products.ListSellerProducts(c.Request.Context(), mustActingUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, productsToResponse(products))
}

func (h *Handler) createProduct(c *gin.Context) {
	in, ok := h.bindProduct(c)
	if !ok {
		return
	}

	product, err := h.products.CreateProduct(c.Request.Context(), in, mustActingUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, productToResponse(*product))
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "product")
	if !ok {
		return
	}
	in, ok := h.bindProduct(c)
	if !ok {
		return
	}

	err := h.products.UpdateProduct(c.Request.Context(), domain.Product{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Quantity:    in.Quantity,
	}, mustActingUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.respondProduct(c, id)
}

func (h *Handler) updateQuantity(c *gin.Context) {
	id, ok := pathID(c, "product")
	if !ok {
		return
	}
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}

	if err := h.products.UpdateQuantity(c.Request.Context(), id, *req.Quantity, mustActingUser(c)); err != nil {
		h.writeError(c, err)
		return
	}
	h.respondProduct(c, id)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "product")
	if !ok {
		return
	}

	if err := h.products.DeleteProduct(c.Request.Context(), id, mustActingUser(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listProductsWithSellers(c *gin.Context) {
	listings, err := h.products.ListProductsWithSellers(c.Request.Context(), mustActingUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]SellerListingResponse, len(listings))
	for i, l := range listings {
		resp[i] = SellerListingResponse{
			ProductResponse: productToResponse(l.Product),
			SellerUsername:  l.SellerUsername,
			SellerEmail:     l.SellerEmail,
			SellerFound:     l.SellerFound,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) respondProduct(c *gin.Context, id int64) {
	product, err := h.products.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, productToResponse(*product))
}
