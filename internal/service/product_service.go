package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
	"marketplace/internal/event"
	"marketplace/internal/repository"
)

// ProductInput carries the caller-supplied fields of a new product.
type ProductInput struct {
	Name        string
	Description string
	Price       int64
	Quantity    int
}

// SellerListing pairs a product with its seller's contact details.
// SellerFound is false when the seller account has been deleted.
type SellerListing struct {
	Product        domain.Product
	SellerUsername string
	SellerEmail    string
	SellerFound    bool
}

// UserLookup resolves user ids for admin listings.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}

// ProductService describes catalog operations. Mutations are restricted to
// the product's seller, checked against the stored record.
type ProductService interface {
	CreateProduct(ctx context.Context, input ProductInput, acting domain.User) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	// UpdateProduct writes name, description, price and quantity of the
	// product with updated.ID. updated.SellerID is ignored.
	UpdateProduct(ctx context.Context, updated domain.Product, acting domain.User) error
	UpdateQuantity(ctx context.Context, id int64, quantity int, acting domain.User) error
	DeleteProduct(ctx context.Context, id int64, acting domain.User) error
	ListAllProducts(ctx context.Context) ([]domain.Product, error)
	ListSellerProducts(ctx context.Context, seller domain.User) ([]domain.Product, error)
	SearchProducts(ctx context.Context, keyword string) ([]domain.Product, error)
	ListProductsWithSellers(ctx context.Context, acting domain.User) ([]SellerListing, error)
}

type productService struct {
	products repository.ProductRepository
	users    UserLookup
	events   event.Publisher
	log      logrus.FieldLogger
}

func NewProductService(products repository.ProductRepository, users UserLookup, events event.Publisher, log logrus.FieldLogger) ProductService {
	if events == nil {
		events = event.NopPublisher{}
	}
	return &productService{
		products: products,
		users:    users,
		events:   events,
		log:      log,
	}
}

func (s *productService) CreateProduct(ctx context.Context, input ProductInput, acting domain.User) (*domain.Product, error) {
	if !acting.Persisted() || !acting.Role.CanSell() {
		return nil, domain.Forbidden("only sellers can create products")
	}

	product, err := domain.NewProduct(input.Name, input.Description, input.Price, input.Quantity, acting.ID)
	if err != nil {
		return nil, err
	}

	created, err := s.products.Insert(ctx, product)
	if err != nil {
		return nil, domain.Storage("create product", err)
	}

	s.publish(ctx, event.ProductCreated, created)
	s.log.WithFields(logrus.Fields{
		"product_id": created.ID,
		"seller_id":  created.SellerID,
	}).Info("product created")
	return created, nil
}

func (s *productService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.find(ctx, id)
}

func (s *productService) UpdateProduct(ctx context.Context, updated domain.Product, acting domain.User) error {
	existing, err := s.owned(ctx, updated.ID, acting, "update")
	if err != nil {
		return err
	}

	next := *existing
	next.Name = updated.Name
	next.Description = updated.Description
	next.Price = updated.Price
	next.Quantity = updated.Quantity
	if err := next.Validate(); err != nil {
		return err
	}

	return s.save(ctx, &next)
}

func (s *productService) UpdateQuantity(ctx context.Context, id int64, quantity int, acting domain.User) error {
	existing, err := s.owned(ctx, id, acting, "update")
	if err != nil {
		return err
	}

	next := *existing
	next.Quantity = quantity
	if err := next.Validate(); err != nil {
		return err
	}

	return s.save(ctx, &next)
}

func (s *productService) DeleteProduct(ctx context.Context, id int64, acting domain.User) error {
	existing, err := s.owned(ctx, id, acting, "delete")
	if err != nil {
		return err
	}

	ok, err := s.products.Delete(ctx, id)
	if err != nil {
		return domain.Storage("delete product", err)
	}
	if !ok {
		return domain.NotFound("product", id)
	}

	s.publish(ctx, event.ProductDeleted, existing)
	s.log.WithFields(logrus.Fields{
		"product_id": id,
		"seller_id":  acting.ID,
	}).Info("product deleted")
	return nil
}

func (s *productService) ListAllProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, domain.Storage("list products", err)
	}
	return products, nil
}

func (s *productService) ListSellerProducts(ctx context.Context, seller domain.User) ([]domain.Product, error) {
	products, err := s.products.ListBySeller(ctx, seller.ID)
	if err != nil {
		return nil, domain.Storage("list seller products", err)
	}
	return products, nil
}

func (s *productService) SearchProducts(ctx context.Context, keyword string) ([]domain.Product, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, domain.Validation("search keyword cannot be empty")
	}

	products, err := s.products.Search(ctx, keyword)
	if err != nil {
		return nil, domain.Storage("search products", err)
	}
	return products, nil
}

func (s *productService) ListProductsWithSellers(ctx context.Context, acting domain.User) ([]SellerListing, error) {
	if !acting.Role.CanAdminister() {
		return nil, domain.Forbidden("only admins can view all products with sellers")
	}

	products, err := s.ListAllProducts(ctx)
	if err != nil {
		return nil, err
	}

	// lookups are shared within this call only
	sellers := make(map[int64]*domain.User)
	listings := make([]SellerListing, 0, len(products))
	for _, p := range products {
		seller, seen := sellers[p.SellerID]
		if !seen {
			seller, err = s.users.GetUser(ctx, p.SellerID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			sellers[p.SellerID] = seller
		}

		listing := SellerListing{Product: p}
		if seller != nil {
			listing.SellerUsername = seller.Username
			listing.SellerEmail = seller.Email
			listing.SellerFound = true
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

func (s *productService) find(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("product", id)
		}
		return nil, domain.Storage("find product", err)
	}
	return product, nil
}

// owned re-reads the product and checks that acting is its seller.
func (s *productService) owned(ctx context.Context, id int64, acting domain.User, action string) (*domain.Product, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !acting.Persisted() || !product.OwnedBy(acting.ID) {
		return nil, domain.Forbidden("you can only %s your own products", action)
	}
	return product, nil
}

func (s *productService) save(ctx context.Context, product *domain.Product) error {
	ok, err := s.products.Update(ctx, product)
	if err != nil {
		return domain.Storage("update product", err)
	}
	if !ok {
		return domain.NotFound("product", product.ID)
	}

	s.publish(ctx, event.ProductUpdated, product)
	s.log.WithFields(logrus.Fields{
		"product_id": product.ID,
		"seller_id":  product.SellerID,
	}).Info("product updated")
	return nil
}

func (s *productService) publish(ctx context.Context, eventType string, p *domain.Product) {
	e, err := event.New(eventType, event.AggregateProduct, p.ID, event.ProductData{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
		SellerID:    p.SellerID,
	})
	if err == nil {
		err = s.events.Publish(ctx, e)
	}
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event":      eventType,
			"product_id": p.ID,
		}).Warn("publish product event")
	}
}
