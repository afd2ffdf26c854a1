package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace/internal/domain"
	"marketplace/internal/service"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Role     string `json:"role" binding:"required,role"`
}

type updateUserRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value" binding:"required"`
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func userToResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role.String(),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, req.Email, req.Role)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, userToResponse(*user))
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, userToResponse(mustActingUser(c)))
}

// updateMe lets users edit their own profile. Role changes are admin-only.
func (h *Handler) updateMe(c *gin.Context) {
	acting := mustActingUser(c)

	field, value, ok := h.bindUpdate(c)
	if !ok {
		return
	}
	if field == service.FieldRole {
		h.writeError(c, domain.Forbidden("only admins can change roles"))
		return
	}

	h.applyUpdate(c, acting.ID, field, value)
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := pathID(c, "user")
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) updateUser(c *gin.Context) {
	id, ok := pathID(c, "user")
	if !ok {
		return
	}

	field, value, ok := h.bindUpdate(c)
	if !ok {
		return
	}
	h.applyUpdate(c, id, field, value)
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := pathID(c, "user")
	if !ok {
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) bindUpdate(c *gin.Context) (service.UserField, string, bool) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return "", "", false
	}

	field, err := service.ParseUserField(req.Field)
	if err != nil {
		h.writeError(c, err)
		return "", "", false
	}
	return field, req.Value, true
}

func (h *Handler) applyUpdate(c *gin.Context, id int64, field service.UserField, value string) {
	if err := h.users.UpdateField(c.Request.Context(), id, field, value); err != nil {
		h.writeError(c, err)
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}
