package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace/internal/storage"
)

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}

func (h *Handler) exportsEnabled(c *gin.Context) bool {
	if h.exporter == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "catalog export is not configured"})
		return false
	}
	return true
}

func (h *Handler) createExport(c *gin.Context) {
	if !h.exportsEnabled(c) {
		return
	}

	res, err := h.exporter.Export(c.Request.Context(), mustActingUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) listExports(c *gin.Context) {
	if !h.exportsEnabled(c) {
		return
	}

	objects, err := h.exporter.ListExports(c.Request.Context(), mustActingUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}
