package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/category"
	"github.com/gin-gonic/gin"
)

type CategoryReader interface {
	ListActive(ctx context.Context) ([]category.Category, error)
	GetByID(ctx context.Context, id string) (category.Category, error)
}

type CategoriesHandler struct {
	repo CategoryReader
}

func NewCategoriesHandler(repo CategoryReader) *CategoriesHandler {
	return &CategoriesHandler{repo: repo}
}

// GET /categories
func (h *CategoriesHandler) List(ctx *gin.Context) {
	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	items, err := h.repo.ListActive(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list categories")
		return
	}
	if items == nil {
		items = []category.Category{}
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"items": items})
}
