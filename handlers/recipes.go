package handlers

import (
	"net/http"

	"annadan-api/apperr"
	"annadan-api/lifecycle"
	"annadan-api/middleware"
	"annadan-api/recipes"

	"github.com/gin-gonic/gin"
)

const defaultRecipeLimit = 10

func (h *Handler) GenerateRecipe(c *gin.Context) {
	var req recipes.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	recipe, saved, err := h.recipes.Generate(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Recipe generated successfully",
		"recipe":  recipe,
		"saved":   saved,
	})
}

// ListRecipes returns the caller's saved recipes newest-first
func (h *Handler) ListRecipes(c *gin.Context) {
	limit, offset := queryInt(c, "limit"), queryInt(c, "offset")
	if limit == 0 {
		limit = defaultRecipeLimit
	}
	items, err := h.store.ListRecipesByUser(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		h.respondError(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recipes":    items,
		"pagination": lifecycle.Pagination{Limit: limit, Offset: offset, HasMore: len(items) == limit},
	})
}
