package v1

import (
	"net/http"

	"career-gap-web/internal/delivery/http/middleware"
	"career-gap-web/internal/delivery/http/response"
	"career-gap-web/internal/domain"

	"github.com/gin-gonic/gin"
)

// SectionHandler serves one profile list section. The same handler backs
// education, work experience, projects, certifications and skills.
type SectionHandler[T any] struct {
	uc domain.SectionUsecase[T]
}

// RegisterSection mounts the CRUD routes of a section under /<name>.
func RegisterSection[T any](r *gin.RouterGroup, uc domain.SectionUsecase[T]) {
	handler := &SectionHandler[T]{uc: uc}

	g := r.Group("/" + uc.Name())
	{
		g.GET("", handler.List)
		g.POST("", handler.Create)
		g.PUT("/:id", handler.Update)
		g.PATCH("/:id", handler.Update)
		g.DELETE("/:id", handler.Delete)
	}
}

func (h *SectionHandler[T]) List(c *gin.Context) {
	items, err := h.uc.List(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Items retrieved", items)
}

func (h *SectionHandler[T]) Create(c *gin.Context) {
	var item T
	if err := bindJSON(c, &item); err != nil {
		c.Error(err)
		return
	}
	created, err := h.uc.Create(c.Request.Context(), middleware.SessionFrom(c), &item)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Item created", created)
}

func (h *SectionHandler[T]) Update(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		c.Error(err)
		return
	}
	var item T
	if err := bindJSON(c, &item); err != nil {
		c.Error(err)
		return
	}
	updated, err := h.uc.Update(c.Request.Context(), middleware.SessionFrom(c), id, &item)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Item updated", updated)
}

func (h *SectionHandler[T]) Delete(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		c.Error(err)
		return
	}
	if err := h.uc.Delete(c.Request.Context(), middleware.SessionFrom(c), id); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Item deleted", nil)
}
