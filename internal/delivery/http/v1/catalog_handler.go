package v1

import (
	"net/http"

	"career-gap-web/internal/delivery/http/middleware"
	"career-gap-web/internal/delivery/http/response"
	"career-gap-web/internal/domain"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogUC domain.CatalogUsecase
}

func NewCatalogHandler(r *gin.RouterGroup, catalogUC domain.CatalogUsecase) {
	handler := &CatalogHandler{catalogUC: catalogUC}

	r.GET("/skill-catalog", handler.Skills)
	roadmap := r.Group("/roadmap")
	{
		roadmap.GET("", handler.Roadmap)
		roadmap.POST("/:id/complete", handler.CompleteWeek)
	}
}

// Skills godoc
// @Summary      Skill catalog
// @Description  Skills that can be attached to the profile
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  response.Response{data=[]domain.Skill}
// @Router       /skill-catalog [get]
// @Security     BearerAuth
func (h *CatalogHandler) Skills(c *gin.Context) {
	skills, err := h.catalogUC.ListSkills(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Skills retrieved", skills)
}

// Roadmap godoc
// @Summary      Learning roadmap
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  response.Response{data=[]domain.RoadmapWeek}
// @Router       /roadmap [get]
// @Security     BearerAuth
func (h *CatalogHandler) Roadmap(c *gin.Context) {
	weeks, err := h.catalogUC.Roadmap(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Roadmap retrieved", weeks)
}

// CompleteWeek godoc
// @Summary      Mark a roadmap week complete
// @Tags         catalog
// @Produce      json
// @Param        id   path      int  true  "Week ID"
// @Success      200  {object}  response.Response{data=domain.RoadmapWeek}
// @Router       /roadmap/{id}/complete [post]
// @Security     BearerAuth
func (h *CatalogHandler) CompleteWeek(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		c.Error(err)
		return
	}
	week, err := h.catalogUC.CompleteRoadmapWeek(c.Request.Context(), middleware.SessionFrom(c), id)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Week completed", week)
}
