package v1

import (
	"net/http"

	"career-gap-web/internal/delivery/http/middleware"
	"career-gap-web/internal/delivery/http/response"
	"career-gap-web/internal/domain"
	"career-gap-web/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	historyUC domain.HistoryUsecase
}

func NewHistoryHandler(r *gin.RouterGroup, historyUC domain.HistoryUsecase) {
	handler := &HistoryHandler{historyUC: historyUC}

	analyses := r.Group("/analyses")
	{
		analyses.GET("", handler.List)
		analyses.GET("/stats", handler.Stats)
		analyses.GET("/:id", handler.Get)
		analyses.POST("/:id/chat", handler.Chat)
	}
}

// List godoc
// @Summary      Past analyses
// @Tags         history
// @Produce      json
// @Param        eligibility_level  query     string  false  "EXCELLENT, GOOD, FAIR or POOR"
// @Success      200                {object}  response.Response{data=[]domain.AnalysisSummary}
// @Router       /analyses [get]
// @Security     BearerAuth
func (h *HistoryHandler) List(c *gin.Context) {
	var filter domain.AnalysisFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(apperror.BadRequest("Invalid filter"))
		return
	}
	items, err := h.historyUC.List(c.Request.Context(), middleware.SessionFrom(c), filter)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Analyses retrieved", items)
}

// Stats godoc
// @Summary      Analysis statistics
// @Tags         history
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.AnalysisStats}
// @Router       /analyses/stats [get]
// @Security     BearerAuth
func (h *HistoryHandler) Stats(c *gin.Context) {
	stats, err := h.historyUC.Stats(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Analysis stats retrieved", stats)
}

// Get godoc
// @Summary      One past analysis
// @Tags         history
// @Produce      json
// @Param        id   path      int  true  "Analysis ID"
// @Success      200  {object}  response.Response{data=domain.AnalysisResult}
// @Failure      404  {object}  response.Response
// @Router       /analyses/{id} [get]
// @Security     BearerAuth
func (h *HistoryHandler) Get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		c.Error(err)
		return
	}
	result, err := h.historyUC.Get(c.Request.Context(), middleware.SessionFrom(c), id)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Analysis retrieved", result)
}

// Chat godoc
// @Summary      Ask about an analysis
// @Tags         history
// @Accept       json
// @Produce      json
// @Param        id       path      int                 true  "Analysis ID"
// @Param        message  body      domain.ChatRequest  true  "Question"
// @Success      200      {object}  response.Response{data=domain.ChatReply}
// @Router       /analyses/{id}/chat [post]
// @Security     BearerAuth
func (h *HistoryHandler) Chat(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		c.Error(err)
		return
	}
	var req domain.ChatRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	reply, err := h.historyUC.Chat(c.Request.Context(), middleware.SessionFrom(c), id, &req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Reply received", reply)
}
