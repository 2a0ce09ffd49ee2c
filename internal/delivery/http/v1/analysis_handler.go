package v1

import (
	"io"
	"net/http"
	"time"

	"career-gap-web/internal/delivery/http/middleware"
	"career-gap-web/internal/delivery/http/response"
	"career-gap-web/internal/domain"

	"github.com/gin-gonic/gin"
)

const sseKeepAlive = 15 * time.Second

// ProgressView is a progress snapshot plus the status of every step, which is
// what the progress screen renders.
type ProgressView struct {
	domain.ProgressState
	Steps []domain.StepView `json:"steps"`
}

func newProgressView(s domain.ProgressState) ProgressView {
	return ProgressView{ProgressState: s, Steps: s.Steps()}
}

type AnalysisHandler struct {
	analysisUC domain.AnalysisUsecase
}

func NewAnalysisHandler(r *gin.RouterGroup, analysisUC domain.AnalysisUsecase, startLimit gin.HandlerFunc) {
	handler := &AnalysisHandler{analysisUC: analysisUC}

	analysis := r.Group("/analysis")
	{
		analysis.POST("", startLimit, handler.Start)
		analysis.GET("", handler.State)
		analysis.DELETE("", handler.Cancel)
		analysis.GET("/events", handler.Events)
		analysis.GET("/result", handler.Result)
		analysis.POST("/sync", startLimit, handler.AnalyzeSync)
	}
}

// Start godoc
// @Summary      Start a dream job analysis
// @Description  Starts streaming analysis for the session. A running analysis is cancelled first.
// @Tags         analysis
// @Accept       json
// @Produce      json
// @Param        form  body      domain.DreamJobForm  true  "Target job"
// @Success      202   {object}  response.Response{data=ProgressView}
// @Failure      400   {object}  response.Response
// @Failure      502   {object}  response.Response
// @Router       /analysis [post]
// @Security     BearerAuth
func (h *AnalysisHandler) Start(c *gin.Context) {
	var form domain.DreamJobForm
	if err := bindJSON(c, &form); err != nil {
		c.Error(err)
		return
	}

	state, err := h.analysisUC.Start(c.Request.Context(), middleware.SessionFrom(c), &form)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusAccepted, "Analysis started", newProgressView(state))
}

// State godoc
// @Summary      Current analysis progress
// @Tags         analysis
// @Produce      json
// @Success      200  {object}  response.Response{data=ProgressView}
// @Router       /analysis [get]
// @Security     BearerAuth
func (h *AnalysisHandler) State(c *gin.Context) {
	state, _ := h.analysisUC.State(middleware.SessionFrom(c))
	response.Success(c, http.StatusOK, "Analysis progress", newProgressView(state))
}

// Cancel godoc
// @Summary      Cancel the running analysis
// @Description  Idempotent. Partial progress is kept.
// @Tags         analysis
// @Produce      json
// @Success      200  {object}  response.Response{data=ProgressView}
// @Router       /analysis [delete]
// @Security     BearerAuth
func (h *AnalysisHandler) Cancel(c *gin.Context) {
	state, err := h.analysisUC.Cancel(middleware.SessionFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Analysis cancelled", newProgressView(state))
}

// Events godoc
// @Summary      Analysis progress stream
// @Description  Server-sent "progress" events carrying snapshots until the analysis ends
// @Tags         analysis
// @Produce      text/event-stream
// @Success      200  {object}  ProgressView
// @Failure      404  {object}  response.Response
// @Router       /analysis/events [get]
// @Security     BearerAuth
func (h *AnalysisHandler) Events(c *gin.Context) {
	updates, unsubscribe, err := h.analysisUC.Subscribe(middleware.SessionFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case state, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("progress", newProgressView(state))
			return !state.Phase.Terminal()
		case <-ticker.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// Result godoc
// @Summary      Result of the completed analysis
// @Tags         analysis
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.AnalysisResult}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /analysis/result [get]
// @Security     BearerAuth
func (h *AnalysisHandler) Result(c *gin.Context) {
	result, err := h.analysisUC.Result(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Analysis result", result)
}

// AnalyzeSync godoc
// @Summary      Blocking dream job analysis
// @Description  Runs the analysis in one request without progress updates
// @Tags         analysis
// @Accept       json
// @Produce      json
// @Param        form  body      domain.DreamJobForm  true  "Target job"
// @Success      200   {object}  response.Response{data=domain.DreamJobAnalysis}
// @Failure      400   {object}  response.Response
// @Router       /analysis/sync [post]
// @Security     BearerAuth
func (h *AnalysisHandler) AnalyzeSync(c *gin.Context) {
	var form domain.DreamJobForm
	if err := bindJSON(c, &form); err != nil {
		c.Error(err)
		return
	}

	out, err := h.analysisUC.AnalyzeSync(c.Request.Context(), middleware.SessionFrom(c), &form)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Analysis complete", out)
}
