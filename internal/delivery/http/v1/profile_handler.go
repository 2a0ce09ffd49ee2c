package v1

import (
	"io"
	"net/http"

	"career-gap-web/internal/delivery/http/middleware"
	"career-gap-web/internal/delivery/http/response"
	"career-gap-web/internal/domain"
	"career-gap-web/pkg/apperror"

	"github.com/gin-gonic/gin"
)

const resumeField = "resume"

type ProfileHandler struct {
	profileUC      domain.ProfileUsecase
	maxResumeBytes int64
}

func NewProfileHandler(r *gin.RouterGroup, profileUC domain.ProfileUsecase, maxResumeBytes int64) {
	handler := &ProfileHandler{profileUC: profileUC, maxResumeBytes: maxResumeBytes}

	profile := r.Group("/profile")
	{
		profile.GET("", handler.Get)
		profile.PATCH("", handler.Update)
		profile.GET("/stats", handler.Stats)
	}
	r.POST("/onboarding/resume", handler.Onboard)
}

// Get godoc
// @Summary      Get profile
// @Description  Complete profile of the current user including every section
// @Tags         profile
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.UserProfile}
// @Failure      401  {object}  response.Response
// @Router       /profile [get]
// @Security     BearerAuth
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.profileUC.GetProfile(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Profile retrieved", profile)
}

// Update godoc
// @Summary      Update profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        profile  body      domain.UserProfile  true  "Profile fields"
// @Success      200      {object}  response.Response{data=domain.UserProfile}
// @Failure      400      {object}  response.Response
// @Router       /profile [patch]
// @Security     BearerAuth
func (h *ProfileHandler) Update(c *gin.Context) {
	var req domain.UserProfile
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	profile, err := h.profileUC.UpdateProfile(c.Request.Context(), middleware.SessionFrom(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Profile updated", profile)
}

// Stats godoc
// @Summary      Profile completeness
// @Tags         profile
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.ProfileStats}
// @Router       /profile/stats [get]
// @Security     BearerAuth
func (h *ProfileHandler) Stats(c *gin.Context) {
	stats, err := h.profileUC.GetStats(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Profile stats retrieved", stats)
}

// Onboard godoc
// @Summary      Onboard from resume
// @Description  Uploads a PDF or DOCX resume. The backend parses it and fills the profile.
// @Tags         profile
// @Accept       multipart/form-data
// @Produce      json
// @Param        resume  formData  file  true  "Resume (PDF or DOCX, max 10 MB)"
// @Success      201     {object}  response.Response{data=domain.OnboardingResult}
// @Failure      400     {object}  response.Response
// @Failure      413     {object}  response.Response
// @Router       /onboarding/resume [post]
// @Security     BearerAuth
func (h *ProfileHandler) Onboard(c *gin.Context) {
	// room for the multipart envelope around the file
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxResumeBytes+1<<20)

	fh, err := c.FormFile(resumeField)
	if err != nil {
		c.Error(apperror.BadRequest("Please attach a resume file"))
		return
	}
	if fh.Size > h.maxResumeBytes {
		c.Error(apperror.New(http.StatusRequestEntityTooLarge, "Resume file is too large", nil))
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.Error(apperror.BadRequest("Could not read the uploaded file"))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxResumeBytes+1))
	if err != nil {
		c.Error(apperror.BadRequest("Could not read the uploaded file"))
		return
	}

	result, err := h.profileUC.Onboard(c.Request.Context(), middleware.SessionFrom(c), fh.Filename, data)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Profile created from resume", result)
}
