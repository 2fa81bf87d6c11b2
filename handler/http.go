package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"genstudio/dto"
	"genstudio/prompt"
	"genstudio/service"
)

// HTTP exposes the generation API. Identity arrives as a validated uuid in the
// X-User-ID header; session handling lives upstream of this service.
type HTTP struct {
	svc       service.Service
	enhancer  prompt.Enhancer
	uploadDir string
}

func NewHTTP(svc service.Service, enhancer prompt.Enhancer, uploadDir string) *HTTP {
	return &HTTP{
		svc:       svc,
		enhancer:  enhancer,
		uploadDir: uploadDir,
	}
}

// RequestLogger installs the service logger into every request context.
// Without it zerolog.Ctx on the HTTP path resolves to the disabled logger and
// handler and submission logs go nowhere.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

func (h *HTTP) Register(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/generate/image", h.generateImage)
	api.POST("/generate/video/text", h.generateVideo)
	api.POST("/generate/story", h.generateStory)
	api.POST("/prompt/enhance", h.enhance)
	api.GET("/suggest", h.suggest)
	api.GET("/gallery", h.gallery)
	api.GET("/jobs/:id", h.jobStatus)
}

func userID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetHeader("X-User-ID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "msg": "Unauthorized. No valid user id provided."})
		return uuid.Nil, false
	}
	return id, true
}

func (h *HTTP) generateImage(c *gin.Context) {
	userId, ok := userID(c)
	if !ok {
		return
	}

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "msg": "Invalid request body."})
		return
	}

	res, err := h.svc.SubmitImage(c.Request.Context(), userId, req.Prompt)
	if err != nil {
		h.submitError(c, err)
		return
	}

	consistency := "Random"
	if res.Locked() {
		consistency = "Locked"
	}
	c.JSON(http.StatusAccepted, gin.H{
		"success":   true,
		"msg":       "Generation started for '" + res.SubjectKey + "'. Consistency: " + consistency + ".",
		"contentId": res.JobId,
		"seed":      res.SeedHint,
	})
}

func (h *HTTP) generateVideo(c *gin.Context) {
	userId, ok := userID(c)
	if !ok {
		return
	}

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "msg": "Invalid request body."})
		return
	}

	res, err := h.svc.SubmitVideo(c.Request.Context(), userId, req.Prompt)
	if err != nil {
		h.submitError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success":   true,
		"msg":       "Video generation started. Check gallery soon.",
		"contentId": res.JobId,
	})
}

func (h *HTTP) generateStory(c *gin.Context) {
	userId, ok := userID(c)
	if !ok {
		return
	}

	file, err := c.FormFile("sourceFile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "msg": "No file uploaded."})
		return
	}

	inputPath := filepath.Join(h.uploadDir, uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, inputPath); err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to save uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "msg": "Failed to store uploaded file."})
		return
	}

	res, err := h.svc.SubmitStory(c.Request.Context(), userId, file.Filename, inputPath)
	if err != nil {
		// The job never reached a worker, so nothing else will delete the upload.
		if rmErr := os.Remove(inputPath); rmErr != nil {
			zerolog.Ctx(c.Request.Context()).Error().Err(rmErr).Msg("failed to delete rejected upload")
		}
		h.submitError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success":   true,
		"msg":       "Story video generation started. Check gallery soon.",
		"contentId": res.JobId,
	})
}

func (h *HTTP) submitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyPrompt), errors.Is(err, service.ErrNoSubject):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "msg": "Prompt is required and must contain a clear subject."})
	case errors.Is(err, service.ErrMissingFile):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "msg": "No file uploaded."})
	default:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to submit job")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "msg": "Failed to start generation."})
	}
}

func (h *HTTP) enhance(c *gin.Context) {
	if _, ok := userID(c); !ok {
		return
	}

	var req dto.EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OriginalPrompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "msg": "Prompt is missing."})
		return
	}

	enhanced, err := h.enhancer.Enhance(c.Request.Context(), req.OriginalPrompt)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("prompt enhancement failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "msg": "Failed to communicate with the AI assistant."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "enhancedPrompt": enhanced})
}

func (h *HTTP) suggest(c *gin.Context) {
	c.JSON(http.StatusOK, prompt.Suggestions())
}

func (h *HTTP) gallery(c *gin.Context) {
	userId, ok := userID(c)
	if !ok {
		return
	}

	jobs, err := h.svc.Gallery(c.Request.Context(), userId)
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to fetch gallery")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "msg": "Failed to retrieve gallery items."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "gallery": jobs})
}

func (h *HTTP) jobStatus(c *gin.Context) {
	userId, ok := userID(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "msg": "Invalid job id."})
		return
	}

	job, err := h.svc.Job(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "msg": "Job not found."})
			return
		}
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to fetch job")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "msg": "Failed to retrieve job."})
		return
	}
	if job.UserId != userId {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "msg": "Job not found."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "job": job})
}
