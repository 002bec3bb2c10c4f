package stories

import (
	"context"
	"errors"
	"log"
	"net/http"

	"storyforge-app/internal/domain/billing"
	"storyforge-app/internal/domain/stories"

	"github.com/gin-gonic/gin"
)

type Generator interface {
	Generate(ctx context.Context, userID uint, req stories.Request) (stories.Result, error)
}

type Handler struct {
	generator Generator
}

func NewHandler(generator Generator) *Handler {
	return &Handler{generator: generator}
}

// GET /scenarios
func (h *Handler) ListScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"scenarios": stories.Scenarios(),
		"default":   stories.DefaultScenario().ID,
	})
}

// POST /generate-story
func (h *Handler) GenerateStory(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req stories.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := h.generator.Generate(c.Request.Context(), userID, req)
	if err != nil {
		status, msg := errorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("❌ story generation failed for user %d: %v", userID, err)
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, res)
}

func errorStatus(err error) (int, string) {
	var serr *billing.StorageError
	switch {
	case errors.Is(err, stories.ErrMissingParams):
		return http.StatusBadRequest, "boss_name and story_title are required"
	case errors.Is(err, stories.ErrNoAccess):
		return http.StatusPaymentRequired, "An active subscription or credits are required"
	case errors.Is(err, stories.ErrNotConfigured):
		return http.StatusServiceUnavailable, "Story generation is not configured"
	case errors.As(err, &serr):
		return http.StatusInternalServerError, "Storage error"
	case errors.Is(err, stories.ErrMalformedCompletion):
		return http.StatusBadGateway, "The story service returned an empty story"
	default:
		return http.StatusBadGateway, "Failed to generate story"
	}
}
