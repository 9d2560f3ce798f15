package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "community-overlap/internal/errors"
	"community-overlap/internal/storage"
)

// Handler handles API requests
type Handler struct {
	store storage.Store
}

// NewHandler creates a new API handler
func NewHandler(store storage.Store) *Handler {
	return &Handler{
		store: store,
	}
}

// HealthCheck returns server health status
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GetLatestOverlap returns the most recent overlap result for a pair
// GET /api/v1/overlaps/:a/:b/latest
func (h *Handler) GetLatestOverlap(c *gin.Context) {
	communityA := c.Param("a")
	communityB := c.Param("b")

	result, err := h.store.LatestOverlap(c.Request.Context(), communityA, communityB)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result,
	})
}

// GetCommunityStats returns the stored collection state for a community
// GET /api/v1/communities/:community/stats
func (h *Handler) GetCommunityStats(c *gin.Context) {
	community := c.Param("community")
	ctx := c.Request.Context()

	count, err := h.store.CountBatches(ctx, community)
	if err != nil {
		respondError(c, err)
		return
	}
	maxIndex, err := h.store.MaxBatchIndex(ctx, community)
	if err != nil {
		respondError(c, err)
		return
	}
	participants, err := h.store.LoadAllParticipants(ctx, community)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"community":         community,
			"batches":           count,
			"max_batch_index":   maxIndex,
			"participant_count": len(participants),
		},
	})
}

// GetCommunityParticipants returns the merged participant list for a community
// GET /api/v1/communities/:community/participants
func (h *Handler) GetCommunityParticipants(c *gin.Context) {
	community := c.Param("community")

	participants, err := h.store.LoadAllParticipants(c.Request.Context(), community)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(participants) == 0 {
		respondError(c, apperrors.NewNotFoundError("participants for "+community))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": participants,
	})
}

// GetOutreachRun returns a single outreach run record
// GET /api/v1/outreach/:id
func (h *Handler) GetOutreachRun(c *gin.Context) {
	id := c.Param("id")

	run, err := h.store.GetOutreachRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": run,
	})
}

// GetLatestOutreachRun returns the most recently updated outreach run
// GET /api/v1/outreach/latest
func (h *Handler) GetLatestOutreachRun(c *gin.Context) {
	run, err := h.store.LatestOutreachRun(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": run,
	})
}

// respondError maps application errors to HTTP responses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if appErr, ok := err.(*apperrors.AppError); ok {
		switch appErr.Code {
		case apperrors.ErrCodeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeUnauthorized:
			status = http.StatusUnauthorized
		case apperrors.ErrCodeBadRequest, apperrors.ErrCodePrecondition:
			status = http.StatusBadRequest
		case apperrors.ErrCodeRateLimited:
			status = http.StatusTooManyRequests
		}
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
	})
}
