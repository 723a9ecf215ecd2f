// Package api exposes the indexer's operator surface: the replay trigger
// and the cursor read endpoint.
package api

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	coreerrors "github.com/heliograph-labs/heliograph/internal/core/errors"
	"github.com/heliograph-labs/heliograph/internal/indexer"
)

const secretHeader = "X-Indexer-Secret"

// Handler wires the replay trigger and state endpoints.
type Handler struct {
	svc    *indexer.Service
	secret string
}

func NewHandler(svc *indexer.Service, secret string) *Handler {
	return &Handler{svc: svc, secret: secret}
}

// RegisterRoutes attaches the indexer endpoints to the engine. The replay
// trigger is registered only when a shared secret is configured.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/v1/indexer/state", h.StateHandler)
	if h.secret != "" {
		r.POST("/v1/indexer/replay", h.requireSecret, h.ReplayHandler)
	} else {
		slog.Warn("[IndexerAPI] Replay endpoint disabled: no replay secret configured")
	}
}

// replayRequest accepts either a range replay or a single transaction.
type replayRequest struct {
	FromSignature string `json:"fromSignature"`
	Limit         int    `json:"limit"`
	Commitment    string `json:"commitment"`
	Signature     string `json:"signature"`
}

func (h *Handler) requireSecret(c *gin.Context) {
	provided := c.GetHeader(secretHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, coreerrors.ErrorResponse{
			ErrorType: coreerrors.HttpUnauthorizedError,
			Message:   "missing or invalid " + secretHeader + " header",
		})
		return
	}
	c.Next()
}

// ReplayHandler triggers the pipeline on demand. With "signature" set it
// replays exactly that transaction; otherwise it runs one pass starting
// from "fromSignature" (or the watermark).
func (h *Handler) ReplayHandler(c *gin.Context) {
	var req replayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, coreerrors.ErrorResponse{
			ErrorType: coreerrors.HttpInvalidRequest,
			Message:   "invalid JSON body",
		})
		return
	}

	if req.Limit < 0 || req.Limit > 1000 {
		c.JSON(http.StatusBadRequest, coreerrors.ErrorResponse{
			ErrorType: coreerrors.HttpInvalidRequest,
			Message:   "limit must be 0-1000",
		})
		return
	}

	var (
		result indexer.PassResult
		err    error
	)
	if req.Signature != "" {
		result, err = h.svc.ReplaySingle(c.Request.Context(), req.Signature, req.Commitment)
	} else {
		result, err = h.svc.ReplayFromPosition(c.Request.Context(), req.FromSignature, req.Limit, req.Commitment)
	}

	if err != nil {
		h.writeReplayError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "data": result})
}

func (h *Handler) writeReplayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, indexer.ErrBusy):
		c.JSON(http.StatusConflict, coreerrors.ErrorResponse{
			ErrorType: coreerrors.HttpReplayBusyError,
			Message:   err.Error(),
		})
	case errors.Is(err, coreerrors.ErrConfiguration):
		c.JSON(http.StatusBadRequest, coreerrors.ErrorResponse{
			ErrorType: coreerrors.HttpConfigurationError,
			Message:   err.Error(),
		})
	default:
		slog.Error("[IndexerAPI] Replay failed", "error", err)
		c.JSON(http.StatusInternalServerError, coreerrors.ErrorResponse{
			ErrorType: coreerrors.HttpInternalError,
			Message:   "replay failed",
		})
	}
}

// StateHandler returns the stream watermark for observability.
func (h *Handler) StateHandler(c *gin.Context) {
	w, err := h.svc.State(c.Request.Context())
	if err != nil {
		slog.Error("[IndexerAPI] Failed to read indexer state", "error", err)
		c.JSON(http.StatusInternalServerError, coreerrors.ErrorResponse{
			ErrorType: coreerrors.HttpInternalError,
			Message:   "failed to read indexer state",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": w})
}
