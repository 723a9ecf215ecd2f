package query

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	coreerrors "github.com/heliograph-labs/heliograph/internal/core/errors"
	"github.com/heliograph-labs/heliograph/internal/store"
)

// RegisterRoutes attaches the read-only mirror views to the engine.
func (s *Service) RegisterRoutes(r *gin.Engine) {
	// A username segment would conflict with the :authority wildcard in
	// gin's route tree, so username lookups live under /v1/usernames.
	r.GET("/v1/profiles/:authority", s.profileHandler)
	r.GET("/v1/usernames/:username", s.profileByUsernameHandler)
	r.GET("/v1/profiles/:authority/feed", s.feedHandler)
	r.GET("/v1/profiles/:authority/tips", s.tipsHandler)
	r.GET("/v1/posts/:author/:postId/comments", s.commentsHandler)
	r.GET("/v1/topics/:topic", s.topicHandler)
}

func (s *Service) profileHandler(c *gin.Context) {
	summary, err := s.ProfileByAuthority(c.Request.Context(), c.Param("authority"))
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": summary})
}

func (s *Service) profileByUsernameHandler(c *gin.Context) {
	summary, err := s.ProfileByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": summary})
}

func (s *Service) feedHandler(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	feed, err := s.Feed(c.Request.Context(), c.Param("authority"), limit, offset)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": feed})
}

func (s *Service) tipsHandler(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	tips, err := s.TipsReceived(c.Request.Context(), c.Param("authority"), limit, offset)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": tips})
}

func (s *Service) commentsHandler(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("postId"), 10, 64)
	if err != nil || postID < 0 {
		c.JSON(http.StatusBadRequest, coreerrors.ErrorResponse{
			ErrorType: coreerrors.HttpInvalidRequest,
			Message:   "postId must be a non-negative integer",
		})
		return
	}
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	comments, err := s.Comments(c.Request.Context(), c.Param("author"), postID, limit, offset)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": comments})
}

func (s *Service) topicHandler(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	tags, err := s.PostsByTopic(c.Request.Context(), c.Param("topic"), limit, offset)
	if err != nil {
		writeQueryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": tags})
}

// pageParams parses limit/offset query parameters, writing the 400 itself
// when they are malformed.
func pageParams(c *gin.Context) (limit, offset int, ok bool) {
	var err error
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			writeQueryError(c, ErrInvalidQuery)
			return 0, 0, false
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil {
			writeQueryError(c, ErrInvalidQuery)
			return 0, 0, false
		}
	}
	return limit, offset, true
}

func writeQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, coreerrors.ErrorResponse{
			ErrorType: coreerrors.HttpNotFoundError,
			Message:   "not found",
		})
	case errors.Is(err, ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, coreerrors.ErrorResponse{
			ErrorType: coreerrors.HttpInvalidRequest,
			Message:   err.Error(),
		})
	default:
		slog.Error("[Query] Request failed", "error", err)
		c.JSON(http.StatusInternalServerError, coreerrors.ErrorResponse{
			ErrorType: coreerrors.HttpInternalError,
			Message:   "query failed",
		})
	}
}
