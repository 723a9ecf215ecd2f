package query

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func setupQueryRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	NewService(seededStore(t)).RegisterRoutes(r)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProfileEndpoint(t *testing.T) {
	r := setupQueryRouter(t)

	w := get(r, "/v1/profiles/alice")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK   bool           `json:"ok"`
		Data ProfileSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.Equal(t, "alice_1", resp.Data.Profile.Username)
	require.Equal(t, int64(2), resp.Data.Followers)

	require.Equal(t, http.StatusNotFound, get(r, "/v1/profiles/nobody").Code)
}

func TestUsernameEndpoint(t *testing.T) {
	r := setupQueryRouter(t)

	w := get(r, "/v1/usernames/alice_1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data ProfileSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "alice", resp.Data.Profile.Authority)
}

func TestFeedEndpoint(t *testing.T) {
	r := setupQueryRouter(t)

	w := get(r, "/v1/profiles/alice/feed?limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []FeedPost `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, int64(2), resp.Data[0].Post.PostID)

	require.Equal(t, http.StatusBadRequest, get(r, "/v1/profiles/alice/feed?limit=nope").Code)
	require.Equal(t, http.StatusBadRequest, get(r, "/v1/profiles/alice/feed?limit=5000").Code)
}

func TestTipsEndpoint(t *testing.T) {
	r := setupQueryRouter(t)

	w := get(r, "/v1/profiles/alice/tips")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []TipView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "1.5", resp.Data[0].AmountSol.String())
}

func TestCommentsEndpoint(t *testing.T) {
	r := setupQueryRouter(t)

	w := get(r, "/v1/posts/alice/1/comments")
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, http.StatusBadRequest, get(r, "/v1/posts/alice/not-a-number/comments").Code)
	require.Equal(t, http.StatusBadRequest, get(r, "/v1/posts/alice/-3/comments").Code)
}

func TestTopicEndpoint(t *testing.T) {
	r := setupQueryRouter(t)

	w := get(r, "/v1/topics/go")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			PostID int64 `json:"post_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
}
