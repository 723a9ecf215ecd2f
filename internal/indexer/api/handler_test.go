package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/heliograph-labs/heliograph/internal/decode"
	"github.com/heliograph-labs/heliograph/internal/indexer"
	"github.com/heliograph-labs/heliograph/internal/ledger"
	"github.com/heliograph-labs/heliograph/internal/store"
)

type stubClient struct {
	sigs []ledger.SignatureInfo
	txs  map[string]*ledger.Transaction
}

func (s *stubClient) ListSignatures(ctx context.Context, before, until string, limit int, commitment ledger.Commitment) ([]ledger.SignatureInfo, error) {
	return s.sigs, nil
}

func (s *stubClient) FetchTransaction(ctx context.Context, signature string, commitment ledger.Commitment) (*ledger.Transaction, error) {
	tx, ok := s.txs[signature]
	if !ok {
		return nil, errors.New("unknown signature")
	}
	return tx, nil
}

type stubDecoder struct {
	records map[string][]decode.Record
}

func (s *stubDecoder) Decode(tx *ledger.Transaction) []decode.Record {
	return s.records[tx.Signature]
}

func setupRouter(t *testing.T, secret string) (*gin.Engine, *store.Memory, *indexer.Gate) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := &stubClient{
		sigs: []ledger.SignatureInfo{{Signature: "sig-a", Slot: 10}},
		txs:  map[string]*ledger.Transaction{"sig-a": {Signature: "sig-a", Slot: 10}},
	}
	dec := &stubDecoder{records: map[string][]decode.Record{
		"sig-a": {{
			Name: "PostIndexed",
			Fields: map[string]interface{}{
				"author": "alice", "postId": int64(1), "contentCid": "cid",
			},
		}},
	}}

	mem := store.NewMemory()
	runner := indexer.NewRunner(client, dec, indexer.NewApplier(mem), mem, "test-stream")
	gate := &indexer.Gate{}
	svc := indexer.NewService(runner, gate, mem, "test-stream", 100, ledger.CommitmentConfirmed)

	r := gin.New()
	NewHandler(svc, secret).RegisterRoutes(r)
	return r, mem, gate
}

func doJSON(r *gin.Engine, secret string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/v1/indexer/replay", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Indexer-Secret", secret)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReplay_RequiresSecret(t *testing.T) {
	r, _, _ := setupRouter(t, "hunter2")

	w := doJSON(r, "", map[string]interface{}{})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, "wrong", map[string]interface{}{})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReplay_DisabledWithoutSecret(t *testing.T) {
	r, _, _ := setupRouter(t, "")

	w := doJSON(r, "", map[string]interface{}{})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestReplay_RunsPassAndAdvancesCursor(t *testing.T) {
	r, mem, _ := setupRouter(t, "hunter2")

	w := doJSON(r, "hunter2", map[string]interface{}{"limit": 10})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK   bool               `json:"ok"`
		Data indexer.PassResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.Equal(t, 1, resp.Data.ProcessedEventCount)
	require.Equal(t, 1, resp.Data.TransactionsScanned)

	watermark, err := mem.GetWatermark(context.Background(), "test-stream")
	require.NoError(t, err)
	require.Equal(t, "sig-a", watermark.Signature)
}

func TestReplay_SingleTransactionDoesNotAdvanceCursor(t *testing.T) {
	r, mem, _ := setupRouter(t, "hunter2")

	w := doJSON(r, "hunter2", map[string]interface{}{"signature": "sig-a"})
	require.Equal(t, http.StatusOK, w.Code)

	_, err := mem.GetWatermark(context.Background(), "test-stream")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestReplay_ConflictWhilePassInFlight(t *testing.T) {
	r, _, gate := setupRouter(t, "hunter2")

	require.True(t, gate.TryAcquire())
	defer gate.Release()

	w := doJSON(r, "hunter2", map[string]interface{}{})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestReplay_RejectsOutOfRangeLimit(t *testing.T) {
	r, _, _ := setupRouter(t, "hunter2")

	w := doJSON(r, "hunter2", map[string]interface{}{"limit": 5000})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReplay_RejectsMalformedBody(t *testing.T) {
	r, _, _ := setupRouter(t, "hunter2")

	req := httptest.NewRequest(http.MethodPost, "/v1/indexer/replay", bytes.NewReader([]byte("{nope")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Indexer-Secret", "hunter2")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestState_ReturnsWatermark(t *testing.T) {
	r, mem, _ := setupRouter(t, "")

	_, err := mem.SetWatermark(context.Background(), "test-stream", 77, "sig-head")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/indexer/state", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK   bool            `json:"ok"`
		Data store.Watermark `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.Equal(t, int64(77), resp.Data.Slot)
	require.Equal(t, "sig-head", resp.Data.Signature)
}

func TestState_FreshStreamReportsZeroWatermark(t *testing.T) {
	r, _, _ := setupRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/v1/indexer/state", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data store.Watermark `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "test-stream", resp.Data.StreamKey)
	require.Zero(t, resp.Data.Slot)
}
