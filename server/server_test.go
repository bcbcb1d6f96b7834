package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/tclemos/map-bench/benchmark"
)

type sliceStore struct {
	records []benchmark.ResultRecord
	err     error
}

func (s *sliceStore) Append(_ context.Context, records []benchmark.ResultRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, records...)
	return nil
}

func (s *sliceStore) List(context.Context) ([]benchmark.ResultRecord, error) {
	return s.records, s.err
}

func do(t *testing.T, h http.Handler, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/api/results", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestResults_EmptyListIsArray(t *testing.T) {
	h := New("", &sliceStore{}).Handler()

	rec := do(t, h, http.MethodGet, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestResults_AppendThenList(t *testing.T) {
	st := &sliceStore{}
	h := New("", st).Handler()

	rec := do(t, h, http.MethodPost, `[{"library":"OpenLayers","overallPerformance":7.5,"timestamp":"2024-05-01T10:00:00Z","pointCount":100}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gjson.Get(rec.Body.String(), "success").Bool())

	rec = do(t, h, http.MethodPost, `[{"library":"Leaflet","timestamp":"2024-05-01T10:00:01Z","error":"boom"}]`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, int64(2), gjson.Get(body, "#").Int())
	assert.Equal(t, "OpenLayers", gjson.Get(body, "0.library").String())
	assert.Equal(t, "Leaflet", gjson.Get(body, "1.library").String())
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), st.records[0].Timestamp)
}

func TestResults_RejectsNonArray(t *testing.T) {
	st := &sliceStore{}
	h := New("", st).Handler()

	rec := do(t, h, http.MethodPost, `{"library":"OpenLayers"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, gjson.Get(rec.Body.String(), "success").Bool())
	assert.Empty(t, st.records)
}

func TestResults_StoreFailure(t *testing.T) {
	h := New("", &sliceStore{err: errors.New("disk full")}).Handler()

	rec := do(t, h, http.MethodPost, `[]`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(t, h, http.MethodGet, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestResults_CORS(t *testing.T) {
	h := New("", &sliceStore{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/results", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New("127.0.0.1:0", &sliceStore{})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
