package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient() *Client {
	c := NewClient(zap.NewNop().Sugar())
	c.retryWait = time.Millisecond
	return c
}

func TestFetchJSONRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"title":"SSC CGL out","message":"apply","source":"board"}]`))
	}))
	defer srv.Close()

	var records []ScrapedNotification
	err := newTestClient().FetchJSON(context.Background(), srv.URL, &records)

	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	require.Len(t, records, 1)
	assert.Equal(t, "SSC CGL out", records[0].Title)
}

func TestFetchJSONGivesUpAfterThreeAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var records []ScrapedNotification
	err := newTestClient().FetchJSON(context.Background(), srv.URL, &records)

	assert.Error(t, err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchJSONStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var records []ScrapedNotification
	err := newTestClient().FetchJSON(ctx, srv.URL, &records)
	assert.Error(t, err)
}
