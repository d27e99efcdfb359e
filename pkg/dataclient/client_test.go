package dataclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pv-analysis-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/series/export", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"series": []entity.SeriesPoint{
				{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Value: 1.5},
				{Timestamp: time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), Value: 2.0},
			},
			"coverage": entity.YearCoverage{Hours: 2, Complete: false},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	series, coverage, err := client.Export(context.Background())
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, 1.5, series[0].Value)
	require.NotNil(t, coverage)
	assert.Equal(t, 2, coverage.Hours)
}

func TestExportErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	_, _, err := client.Export(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestRestoreSendsSeries(t *testing.T) {
	var got struct {
		Series []entity.SeriesPoint `json:"series"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/series/restore", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	err := client.Restore(context.Background(), []entity.SeriesPoint{
		{Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), Value: 3.3},
	})
	require.NoError(t, err)
	require.Len(t, got.Series, 1)
	assert.Equal(t, 3.3, got.Series[0].Value)
}

func TestClear(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/series", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	require.NoError(t, client.Clear(context.Background()))
	assert.True(t, called)
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := New(srv.URL, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.Clear(ctx)
	require.Error(t, err)
}
