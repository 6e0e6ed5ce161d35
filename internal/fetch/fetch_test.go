package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/universal-product-parser/internal/models"
)

const testUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) test"

func TestDirectFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testUA, r.Header.Get("User-Agent"))
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		w.Write([]byte("<html><h1>Coat</h1></html>"))
	}))
	defer srv.Close()

	d := NewDirect(5*time.Second, testUA)
	result, err := d.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, result.HTML, "Coat")
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, models.StrategyDirect, result.Strategy)
}

func TestDirectFetchBlockedStatuses(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		d := NewDirect(5*time.Second, testUA)
		_, err := d.Fetch(context.Background(), srv.URL)

		assert.ErrorIs(t, err, ErrBlocked, "status %d", status)
		srv.Close()
	}
}

func TestDirectFetchChallengePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>Checking your browser before accessing</body></html>"))
	}))
	defer srv.Close()

	d := NewDirect(5*time.Second, testUA)
	_, err := d.Fetch(context.Background(), srv.URL)

	assert.ErrorIs(t, err, ErrBlocked)
}

func TestDirectFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	d := NewDirect(50*time.Millisecond, testUA)
	_, err := d.Fetch(context.Background(), srv.URL)

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestDirectFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDirect(5*time.Second, testUA)
	_, err := d.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBlocked)
}
