package adapters

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPAdapterDo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Content-Type", r.Header.Get("Content-Type"))
		w.Write(body)
	}))
	defer server.Close()

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	response, err := NewHTTPAdapter(nil).Do(context.Background(), &RequestData{
		Method:  "POST",
		Uri:     server.URL,
		Body:    []byte(`{"ping":true}`),
		Headers: headers,
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, `{"ping":true}`, string(response.Body))
	assert.Equal(t, "POST", response.Headers.Get("X-Method"))
	assert.Equal(t, "application/json", response.Headers.Get("X-Content-Type"))
	assert.False(t, response.IsNoContent())
}

func TestHTTPAdapterDoFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	response, err := NewHTTPAdapter(nil).Do(context.Background(), &RequestData{Method: "GET", Uri: server.URL})

	assert.EqualError(t, err, "Server responded with failure status: 502.")
	require.NotNil(t, response)
	assert.Equal(t, "upstream down", string(response.Body))
}

func TestHTTPAdapterDoNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	response, err := NewHTTPAdapter(nil).Do(context.Background(), &RequestData{Method: "GET", Uri: server.URL})

	assert.NoError(t, err)
	assert.True(t, response.IsNoContent())
}

func TestHTTPAdapterDoHonoursContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewHTTPAdapter(nil).Do(ctx, &RequestData{Method: "GET", Uri: server.URL})

	assert.Error(t, err)
}
