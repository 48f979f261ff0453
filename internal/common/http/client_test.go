package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClientConfig(t *testing.T) {
	config := DefaultClientConfig()

	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, 10*time.Second, config.DialTimeout)
	assert.Equal(t, 100, config.MaxIdleConns)
	assert.Equal(t, 10, config.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, config.IdleConnTimeout)
	assert.False(t, config.DisableCompression)
	assert.Nil(t, config.Transport)
	assert.Nil(t, config.CheckRedirect)
}

func TestOptions(t *testing.T) {
	config := DefaultClientConfig()

	WithTimeout(5 * time.Second)(&config)
	WithResponseHeaderTimeout(2 * time.Second)(&config)
	WithMaxIdleConnsPerHost(4)(&config)
	WithoutCompression()(&config)

	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.Equal(t, 2*time.Second, config.ResponseHeaderTimeout)
	assert.Equal(t, 4, config.MaxIdleConnsPerHost)
	assert.True(t, config.DisableCompression)
	assert.Equal(t, 100, config.MaxIdleConns)
}

func TestNewTransport(t *testing.T) {
	transport := NewTransport(WithResponseHeaderTimeout(3*time.Second), WithoutCompression())

	assert.Equal(t, 3*time.Second, transport.ResponseHeaderTimeout)
	assert.True(t, transport.DisableCompression)
	assert.Nil(t, transport.TLSClientConfig)
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient(WithTimeout(7 * time.Second))
	assert.Equal(t, 7*time.Second, client.Timeout)

	_, ok := client.Transport.(*http.Transport)
	assert.True(t, ok)
}

func TestNewHTTPClient_CustomTransport(t *testing.T) {
	custom := &http.Transport{}
	client := NewHTTPClient(WithTransport(custom))
	assert.Same(t, custom, client.Transport)
}

func TestNewHTTPClient_CheckRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer server.Close()

	client := NewHTTPClient(WithCheckRedirect(func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}))

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
}
