package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIPExtractor(t *testing.T) {
	newRequest := func(remoteAddr, xff, realIP string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remoteAddr
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		if realIP != "" {
			req.Header.Set("X-Real-IP", realIP)
		}
		return req
	}

	t.Run("no_proxies_configured_ignores_headers", func(t *testing.T) {
		extractor := NewClientIPExtractor(nil)
		req := newRequest("203.0.113.7:44321", "1.2.3.4", "5.6.7.8")
		assert.Equal(t, "203.0.113.7", extractor.ClientIP(req))
	})

	t.Run("trusted_proxy_uses_forwarded_for", func(t *testing.T) {
		extractor := NewClientIPExtractor([]string{"10.0.0.2"})
		req := newRequest("10.0.0.2:44321", "203.0.113.7, 10.0.0.2", "")
		assert.Equal(t, "203.0.113.7", extractor.ClientIP(req))
	})

	t.Run("trusted_proxy_falls_back_to_real_ip", func(t *testing.T) {
		extractor := NewClientIPExtractor([]string{"10.0.0.2"})
		req := newRequest("10.0.0.2:44321", "", "203.0.113.7")
		assert.Equal(t, "203.0.113.7", extractor.ClientIP(req))
	})

	t.Run("untrusted_peer_with_headers", func(t *testing.T) {
		extractor := NewClientIPExtractor([]string{"10.0.0.2"})
		req := newRequest("198.51.100.1:44321", "203.0.113.7", "")
		assert.Equal(t, "198.51.100.1", extractor.ClientIP(req))
	})

	t.Run("remote_addr_without_port", func(t *testing.T) {
		extractor := NewClientIPExtractor(nil)
		req := newRequest("203.0.113.7", "", "")
		assert.Equal(t, "203.0.113.7", extractor.ClientIP(req))
	})
}
