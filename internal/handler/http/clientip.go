package http

import (
	"net"
	"net/http"
	"strings"
)

// ClientIPExtractor определяет IP клиента с учетом доверенных прокси.
// Заголовки X-Forwarded-For / X-Real-IP подделываемы, поэтому они
// учитываются только когда сам запрос пришел от доверенного прокси.
// Без настроенных прокси всегда используется адрес соединения.
type ClientIPExtractor struct {
	trustedProxies map[string]struct{}
}

// NewClientIPExtractor создает extractor с заданным списком доверенных прокси
func NewClientIPExtractor(trustedProxies []string) *ClientIPExtractor {
	trusted := make(map[string]struct{}, len(trustedProxies))
	for _, proxy := range trustedProxies {
		proxy = strings.TrimSpace(proxy)
		if proxy != "" {
			trusted[proxy] = struct{}{}
		}
	}
	return &ClientIPExtractor{trustedProxies: trusted}
}

// ClientIP возвращает IP клиента: первый адрес из X-Forwarded-For,
// затем X-Real-IP, затем адрес соединения
func (e *ClientIPExtractor) ClientIP(r *http.Request) string {
	peer := peerAddr(r)

	if _, trusted := e.trustedProxies[peer]; trusted {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first := strings.Split(forwarded, ",")[0]
			return strings.TrimSpace(first)
		}
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			return strings.TrimSpace(realIP)
		}
	}

	return peer
}

func peerAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
