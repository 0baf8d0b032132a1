package tlsutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// aeadSuites TLS 1.2 下允许的密码套件，TLS 1.3 套件由标准库固定
var aeadSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// DefaultTLSConfig 返回加固后的 TLS 配置
func DefaultTLSConfig() *tls.Config {
	suites := make([]uint16, len(aeadSuites))
	copy(suites, aeadSuites)
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		CipherSuites: suites,
	}
}

// SecureTransport 返回带 TLS 加固与代理环境变量支持的 Transport
func SecureTransport() *http.Transport {
	return &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: DefaultTLSConfig(),
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// ClientOption 调整 SecureHTTPClient 的结果
type ClientOption func(*http.Client)

// WithCookieJar 为需要会话 cookie 的站点（如 DuckDuckGo HTML 端点）挂载 cookie jar
func WithCookieJar(jar *cookiejar.Jar) ClientOption {
	return func(c *http.Client) { c.Jar = jar }
}

// SecureHTTPClient 可直接替换 &http.Client{Timeout: timeout}
func SecureHTTPClient(timeout time.Duration, opts ...ClientOption) *http.Client {
	c := &http.Client{
		Timeout:   timeout,
		Transport: SecureTransport(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
