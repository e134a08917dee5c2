package httpclient

import (
	"net"
	"net/http"
	"time"

	"github.com/videolens/server/internal/infra/config"
	"go.uber.org/zap"
)

// New creates a pooled HTTP client for outbound provider calls.
// Requests slower than slowThreshold are logged.
func New(cfg config.HTTPClientConfig, logger *zap.Logger) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: cfg.KeepAlive,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
		ForceAttemptHTTP2:   true,
	}

	var rt http.RoundTripper = transport
	if logger != nil {
		rt = &loggingTransport{next: transport, logger: logger, slowThreshold: slowThreshold}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.ResponseTimeout,
	}
}

const slowThreshold = 3 * time.Second

type loggingTransport struct {
	next          http.RoundTripper
	logger        *zap.Logger
	slowThreshold time.Duration
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	elapsed := time.Since(start)

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
		zap.Duration("latency", elapsed),
	}
	switch {
	case err != nil:
		t.logger.Warn("outbound request failed", append(fields, zap.Error(err))...)
	case elapsed >= t.slowThreshold:
		t.logger.Warn("slow outbound request", append(fields, zap.Int("status", resp.StatusCode))...)
	}
	return resp, err
}
