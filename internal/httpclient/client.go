package httpclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/webtraffic/hitgen/internal/tracing"
)

// NewClient creates an HTTP client tuned for sustained load generation.
// The timeout bounds each request end to end; a timed-out request surfaces as
// an ordinary transport error.
func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// BuildTarget appends the date query parameter to the base URL when date is
// non-empty.
func BuildTarget(base, date string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", errors.New("target URL is required")
	}
	if date == "" {
		return base, nil
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("date", date)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// HitSender POSTs hits to a fixed target URL. It is safe for concurrent use;
// all workers share one sender per run.
type HitSender struct {
	client *http.Client
	target string
	tracer *tracing.Provider
}

// NewHitSender creates a sender bound to target. tracer may be nil.
func NewHitSender(client *http.Client, target string, tracer *tracing.Provider) *HitSender {
	return &HitSender{client: client, target: target, tracer: tracer}
}

// Target returns the bound URL.
func (s *HitSender) Target() string {
	return s.target
}

// Send issues one POST against the target and returns the HTTP status. The
// response body is drained and discarded so connections are reused.
func (s *HitSender) Send(ctx context.Context) (int, error) {
	ctx, span := tracing.StartHitSpan(ctx, s.tracer.Tracer(), s.target)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.target, nil)
	if err != nil {
		tracing.EndSpan(span, err)
		return 0, err
	}
	if s.tracer.ShouldPropagate() {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		tracing.EndSpan(span, err)
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	tracing.EndSpan(span, nil, attribute.Int("http.response.status_code", resp.StatusCode))
	return resp.StatusCode, nil
}
