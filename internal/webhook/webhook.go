// Package webhook calls operator-configured HTTP endpoints from translation
// and bulk actions.
package webhook

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/requestcontext"
)

type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// Webhook describes one outbound call. TruststoreName selects a PEM bundle
// registered with the Processor; empty means the system roots.
type Webhook struct {
	URL            string
	Method         Method
	TruststoreName string
}

// Doer is the minimal interface needed from an HTTP client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Processor struct {
	logger     *slog.Logger
	limiter    *rate.Limiter
	timeout    time.Duration
	client     Doer
	truststore map[string]Doer
}

type Option func(*Processor)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithRateLimit bounds outbound calls across all webhooks.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(p *Processor) {
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(p *Processor) {
		p.timeout = timeout
	}
}

// WithClient replaces the client used when no truststore is named.
func WithClient(client Doer) Option {
	return func(p *Processor) {
		p.client = client
	}
}

// WithTruststoreClient registers the client used for webhooks naming this truststore.
func WithTruststoreClient(name string, client Doer) Option {
	return func(p *Processor) {
		p.truststore[name] = client
	}
}

func New(opts ...Option) *Processor {
	p := &Processor{
		limiter:    rate.NewLimiter(rate.Inf, 0),
		timeout:    10 * time.Second,
		truststore: make(map[string]Doer),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: p.timeout}
	}
	return p
}

// NewTruststoreClient builds a client that only trusts the certificates in pemBundle.
func NewTruststoreClient(pemBundle []byte, timeout time.Duration) (*http.Client, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemBundle) {
		return nil, fmt.Errorf("truststore holds no PEM certificates")
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}
	return &http.Client{Timeout: timeout, Transport: transport}, nil
}

// LoadTruststores reads each named PEM bundle from disk and returns the
// matching options.
func LoadTruststores(paths map[string]string, timeout time.Duration) ([]Option, error) {
	opts := make([]Option, 0, len(paths))
	for name, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read truststore %s: %w", name, err)
		}
		client, err := NewTruststoreClient(raw, timeout)
		if err != nil {
			return nil, fmt.Errorf("truststore %s: %w", name, err)
		}
		opts = append(opts, WithTruststoreClient(name, client))
	}
	return opts, nil
}

// Trigger calls the webhook with params. GET carries them in the query
// string, POST as a form body. The caller closes the response body.
func (p *Processor) Trigger(ctx context.Context, hook Webhook, params map[string]string) (*http.Response, error) {
	req, err := p.buildRequest(ctx, hook, params)
	if err != nil {
		return nil, p.fail(ctx, hook, err, "invalid webhook definition")
	}
	client, err := p.clientFor(hook.TruststoreName)
	if err != nil {
		return nil, p.fail(ctx, hook, err, "webhook truststore is not available")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, p.fail(ctx, hook, err, "webhook call was not admitted")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, p.fail(ctx, hook, err, "webhook call failed")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		p.logger.WarnContext(ctx, "webhook returned error status",
			"request_id", requestcontext.RequestID(ctx),
			"url", hook.URL,
			"status", resp.StatusCode,
		)
	}
	return resp, nil
}

func (p *Processor) buildRequest(ctx context.Context, hook Webhook, params map[string]string) (*http.Request, error) {
	target, err := url.Parse(hook.URL)
	if err != nil {
		return nil, err
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", target.Scheme)
	}
	values := target.Query()
	for k, v := range params {
		values.Set(k, v)
	}

	switch hook.Method {
	case MethodGet:
		target.RawQuery = values.Encode()
		return http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	case MethodPost:
		form := url.Values{}
		for k, v := range params {
			form.Set(k, v)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	default:
		return nil, fmt.Errorf("unsupported method %q", hook.Method)
	}
}

func (p *Processor) clientFor(truststore string) (Doer, error) {
	if truststore == "" {
		return p.client, nil
	}
	client, ok := p.truststore[truststore]
	if !ok {
		return nil, fmt.Errorf("truststore %q is not defined", truststore)
	}
	return client, nil
}

func (p *Processor) fail(ctx context.Context, hook Webhook, err error, msg string) error {
	p.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"url", hook.URL,
		"method", string(hook.Method),
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
