// Package captcha checks the captcha response submitted with a reset
// username against a siteverify style provider.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 64 << 10

// Doer is the minimal interface needed from an HTTP client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SiteVerify posts the response with the shared secret to the provider's
// verify endpoint and trusts only an explicit success.
type SiteVerify struct {
	endpoint string
	secret   string
	timeout  time.Duration
	client   Doer
	logger   *slog.Logger
}

type Option func(*SiteVerify)

func WithLogger(logger *slog.Logger) Option {
	return func(v *SiteVerify) {
		v.logger = logger
	}
}

func WithClient(client Doer) Option {
	return func(v *SiteVerify) {
		v.client = client
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(v *SiteVerify) {
		if timeout > 0 {
			v.timeout = timeout
		}
	}
}

func NewSiteVerify(endpoint, secret string, opts ...Option) (*SiteVerify, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, fmt.Errorf("captcha verify url %q is not an absolute http(s) url", endpoint)
	}
	if secret == "" {
		return nil, fmt.Errorf("captcha secret is empty")
	}
	v := &SiteVerify{endpoint: endpoint, secret: secret, timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	if v.client == nil {
		v.client = &http.Client{Timeout: v.timeout}
	}
	return v, nil
}

type verifyResult struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify fails closed: transport errors, non-2xx answers and unreadable
// bodies all count as a rejected captcha.
func (v *SiteVerify) Verify(ctx context.Context, response string) bool {
	response = strings.TrimSpace(response)
	if response == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	form := url.Values{"secret": {v.secret}, "response": {response}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		v.logger.ErrorContext(ctx, "failed to build captcha request", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.WarnContext(ctx, "captcha provider unreachable", "error", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		v.logger.WarnContext(ctx, "captcha provider rejected the call", "status", resp.StatusCode)
		return false
	}
	var result verifyResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result); err != nil {
		v.logger.WarnContext(ctx, "unreadable captcha verdict", "error", err)
		return false
	}
	if !result.Success {
		v.logger.DebugContext(ctx, "captcha refused", "error_codes", result.ErrorCodes)
	}
	return result.Success
}

// Unconfigured refuses every response. It stands in when no provider is set
// so the reset flow stays closed instead of trusting any input.
type Unconfigured struct{}

func (Unconfigured) Verify(context.Context, string) bool { return false }
