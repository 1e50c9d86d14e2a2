package captcha

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSiteVerify(t *testing.T) {
	var gotSecret, gotResponse string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotSecret = r.PostForm.Get("secret")
		gotResponse = r.PostForm.Get("response")
		switch gotResponse {
		case "good":
			_, _ = io.WriteString(w, `{"success":true}`)
		case "broken":
			http.Error(w, "boom", http.StatusBadGateway)
		case "garbage":
			_, _ = io.WriteString(w, `not json`)
		default:
			_, _ = io.WriteString(w, `{"success":false,"error-codes":["invalid-input-response"]}`)
		}
	}))
	defer srv.Close()

	v, err := NewSiteVerify(srv.URL, "s3cret", WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, v.Verify(ctx, " good "))
	assert.Equal(t, "s3cret", gotSecret)
	assert.Equal(t, "good", gotResponse)

	assert.False(t, v.Verify(ctx, "bad"))
	assert.False(t, v.Verify(ctx, "broken"))
	assert.False(t, v.Verify(ctx, "garbage"))

	gotResponse = "untouched"
	assert.False(t, v.Verify(ctx, "  "))
	assert.Equal(t, "untouched", gotResponse, "blank responses never reach the provider")
}

func TestSiteVerifyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	v, err := NewSiteVerify(endpoint, "s3cret", WithLogger(quietLogger()), WithTimeout(time.Second))
	require.NoError(t, err)
	assert.False(t, v.Verify(context.Background(), "good"))
}

func TestNewSiteVerifyRejectsBadConfig(t *testing.T) {
	_, err := NewSiteVerify("not a url", "s3cret")
	assert.Error(t, err)
	_, err = NewSiteVerify("ftp://captcha.example.com/verify", "s3cret")
	assert.Error(t, err)
	_, err = NewSiteVerify("https://captcha.example.com/verify", "")
	assert.Error(t, err)
}

func TestUnconfiguredRefusesEverything(t *testing.T) {
	assert.False(t, Unconfigured{}.Verify(context.Background(), "anything"))
}
