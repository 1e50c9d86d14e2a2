package webhook

import (
	"context"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "idmcore/pkg/domain-errors"
)

type captured struct {
	method      string
	query       string
	contentType string
	body        string
}

func recordingServer(t *testing.T, tlsServer bool) (*httptest.Server, chan captured) {
	t.Helper()
	calls := make(chan captured, 4)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls <- captured{
			method:      r.Method,
			query:       r.URL.RawQuery,
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
		}
		w.WriteHeader(http.StatusOK)
	})
	var srv *httptest.Server
	if tlsServer {
		srv = httptest.NewTLSServer(h)
	} else {
		srv = httptest.NewServer(h)
	}
	t.Cleanup(srv.Close)
	return srv, calls
}

func TestTriggerGet(t *testing.T) {
	srv, calls := recordingServer(t, false)
	p := New()

	resp, err := p.Trigger(context.Background(), Webhook{URL: srv.URL + "/hook?fixed=1", Method: MethodGet},
		map[string]string{"user": "alice"})
	require.NoError(t, err)
	defer resp.Body.Close()

	call := <-calls
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, "fixed=1&user=alice", call.query)
	assert.Empty(t, call.body)
}

func TestTriggerPostIsForm(t *testing.T) {
	srv, calls := recordingServer(t, false)
	p := New()

	resp, err := p.Trigger(context.Background(), Webhook{URL: srv.URL, Method: MethodPost},
		map[string]string{"user": "alice", "status": "disabled"})
	require.NoError(t, err)
	defer resp.Body.Close()

	call := <-calls
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "application/x-www-form-urlencoded", call.contentType)
	assert.Equal(t, "status=disabled&user=alice", call.body)
}

func TestTriggerTruststore(t *testing.T) {
	srv, calls := recordingServer(t, true)
	bundle := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	client, err := NewTruststoreClient(bundle, time.Second)
	require.NoError(t, err)

	p := New(WithTruststoreClient("partner", client))

	t.Run("named truststore validates the server", func(t *testing.T) {
		resp, err := p.Trigger(context.Background(), Webhook{URL: srv.URL, Method: MethodGet, TruststoreName: "partner"}, nil)
		require.NoError(t, err)
		resp.Body.Close()
		<-calls
	})

	t.Run("system roots reject the test certificate", func(t *testing.T) {
		_, err := p.Trigger(context.Background(), Webhook{URL: srv.URL, Method: MethodGet}, nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	t.Run("unknown truststore", func(t *testing.T) {
		_, err := p.Trigger(context.Background(), Webhook{URL: srv.URL, Method: MethodGet, TruststoreName: "missing"}, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func TestNewTruststoreClientRejectsGarbage(t *testing.T) {
	_, err := NewTruststoreClient([]byte("not a pem"), time.Second)
	assert.Error(t, err)
}

func TestTriggerInvalidDefinitions(t *testing.T) {
	p := New()
	cases := []Webhook{
		{URL: "ftp://example.com", Method: MethodGet},
		{URL: "http://example.com", Method: "PUT"},
		{URL: "://bad", Method: MethodPost},
	}
	for _, hook := range cases {
		_, err := p.Trigger(context.Background(), hook, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal), "hook %+v", hook)
	}
}

func TestTriggerRateLimitHonoursContext(t *testing.T) {
	srv, calls := recordingServer(t, false)
	p := New(WithRateLimit(0.001, 1))

	resp, err := p.Trigger(context.Background(), Webhook{URL: srv.URL, Method: MethodGet}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	<-calls

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Trigger(ctx, Webhook{URL: srv.URL, Method: MethodGet}, nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
