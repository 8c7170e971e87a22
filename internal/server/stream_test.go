package server

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"tunelink/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRelayServer() *RelayServer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return &RelayServer{
		config: config.DefaultConfig(),
		logger: logger,
		upstream: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

func streamRequest(remote string) *http.Request {
	target := "/stream"
	if remote != "" {
		target += "?url=" + url.QueryEscape(remote)
	}
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func TestStreamRelaysFullBody(t *testing.T) {
	body := strings.Repeat("a", 500)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "500")
		fmt.Fprint(w, body)
	}))
	defer upstream.Close()

	rs := newTestRelayServer()
	rec := httptest.NewRecorder()
	rs.handleStream(rec, streamRequest(upstream.URL))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, rec.Body.String())
	assert.Equal(t, "audio/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "500", rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Header().Get("Content-Range"))
}

func TestStreamForwardsRangeHeader(t *testing.T) {
	full := strings.Repeat("x", 500)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rng := r.Header.Get("Range")
		require.Equal(t, "bytes=100-199", rng)

		w.Header().Set("Content-Range", "bytes 100-199/500")
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusPartialContent)
		fmt.Fprint(w, full[100:200])
	}))
	defer upstream.Close()

	rs := newTestRelayServer()
	req := streamRequest(upstream.URL)
	req.Header.Set("Range", "bytes=100-199")

	rec := httptest.NewRecorder()
	rs.handleStream(rec, req)

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 100-199/500", rec.Header().Get("Content-Range"))
	assert.Equal(t, "100", rec.Header().Get("Content-Length"))
	assert.Equal(t, full[100:200], rec.Body.String())
}

func TestStreamPropagatesUpstreamStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer upstream.Close()

	rs := newTestRelayServer()
	rec := httptest.NewRecorder()
	rs.handleStream(rec, streamRequest(upstream.URL))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStreamMissingURLParameter(t *testing.T) {
	rs := newTestRelayServer()
	rec := httptest.NewRecorder()
	rs.handleStream(rec, streamRequest(""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestStreamUpstreamUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	rs := newTestRelayServer()
	rec := httptest.NewRecorder()
	rs.handleStream(rec, streamRequest(upstream.URL))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestStreamSendsBrowserUserAgentUpstream(t *testing.T) {
	var gotUA string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer upstream.Close()

	rs := newTestRelayServer()
	rec := httptest.NewRecorder()
	rs.handleStream(rec, streamRequest(upstream.URL))

	assert.Contains(t, gotUA, "Mozilla/5.0")
}

func TestCopyStreamChunks(t *testing.T) {
	rs := newTestRelayServer()

	// A body larger than one chunk is copied whole.
	payload := strings.Repeat("b", streamChunkSize*2+100)
	rec := httptest.NewRecorder()

	written, err := rs.copyStream(rec, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), written)
	assert.Equal(t, payload, rec.Body.String())
}
