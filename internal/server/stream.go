package server

import (
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

const (
	// Chunk size for relaying upstream bodies (128KB)
	streamChunkSize = 128 * 1024
)

// handleStream proxies bytes from a resolved remote media URL to the
// client. The inbound Range header is forwarded verbatim so seeking works
// through the relay, and the upstream status plus Content-Length /
// Content-Range come back unchanged. The body is copied in bounded chunks;
// media files are large and are never buffered whole.
func (rs *RelayServer) handleStream(w http.ResponseWriter, r *http.Request) {
	remoteURL := r.URL.Query().Get("url")
	if remoteURL == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// The request context tears the upstream connection down as soon as
	// the client disconnects mid-stream.
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, remoteURL, nil)
	if err != nil {
		rs.logger.WithError(err).Warn("Invalid remote URL for relay")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	// Media hosts reject unrecognized clients; present the same browser
	// identity used during resolution.
	req.Header.Set("User-Agent", rs.config.Scraper.UserAgent)
	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := rs.upstream.Do(req)
	if err != nil {
		rs.logger.WithError(err).WithField("url", remoteURL).Error("Upstream fetch failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "audio/mp4")
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Connection", "keep-alive")

	// Pass length and range through only when the upstream reported them;
	// the relay never fabricates either.
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		w.Header().Set("Content-Length", cl)
	}
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		w.Header().Set("Content-Range", cr)
	}

	w.WriteHeader(resp.StatusCode)

	written, err := rs.copyStream(w, resp.Body)
	if err != nil {
		// Client hangups are routine; upstream read errors are not.
		rs.logger.WithFields(logrus.Fields{
			"url":     remoteURL,
			"written": written,
		}).WithError(err).Debug("Relay stream ended early")
	}
}

// copyStream copies upstream bytes in fixed-size chunks, flushing after
// each so playback starts before the transfer finishes.
func (rs *RelayServer) copyStream(w http.ResponseWriter, body io.Reader) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buffer := make([]byte, streamChunkSize)

	var written int64
	for {
		n, readErr := body.Read(buffer)
		if n > 0 {
			wn, writeErr := w.Write(buffer[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, writeErr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, readErr
		}
	}
}
