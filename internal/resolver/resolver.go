// Package resolver maps a track search query to a playable audio URL by
// searching the video platform through yt-dlp and picking an audio-only
// stream from the reported formats.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"tunelink/internal/cache"
	"tunelink/internal/config"
	"tunelink/pkg/models"

	"github.com/sirupsen/logrus"
)

// StreamPath is the local relay endpoint a resolved remote URL is embedded
// into. Clients only ever see this path, never the signed upstream URL.
const StreamPath = "/stream"

// runner executes an external command and returns its stdout. Swapped out
// in tests.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Resolver performs query-to-audio resolution with memoization.
type Resolver struct {
	cfg    *config.ResolverConfig
	cache  *cache.ResolutionCache
	logger *logrus.Logger

	ytDlpPath string
	run       runner

	mu        sync.RWMutex
	cookiesOK bool
}

// New creates a resolver. It fails when yt-dlp cannot be found, since
// nothing can be resolved without it. A missing cookie file is not an
// error; resolution just runs unauthenticated.
func New(cfg *config.ResolverConfig, c *cache.ResolutionCache, logger *logrus.Logger) (*Resolver, error) {
	r := &Resolver{
		cfg:    cfg,
		cache:  c,
		logger: logger,
		run:    runCommand,
	}

	if err := r.checkYtDlp(); err != nil {
		return nil, fmt.Errorf("yt-dlp not available: %w", err)
	}

	if cfg.CookiesFile != "" {
		if _, err := os.Stat(cfg.CookiesFile); err == nil {
			r.cookiesOK = true
		} else {
			logger.WithField("cookies_file", cfg.CookiesFile).Warn("Cookie file not found, resolving unauthenticated")
		}
	}

	return r, nil
}

// checkYtDlp verifies that yt-dlp is installed and accessible
func (r *Resolver) checkYtDlp() error {
	possiblePaths := []string{r.cfg.YtDlpPath, "yt-dlp", "yt-dlp.exe", "./yt-dlp"}

	for _, path := range possiblePaths {
		if _, err := exec.LookPath(path); err == nil {
			r.ytDlpPath = path
			return nil
		}
	}

	return fmt.Errorf("yt-dlp not found in PATH. Please install yt-dlp")
}

// CookiesFile returns the configured cookie file path, if any.
func (r *Resolver) CookiesFile() string {
	return r.cfg.CookiesFile
}

// SetCookiesAvailable toggles authenticated resolution. The cookie file
// watcher calls this when the file appears or vanishes at runtime.
func (r *Resolver) SetCookiesAvailable(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cookiesOK = ok
}

func (r *Resolver) cookiesAvailable() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cookiesOK
}

// searchResult is the flat-playlist JSON for a ytsearch query.
type searchResult struct {
	Entries []struct {
		ID string `json:"id"`
	} `json:"entries"`
}

// videoInfo is the slice of yt-dlp's single-video JSON dump we consume.
type videoInfo struct {
	Title      string        `json:"title"`
	WebpageURL string        `json:"webpage_url"`
	Duration   float64       `json:"duration"`
	Thumbnail  string        `json:"thumbnail"`
	Thumbnails []thumbnail   `json:"thumbnails"`
	Formats    []streamEntry `json:"formats"`
	URL        string        `json:"url"`
}

type thumbnail struct {
	URL string `json:"url"`
}

type streamEntry struct {
	URL    string `json:"url"`
	ACodec string `json:"acodec"`
	VCodec string `json:"vcodec"`
}

// Resolve returns the playable audio for a search query, consulting the
// cache first. Identical concurrent queries may both run the expensive
// path; whichever finishes last owns the cache entry, and either result is
// valid.
func (r *Resolver) Resolve(ctx context.Context, query string) (models.ResolvedAudio, error) {
	if hit, ok := r.cache.Get(query); ok {
		r.logger.WithField("query", query).Debug("Resolution cache hit")
		return hit, nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	videoID, err := r.search(ctx, query)
	if err != nil {
		return models.ResolvedAudio{}, err
	}

	info, err := r.extract(ctx, videoID)
	if err != nil {
		return models.ResolvedAudio{}, err
	}

	remote := selectAudioURL(info)
	if remote == "" {
		return models.ResolvedAudio{}, fmt.Errorf("%w: no playable stream in metadata", ErrExtraction)
	}

	resolved := models.ResolvedAudio{
		RemoteURL: remote,
		StreamURL: StreamPath + "?url=" + url.QueryEscape(remote),
		SourceURL: info.WebpageURL,
		Title:     info.Title,
		Thumbnail: pickThumbnail(info),
		Duration:  int(info.Duration),
	}

	r.cache.Set(query, resolved)

	r.logger.WithFields(logrus.Fields{
		"query": query,
		"title": resolved.Title,
	}).Info("Resolved audio stream")

	return resolved, nil
}

// search runs a single-result flat search and returns the first entry's ID.
func (r *Resolver) search(ctx context.Context, query string) (string, error) {
	args := r.baseArgs()
	args = append(args, "--flat-playlist", "ytsearch1:"+query)

	out, err := r.run(ctx, r.ytDlpPath, args...)
	if err != nil {
		return "", fmt.Errorf("%w: search: %v", ErrExtraction, err)
	}

	var result searchResult
	if err := json.Unmarshal(out, &result); err != nil {
		return "", fmt.Errorf("%w: search output: %v", ErrExtraction, err)
	}

	if len(result.Entries) == 0 || result.Entries[0].ID == "" {
		return "", ErrNotFound
	}

	return result.Entries[0].ID, nil
}

// extract dumps the full metadata, including formats, for a video ID.
func (r *Resolver) extract(ctx context.Context, videoID string) (*videoInfo, error) {
	args := r.baseArgs()
	args = append(args, videoID)

	out, err := r.run(ctx, r.ytDlpPath, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrExtraction, err)
	}

	var info videoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("%w: metadata output: %v", ErrExtraction, err)
	}

	return &info, nil
}

// baseArgs are the flags shared by the search and extraction invocations.
func (r *Resolver) baseArgs() []string {
	args := []string{"--dump-single-json", "--no-playlist", "--no-warnings", "--quiet"}
	if r.cookiesAvailable() && r.cfg.CookiesFile != "" {
		args = append(args, "--cookies", r.cfg.CookiesFile)
	}
	return args
}

// selectAudioURL picks the first format carrying audio but no video. This
// is deliberately first-match rather than best-bitrate; players depend on
// the streams this service has always handed out. When no audio-only
// format exists the entry's pre-merged URL is used instead.
func selectAudioURL(info *videoInfo) string {
	for _, f := range info.Formats {
		hasAudio := f.ACodec != "" && f.ACodec != "none"
		hasVideo := f.VCodec != "" && f.VCodec != "none"
		if hasAudio && !hasVideo && f.URL != "" {
			return f.URL
		}
	}
	return info.URL
}

// pickThumbnail prefers the primary thumbnail, else the last entry of the
// thumbnail list, which is the highest resolution by convention.
func pickThumbnail(info *videoInfo) string {
	if info.Thumbnail != "" {
		return info.Thumbnail
	}
	if n := len(info.Thumbnails); n > 0 {
		return info.Thumbnails[n-1].URL
	}
	return ""
}

// runCommand executes the command and returns stdout, folding stderr into
// the error for log context.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			detail := strings.TrimSpace(string(exitErr.Stderr))
			if detail != "" {
				return nil, fmt.Errorf("%v: %s", err, detail)
			}
		}
		return nil, err
	}

	return out, nil
}
