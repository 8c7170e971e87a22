package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"tunelink/internal/cache"
	"tunelink/internal/config"
	"tunelink/internal/ngrok"
	"tunelink/internal/provider"
	"tunelink/internal/resolver"
	"tunelink/pkg/models"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// audioResolver is the slice of the resolver the HTTP layer depends on.
type audioResolver interface {
	Resolve(ctx context.Context, query string) (models.ResolvedAudio, error)
	CookiesFile() string
	SetCookiesAvailable(ok bool)
}

// RelayServer wires the provider parsers, the audio resolver and the
// streaming relay behind one HTTP surface.
type RelayServer struct {
	config       *config.Config
	logger       *logrus.Logger
	providers    *provider.Registry
	resolver     audioResolver
	cache        *cache.ResolutionCache
	upstream     *http.Client
	watcher      *fsnotify.Watcher
	ngrokService *ngrok.Service
	httpServer   *http.Server
}

// NewRelayServer creates a relay server instance
func NewRelayServer(cfg *config.Config, logger *logrus.Logger) (*RelayServer, error) {
	resolutionCache := cache.NewResolutionCache(
		time.Duration(cfg.Cache.TTLMinutes)*time.Minute,
		cfg.Cache.MaxEntries,
	)

	scraperClient := provider.NewClient(&cfg.Scraper, logger)

	res, err := resolver.New(&cfg.Resolver, resolutionCache, logger)
	if err != nil {
		return nil, fmt.Errorf("creating resolver: %w", err)
	}

	// Create ngrok service
	ngrokSvc, err := ngrok.NewService(&cfg.Ngrok)
	if err != nil {
		logger.WithError(err).Warn("Ngrok service not available")
		ngrokSvc = nil
	}

	server := &RelayServer{
		config:    cfg,
		logger:    logger,
		providers: provider.NewRegistry(scraperClient),
		resolver:  res,
		cache:     resolutionCache,
		upstream: &http.Client{
			// No client timeout: relayed media bodies stream for as long as
			// the listener keeps playing. Per-request contexts handle abort.
			Transport: &http.Transport{
				// Some media hosts present non-standard certificate chains.
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		ngrokService: ngrokSvc,
	}

	return server, nil
}

// Handler returns the full route set wrapped in the middleware chain.
func (rs *RelayServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", rs.handleHome)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(rs.config.Server.StaticDir))))
	mux.HandleFunc("/api/tracks", rs.handleTracks)
	mux.HandleFunc("/api/resolve", rs.handleResolve)
	mux.HandleFunc("/api/cache/stats", rs.handleCacheStats)
	mux.HandleFunc(resolver.StreamPath, rs.handleStream)
	mux.HandleFunc("/health", rs.handleHealthCheck)

	var handler http.Handler = mux
	handler = rs.requestLoggingMiddleware(handler)
	handler = rs.corsMiddleware(handler)
	handler = rs.panicRecoveryMiddleware(handler)

	return handler
}

// Start starts the relay server and blocks until it fails or is shut down.
func (rs *RelayServer) Start() error {
	// Watch the cookie file so a jar dropped in (or deleted) at runtime is
	// picked up without a restart.
	if rs.resolver.CookiesFile() != "" {
		if err := rs.startCookieWatcher(); err != nil {
			rs.logger.WithError(err).Warn("Could not start cookie file watcher")
		}
	}

	localAddress := fmt.Sprintf("http://%s", rs.config.GetAddress())

	rs.logger.WithFields(logrus.Fields{
		"address": localAddress,
	}).Info("Tunelink server starting")

	// Start ngrok tunnel if enabled
	if rs.ngrokService != nil {
		ctx := context.Background()
		if err := rs.ngrokService.StartTunnel(ctx, localAddress); err != nil {
			rs.logger.WithError(err).Warn("Could not start ngrok tunnel")
		}
	}

	rs.httpServer = &http.Server{
		Addr:        rs.config.GetAddress(),
		Handler:     rs.Handler(),
		ReadTimeout: time.Duration(rs.config.Server.ReadTimeout) * time.Second,
	}

	if err := rs.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the relay server
func (rs *RelayServer) Shutdown() {
	rs.logger.Info("Shutting down relay server...")

	rs.stopCookieWatcher()

	if rs.ngrokService != nil {
		rs.ngrokService.Stop()
	}

	if rs.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		rs.httpServer.Shutdown(ctx)
	}

	rs.logger.Info("Relay server shutdown complete")
}
