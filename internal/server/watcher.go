package server

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// startCookieWatcher initializes fsnotify monitoring of the yt-dlp cookie
// file. The file's directory is watched rather than the file itself, since
// most tools replace cookie jars by rename and that would drop a file-level
// watch.
func (rs *RelayServer) startCookieWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	rs.watcher = watcher

	go rs.watchCookieFile()

	dir := filepath.Dir(rs.resolver.CookiesFile())
	if err := watcher.Add(dir); err != nil {
		return err
	}

	rs.logger.WithField("cookies_file", rs.resolver.CookiesFile()).Info("Cookie file watcher started")
	return nil
}

// watchCookieFile selects on watcher channels and dispatches events.
func (rs *RelayServer) watchCookieFile() {
	defer rs.watcher.Close()

	for {
		select {
		case event, ok := <-rs.watcher.Events:
			if !ok {
				return
			}
			rs.handleCookieEvent(event)

		case err, ok := <-rs.watcher.Errors:
			if !ok {
				return
			}
			rs.logger.WithError(err).Error("Cookie file watcher error")
		}
	}
}

// handleCookieEvent toggles authenticated resolution when the cookie file
// appears, changes or vanishes.
func (rs *RelayServer) handleCookieEvent(event fsnotify.Event) {
	cookiesFile := rs.resolver.CookiesFile()
	if filepath.Clean(event.Name) != filepath.Clean(cookiesFile) {
		return
	}

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if _, err := os.Stat(cookiesFile); os.IsNotExist(err) {
			rs.resolver.SetCookiesAvailable(false)
			rs.logger.WithField("cookies_file", cookiesFile).Warn("Cookie file removed, resolving unauthenticated")
		}

	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		rs.resolver.SetCookiesAvailable(true)
		rs.logger.WithField("cookies_file", cookiesFile).Info("Cookie file updated")
	}
}

// stopCookieWatcher closes the watcher (idempotent).
func (rs *RelayServer) stopCookieWatcher() {
	if rs.watcher != nil {
		rs.watcher.Close()
	}
}
