// Package provider extracts track lists from supported music services.
//
// Each parser turns a playlist, album or track URL into raw title/artist
// pairs scraped from the service's pages or public API. Parsers never fail:
// unreachable hosts, malformed payloads and missing page structure all
// collapse to an empty result, and per-item problems skip only that item.
// The caller decides between "unsupported provider" and "supported but
// empty" by whether a parser matched the URL at all.
package provider

import (
	"context"
	"errors"
	"strings"
)

// ErrUnsupportedProvider indicates the URL matches no known provider.
var ErrUnsupportedProvider = errors.New("service not supported")

// RawTrack is a title/artist pair as read from a provider payload, before
// normalization.
type RawTrack struct {
	Title  string
	Artist string
}

// Parser extracts raw tracks from a provider URL.
type Parser interface {
	// Name identifies the provider in logs.
	Name() string
	// Matches reports whether this parser handles the given URL.
	Matches(rawURL string) bool
	// Parse fetches and extracts tracks. It never returns an error; any
	// failure yields an empty slice.
	Parse(ctx context.Context, rawURL string) []RawTrack
}

// Registry holds the known parsers and dispatches on URL.
type Registry struct {
	parsers []Parser
}

// NewRegistry builds a registry with the default provider set.
func NewRegistry(client *Client) *Registry {
	return &Registry{
		parsers: []Parser{
			NewSpotifyParser(client),
			NewDeezerParser(client),
			NewAppleMusicParser(client),
		},
	}
}

// Lookup returns the parser responsible for the URL, or
// ErrUnsupportedProvider when none matches.
func (r *Registry) Lookup(rawURL string) (Parser, error) {
	for _, p := range r.parsers {
		if p.Matches(rawURL) {
			return p, nil
		}
	}
	return nil, ErrUnsupportedProvider
}

// hostContains reports whether the URL mentions the given domain. Matching
// is deliberately loose, mirroring how links are pasted in the wild
// (mobile hosts, locale prefixes, share redirects).
func hostContains(rawURL, domain string) bool {
	return strings.Contains(rawURL, domain)
}
