package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"
)

const deezerAPIBase = "https://api.deezer.com"

// deezerURLPattern extracts the entity kind and numeric ID from a Deezer
// link, e.g. https://www.deezer.com/en/playlist/908622995.
var deezerURLPattern = regexp.MustCompile(`/(playlist|album|track)/(\d+)`)

// DeezerParser reads track lists from the public Deezer JSON API, which
// needs no authentication for playlists, albums and single tracks.
type DeezerParser struct {
	client *Client

	// apiBase is swapped out in tests.
	apiBase string
}

// NewDeezerParser creates a Deezer API parser.
func NewDeezerParser(client *Client) *DeezerParser {
	return &DeezerParser{client: client, apiBase: deezerAPIBase}
}

func (p *DeezerParser) Name() string { return "deezer" }

func (p *DeezerParser) Matches(rawURL string) bool {
	return hostContains(rawURL, "deezer.com")
}

type deezerTrack struct {
	Title  string `json:"title"`
	Artist struct {
		Name string `json:"name"`
	} `json:"artist"`
}

// deezerEnvelope covers the three response shapes the API serves. Pointers
// distinguish "key absent" from "key present but empty", which drives the
// same priority order the shapes are documented in: tracks.data for
// playlists and albums, data for playlist-like lists, and the bare object
// itself for a single track.
type deezerEnvelope struct {
	Tracks *struct {
		Data []deezerTrack `json:"data"`
	} `json:"tracks"`
	Data *[]deezerTrack `json:"data"`
}

// Parse matches the entity type and ID out of the URL, then fetches and
// flattens the API response.
func (p *DeezerParser) Parse(ctx context.Context, rawURL string) []RawTrack {
	m := deezerURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil
	}
	kind, id := m[1], m[2]

	apiURL := fmt.Sprintf("%s/%s/%s", p.apiBase, kind, id)

	var body json.RawMessage
	if err := p.client.FetchJSON(ctx, apiURL, &body); err != nil {
		p.client.logger.WithError(err).WithField("url", apiURL).Warn("Deezer API request failed")
		return nil
	}

	var envelope deezerEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		p.client.logger.WithError(err).Warn("Deezer response is not the expected shape")
		return nil
	}

	var raw []deezerTrack
	switch {
	case envelope.Tracks != nil:
		raw = envelope.Tracks.Data
	case envelope.Data != nil:
		raw = *envelope.Data
	case kind == "track":
		var single deezerTrack
		if err := json.Unmarshal(body, &single); err == nil {
			raw = []deezerTrack{single}
		}
	}

	var tracks []RawTrack
	for _, t := range raw {
		if t.Title == "" || t.Artist.Name == "" {
			continue
		}
		tracks = append(tracks, RawTrack{Title: t.Title, Artist: t.Artist.Name})
	}

	p.client.logger.WithFields(logrus.Fields{
		"kind":   kind,
		"id":     id,
		"tracks": len(tracks),
	}).Debug("Deezer parse complete")

	return tracks
}
