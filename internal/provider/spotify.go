package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"
)

// SpotifyParser scrapes the Spotify embed page. The embed variant of a
// playlist or album page ships its full state as JSON inside a
// script#__NEXT_DATA__ tag, which spares us the official API and its
// credentials.
type SpotifyParser struct {
	client *Client
}

// NewSpotifyParser creates a Spotify embed-page parser.
func NewSpotifyParser(client *Client) *SpotifyParser {
	return &SpotifyParser{client: client}
}

func (p *SpotifyParser) Name() string { return "spotify" }

func (p *SpotifyParser) Matches(rawURL string) bool {
	return hostContains(rawURL, "spotify.com")
}

// spotifyPageData mirrors the slice of the __NEXT_DATA__ payload we care
// about. Anything missing decodes to its zero value, which downstream
// reads as "no data".
type spotifyPageData struct {
	Props struct {
		PageProps struct {
			State struct {
				Data struct {
					Entity spotifyEntity `json:"entity"`
				} `json:"data"`
			} `json:"state"`
		} `json:"pageProps"`
	} `json:"props"`
}

type spotifyEntity struct {
	TrackList []spotifyTrackItem `json:"trackList"`
	Artists   []spotifyArtist    `json:"artists"`
}

type spotifyTrackItem struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

type spotifyArtist struct {
	Name string `json:"name"`
}

// Parse fetches the embed page and extracts its track list.
func (p *SpotifyParser) Parse(ctx context.Context, rawURL string) []RawTrack {
	embedURL := rawURL
	if strings.Contains(rawURL, "open.spotify.com") && !strings.Contains(rawURL, "embed") {
		embedURL = strings.Replace(rawURL, "open.spotify.com", "open.spotify.com/embed", 1)
	}

	doc, err := p.client.FetchDocument(ctx, embedURL)
	if err != nil {
		p.client.logger.WithError(err).WithField("url", embedURL).Warn("Spotify embed page fetch failed")
		return nil
	}

	payload := doc.Find("script#__NEXT_DATA__").Text()
	if payload == "" {
		p.client.logger.WithField("url", embedURL).Warn("Spotify embed page has no __NEXT_DATA__ script")
		return nil
	}

	var data spotifyPageData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		p.client.logger.WithError(err).Warn("Spotify page state is not valid JSON")
		return nil
	}

	entity := data.Props.PageProps.State.Data.Entity

	// Album pages carry the artist once at entity level; per-item subtitles
	// may then be absent.
	entityArtist := ""
	if len(entity.Artists) > 0 {
		entityArtist = entity.Artists[0].Name
	}

	var tracks []RawTrack
	for _, item := range entity.TrackList {
		if item.Title == "" {
			continue
		}

		artist := item.Subtitle
		if artist == "" {
			artist = entityArtist
		}
		// Spotify renders artist separators with non-breaking spaces.
		artist = strings.ReplaceAll(artist, "\u00a0", " ")

		tracks = append(tracks, RawTrack{Title: item.Title, Artist: artist})
	}

	p.client.logger.WithFields(logrus.Fields{
		"url":    rawURL,
		"tracks": len(tracks),
	}).Debug("Spotify parse complete")

	return tracks
}
