package provider

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// AppleMusicParser handles Apple Music links in two stages. Embed pages
// carry a percent-encoded JSON blob in script#serialized-server-data; when
// that tag is missing (public pages, some locales) we fall back to the
// public page's schema.org ld+json block.
type AppleMusicParser struct {
	client *Client
}

// NewAppleMusicParser creates an Apple Music page parser.
func NewAppleMusicParser(client *Client) *AppleMusicParser {
	return &AppleMusicParser{client: client}
}

func (p *AppleMusicParser) Name() string { return "applemusic" }

func (p *AppleMusicParser) Matches(rawURL string) bool {
	return hostContains(rawURL, "apple.com")
}

// appleServerData is the serialized-server-data payload, a one-element
// array whose sections hold the visible track rows.
type appleServerData struct {
	Data struct {
		Sections []struct {
			Items []struct {
				Title      string `json:"title"`
				ArtistName string `json:"artistName"`
			} `json:"items"`
		} `json:"sections"`
	} `json:"data"`
}

// appleLinkedData is the ld+json fallback shape. Playlists use "tracks",
// albums "track"; byArtist is an object or a list depending on page age.
type appleLinkedData struct {
	Tracks []appleLDTrack `json:"tracks"`
	Track  []appleLDTrack `json:"track"`
}

type appleLDTrack struct {
	Name     string          `json:"name"`
	ByArtist json.RawMessage `json:"byArtist"`
}

// Parse runs the embed-page stage and falls back to the public page when
// the serialized state script is absent.
func (p *AppleMusicParser) Parse(ctx context.Context, rawURL string) []RawTrack {
	doc, err := p.client.FetchDocument(ctx, rawURL)
	if err != nil {
		p.client.logger.WithError(err).WithField("url", rawURL).Warn("Apple Music page fetch failed")
		return nil
	}

	payload := doc.Find("script#serialized-server-data").Text()
	if payload == "" {
		return p.parsePublicPage(ctx, rawURL)
	}

	return p.parseServerData(payload)
}

// parseServerData decodes the embedded state blob. The payload is usually
// percent-encoded but sometimes arrives as plain JSON, so decode failure
// falls back to the raw string.
func (p *AppleMusicParser) parseServerData(payload string) []RawTrack {
	decoded, err := url.PathUnescape(payload)
	if err != nil {
		decoded = payload
	}

	var pages []appleServerData
	if err := json.Unmarshal([]byte(decoded), &pages); err != nil {
		if err := json.Unmarshal([]byte(payload), &pages); err != nil {
			p.client.logger.WithError(err).Warn("Apple Music server data is not valid JSON")
			return nil
		}
	}
	if len(pages) == 0 {
		return nil
	}

	var tracks []RawTrack
	for _, section := range pages[0].Data.Sections {
		for _, item := range section.Items {
			if item.Title == "" || item.ArtistName == "" {
				continue
			}
			tracks = append(tracks, RawTrack{Title: item.Title, Artist: item.ArtistName})
		}
	}

	p.client.logger.WithField("tracks", len(tracks)).Debug("Apple Music embed parse complete")
	return tracks
}

// parsePublicPage rewrites the embed host to the public one and reads the
// schema.org structured data block instead.
func (p *AppleMusicParser) parsePublicPage(ctx context.Context, rawURL string) []RawTrack {
	publicURL := strings.Replace(rawURL, "embed.music.apple.com", "music.apple.com", 1)

	doc, err := p.client.FetchDocument(ctx, publicURL)
	if err != nil {
		p.client.logger.WithError(err).WithField("url", publicURL).Warn("Apple Music public page fetch failed")
		return nil
	}

	payload := findLinkedData(doc)
	if payload == "" {
		p.client.logger.WithField("url", publicURL).Warn("Apple Music page has no structured data")
		return nil
	}

	ld, ok := decodeLinkedData([]byte(payload))
	if !ok {
		p.client.logger.Warn("Apple Music structured data is not valid JSON")
		return nil
	}

	trackList := ld.Tracks
	if len(trackList) == 0 {
		trackList = ld.Track
	}

	var tracks []RawTrack
	for _, t := range trackList {
		artist := artistName(t.ByArtist)
		if t.Name == "" || artist == "" {
			continue
		}
		tracks = append(tracks, RawTrack{Title: t.Name, Artist: artist})
	}

	p.client.logger.WithFields(logrus.Fields{
		"url":    publicURL,
		"tracks": len(tracks),
	}).Debug("Apple Music public parse complete")

	return tracks
}

// findLinkedData returns the first application/ld+json script body.
func findLinkedData(doc *goquery.Document) string {
	var payload string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		payload = s.Text()
		return false
	})
	return payload
}

// decodeLinkedData accepts the ld+json payload as a single object or a
// one-element list and normalizes to the object.
func decodeLinkedData(raw []byte) (appleLinkedData, bool) {
	var ld appleLinkedData
	if err := json.Unmarshal(raw, &ld); err == nil {
		return ld, true
	}

	var list []appleLinkedData
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0], true
	}

	return appleLinkedData{}, false
}

// artistName reads a byArtist value that is either a single object or a
// list; in the list case the first entry wins.
func artistName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var single struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &single); err == nil && single.Name != "" {
		return single.Name
	}

	var list []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0].Name
	}

	return ""
}
