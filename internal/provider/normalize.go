package provider

import "tunelink/pkg/models"

// Normalize converts raw parser output into canonical tracks, deriving the
// search query for each. Items without a title are dropped; provider order
// is preserved and duplicates are kept.
func Normalize(raw []RawTrack) []models.Track {
	tracks := make([]models.Track, 0, len(raw))
	for _, r := range raw {
		if r.Title == "" {
			continue
		}
		tracks = append(tracks, models.NewTrack(r.Title, r.Artist))
	}
	return tracks
}
