package models

// Track represents a single entry extracted from a provider playlist.
// Query is the search string used to locate a playable stream and is
// derived once at construction; Track values are never mutated after that.
type Track struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Query  string `json:"query"`
}

// NewTrack builds a Track with its derived search query. The artist may be
// empty, which yields a query with a leading " - "; existing clients depend
// on that exact string, so it is kept as-is.
func NewTrack(title, artist string) Track {
	return Track{
		Title:  title,
		Artist: artist,
		Query:  artist + " - " + title,
	}
}

// ResolvedAudio is the outcome of resolving a search query against the
// video platform. RemoteURL is the upstream media URL; StreamURL is the
// same-origin relay path that embeds RemoteURL as an escaped query
// parameter, so the signed upstream URL is never handed out bare.
type ResolvedAudio struct {
	RemoteURL string `json:"audioUrl"`
	StreamURL string `json:"streamUrl"`
	SourceURL string `json:"sourceUrl,omitempty"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Duration  int    `json:"duration,omitempty"` // in seconds
}
