package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applePage(serverData string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html><body>
<script id="serialized-server-data" type="application/json">%s</script>
</body></html>`, serverData)
}

func appleLDPage(ldJSON string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html><head>
<script type="application/ld+json">%s</script>
</head><body></body></html>`, ldJSON)
}

const appleSections = `[{"data":{"sections":[
	{"items":[
		{"title":"One More Time","artistName":"Daft Punk"},
		{"title":"No Artist","artistName":""},
		{"title":"","artistName":"Nobody"}
	]},
	{"other":"section without items"},
	{"items":[{"title":"Veridis Quo","artistName":"Daft Punk"}]}
]}}]`

func TestAppleMusicParseServerData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, applePage(appleSections))
	}))
	defer server.Close()

	parser := NewAppleMusicParser(newTestClient())
	tracks := parser.Parse(context.Background(), server.URL)

	require.Len(t, tracks, 2)
	assert.Equal(t, RawTrack{Title: "One More Time", Artist: "Daft Punk"}, tracks[0])
	assert.Equal(t, RawTrack{Title: "Veridis Quo", Artist: "Daft Punk"}, tracks[1])
}

func TestAppleMusicParsePercentEncodedServerData(t *testing.T) {
	encoded := url.PathEscape(appleSections)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, applePage(encoded))
	}))
	defer server.Close()

	parser := NewAppleMusicParser(newTestClient())
	tracks := parser.Parse(context.Background(), server.URL)

	require.Len(t, tracks, 2)
	assert.Equal(t, "One More Time", tracks[0].Title)
}

func TestAppleMusicParseLinkedDataFallback(t *testing.T) {
	// No serialized-server-data script, so the parser re-fetches the page
	// and reads the structured data block instead.
	tests := []struct {
		name string
		ld   string
		want []RawTrack
	}{
		{
			name: "object with tracks and byArtist objects",
			ld: `{"@type":"MusicPlaylist","tracks":[
				{"name":"One More Time","byArtist":{"name":"Daft Punk"}},
				{"name":"Anonymous","byArtist":{}}
			]}`,
			want: []RawTrack{{Title: "One More Time", Artist: "Daft Punk"}},
		},
		{
			name: "one-element list with track and byArtist list",
			ld: `[{"@type":"MusicAlbum","track":[
				{"name":"Aerodynamic","byArtist":[{"name":"Daft Punk"},{"name":"Someone Else"}]}
			]}]`,
			want: []RawTrack{{Title: "Aerodynamic", Artist: "Daft Punk"}},
		},
		{
			name: "structured data without tracks",
			ld:   `{"@type":"MusicGroup","name":"Daft Punk"}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, appleLDPage(tt.ld))
			}))
			defer server.Close()

			parser := NewAppleMusicParser(newTestClient())
			tracks := parser.Parse(context.Background(), server.URL)
			assert.Equal(t, tt.want, tracks)
		})
	}
}

func TestAppleMusicParseFailures(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		parser := NewAppleMusicParser(newTestClient())
		assert.Empty(t, parser.Parse(context.Background(), server.URL))
	})

	t.Run("page with neither script", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html><body>nothing</body></html>`)
		}))
		defer server.Close()

		parser := NewAppleMusicParser(newTestClient())
		assert.Empty(t, parser.Parse(context.Background(), server.URL))
	})

	t.Run("server data is garbage", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, applePage(`not json at all`))
		}))
		defer server.Close()

		parser := NewAppleMusicParser(newTestClient())
		assert.Empty(t, parser.Parse(context.Background(), server.URL))
	})

	t.Run("linked data is garbage", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, appleLDPage(`{{{{`))
		}))
		defer server.Close()

		parser := NewAppleMusicParser(newTestClient())
		assert.Empty(t, parser.Parse(context.Background(), server.URL))
	})
}

func TestArtistName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "object", raw: `{"name":"Daft Punk"}`, want: "Daft Punk"},
		{name: "list takes first", raw: `[{"name":"First"},{"name":"Second"}]`, want: "First"},
		{name: "empty list", raw: `[]`, want: ""},
		{name: "empty object", raw: `{}`, want: ""},
		{name: "absent", raw: ``, want: ""},
		{name: "wrong type", raw: `42`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw []byte
			if tt.raw != "" {
				raw = []byte(tt.raw)
			}
			assert.Equal(t, tt.want, artistName(raw))
		})
	}
}
