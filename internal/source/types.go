package source

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// Music is the host-side model for one track as reported by a source.
// Duration is in milliseconds.
type Music struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Artists  []string `json:"artists"`
	Album    string   `json:"album"`
	CoverURL string   `json:"coverUrl"`
	MediaURI string   `json:"mediaUri"`
	Duration int64    `json:"duration"`
	SourceID string   `json:"sourceId"`
	Lyrics   string   `json:"lyrics,omitempty"`
}

// GlobalID serializes the cross-source unique key for this track.
func (m Music) GlobalID() string {
	return m.SourceID + ":" + m.ID
}

// SplitGlobalID splits "sourceId:id" back into its parts. The id part may
// itself contain colons.
func SplitGlobalID(global string) (sourceID, id string, err error) {
	i := strings.Index(global, ":")
	if i <= 0 || i == len(global)-1 {
		return "", "", fmt.Errorf("malformed global id: %q", global)
	}
	return global[:i], global[i+1:], nil
}

// SearchResult is one page of tracks plus the total match count when the
// source reports one. Total is 0 when unknown.
type SearchResult struct {
	Items []Music `json:"items"`
	Total int     `json:"total"`
}

// PlayURL is a resolved playable location for one track.
type PlayURL struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

// scriptMusic is the loosely typed shape scripts return. Scripts are
// inconsistent about numeric vs string ids and field naming, so decoding
// is forgiving.
type scriptMusic struct {
	ID       flexString `json:"id"`
	Title    string     `json:"title"`
	Name     string     `json:"name"`
	Artist   string     `json:"artist"`
	Artists  []string   `json:"artists"`
	Album    string     `json:"album"`
	CoverURL string     `json:"coverUrl"`
	PicURL   string     `json:"picUrl"`
	Duration int64      `json:"duration"`
}

func (s scriptMusic) toMusic(sourceID string) Music {
	title := s.Title
	if title == "" {
		title = s.Name
	}
	artists := s.Artists
	if len(artists) == 0 && s.Artist != "" {
		artists = strings.Split(s.Artist, "/")
		for i := range artists {
			artists[i] = strings.TrimSpace(artists[i])
		}
	}
	cover := s.CoverURL
	if cover == "" {
		cover = s.PicURL
	}
	// Scripts report duration in seconds.
	duration := s.Duration * 1000
	return Music{
		ID:       string(s.ID),
		Title:    title,
		Artists:  artists,
		Album:    s.Album,
		CoverURL: cover,
		Duration: duration,
		SourceID: sourceID,
	}
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.TrimSpace(string(data)))
	return nil
}
