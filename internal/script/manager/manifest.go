package manager

import (
	"errors"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
)

// Manifest is the metadata block each source script embeds in a leading
// documentation comment. It is parsed once per file and immutable after.
type Manifest struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Version     string       `json:"version"`
	Author      string       `json:"author"`
	Description string       `json:"description,omitempty"`
	Configs     []ConfigItem `json:"configs,omitempty"`
}

// ConfigItem declares one user-configurable value. Values are stored and
// transported as strings and interpreted per Type by the consumer.
type ConfigItem struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Type    string   `json:"type"` // string, number, boolean, select
	Default string   `json:"default"`
	Options []string `json:"options,omitempty"`
}

const manifestMarker = "@MusicSource"

var (
	manifestBlockRe = regexp.MustCompile(`(?s)/\*\*.*?` + manifestMarker + `(.*?)\*/`)

	errNoManifest  = errors.New("manifest block not found")
	errManifestID  = errors.New("manifest missing id")
	errManifestBad = errors.New("manifest is not valid JSON")
)

// ExtractManifest locates the tagged documentation-comment block in a
// script's source, strips per-line comment decoration, and parses the
// remaining text as JSON.
func ExtractManifest(source string) (*Manifest, error) {
	m := manifestBlockRe.FindStringSubmatch(source)
	if m == nil {
		return nil, errNoManifest
	}

	var b strings.Builder
	for _, line := range strings.Split(m[1], "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "*")
		b.WriteString(strings.TrimSpace(line))
		b.WriteByte('\n')
	}

	var manifest Manifest
	if err := sonic.UnmarshalString(strings.TrimSpace(b.String()), &manifest); err != nil {
		return nil, errManifestBad
	}
	if manifest.ID == "" {
		return nil, errManifestID
	}
	return &manifest, nil
}
