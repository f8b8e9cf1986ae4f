package manager

import "testing"

const sampleScript = `/**
 * @MusicSource
 * {
 *   "id": "demo",
 *   "name": "Demo Source",
 *   "version": "1.2.0",
 *   "author": "someone",
 *   "configs": [
 *     {"key": "token", "label": "API Token", "type": "string", "default": ""},
 *     {"key": "quality", "label": "Quality", "type": "select", "default": "high", "options": ["low", "high"]}
 *   ]
 * }
 */
function search(keyword, page) { return []; }
`

func TestExtractManifest(t *testing.T) {
	m, err := ExtractManifest(sampleScript)
	if err != nil {
		t.Fatalf("ExtractManifest() error: %v", err)
	}
	if m.ID != "demo" {
		t.Errorf("ID = %q, want %q", m.ID, "demo")
	}
	if m.Name != "Demo Source" {
		t.Errorf("Name = %q, want %q", m.Name, "Demo Source")
	}
	if m.Version != "1.2.0" {
		t.Errorf("Version = %q, want %q", m.Version, "1.2.0")
	}
	if len(m.Configs) != 2 {
		t.Fatalf("len(Configs) = %d, want 2", len(m.Configs))
	}
	if m.Configs[1].Type != "select" || len(m.Configs[1].Options) != 2 {
		t.Errorf("Configs[1] = %+v, want select with 2 options", m.Configs[1])
	}
}

func TestExtractManifestNoDecoration(t *testing.T) {
	src := `/** @MusicSource
{"id": "plain", "name": "Plain", "version": "0.1", "author": "a"}
*/
`
	m, err := ExtractManifest(src)
	if err != nil {
		t.Fatalf("ExtractManifest() error: %v", err)
	}
	if m.ID != "plain" {
		t.Errorf("ID = %q, want %q", m.ID, "plain")
	}
}

func TestExtractManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no comment block", `function search() {}`},
		{"no marker", "/**\n * {\"id\": \"x\"}\n */"},
		{"invalid json", "/**\n * @MusicSource\n * {id: broken\n */"},
		{"missing id", "/**\n * @MusicSource\n * {\"name\": \"anon\"}\n */"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExtractManifest(tt.src); err == nil {
				t.Error("ExtractManifest() = nil error, want failure")
			}
		})
	}
}
