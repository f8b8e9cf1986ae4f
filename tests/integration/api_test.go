//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parallel-SEKAI/kanade/internal/infrastructure/config"
	"github.com/Parallel-SEKAI/kanade/internal/logging"
	"github.com/Parallel-SEKAI/kanade/internal/server"
	"github.com/Parallel-SEKAI/kanade/internal/settings"
)

const demoScript = `/**
 * @MusicSource
 * {
 *   "id": "demo",
 *   "name": "Demo",
 *   "version": "1.0",
 *   "author": "integration",
 *   "configs": [{"key": "token", "label": "Token", "type": "string", "default": ""}]
 * }
 */
var token = "";
function init(config) { if (config && config.token) { token = config.token; } }
function search(keyword, page) {
	return [{id: "1", title: keyword + " result", artist: "A", duration: 120}];
}
function getMediaUrl(id) { return {url: "http://cdn.local/" + id + ".mp3", format: "mp3"}; }
function getLyrics(id) { return "[00:01.00]first line of song\n[00:05.00]second line"; }
`

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demo.js"), []byte(demoScript), 0o644))

	cfg := config.Default()
	cfg.Scripts.Dir = dir
	cfg.Scripts.SettingsPath = filepath.Join(t.TempDir(), "settings.json")
	cfg.Logging.Development = false

	store, err := settings.Open(cfg.Scripts.SettingsPath)
	require.NoError(t, err)

	srv, err := server.New(*cfg, logging.NewNop(), store)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, dir
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthAndCatalog(t *testing.T) {
	ts, _ := newTestServer(t)

	var health map[string]interface{}
	code := getJSON(t, ts.URL+"/health", &health)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, float64(1), health["sources"])

	var catalog struct {
		Sources []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"sources"`
		Count int `json:"count"`
	}
	code = getJSON(t, ts.URL+"/sources", &catalog)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, catalog.Count)
	assert.Equal(t, "demo", catalog.Sources[0].ID)
}

func TestSearchAndTrack(t *testing.T) {
	ts, _ := newTestServer(t)

	var result struct {
		Items []struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Duration int64  `json:"duration"`
			SourceID string `json:"sourceId"`
		} `json:"items"`
	}
	code := getJSON(t, ts.URL+"/sources/demo/search?q=hello", &result)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "hello result", result.Items[0].Title)
	assert.Equal(t, int64(120000), result.Items[0].Duration)
	assert.Equal(t, "demo", result.Items[0].SourceID)

	// Aggregate search goes through the same source.
	code = getJSON(t, ts.URL+"/search?q=hello", &result)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, result.Items, 1)

	var track map[string]string
	code = getJSON(t, ts.URL+"/sources/demo/tracks/1/url", &track)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "http://cdn.local/1.mp3", track["url"])
}

func TestLyricsParsed(t *testing.T) {
	ts, _ := newTestServer(t)

	var raw map[string]string
	code := getJSON(t, ts.URL+"/sources/demo/tracks/1/lyrics", &raw)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, raw["raw"], "first line of song")

	var doc struct {
		Lines []struct {
			StartTime int64  `json:"startTime"`
			EndTime   int64  `json:"endTime"`
			Content   string `json:"content"`
		} `json:"lines"`
	}
	code = getJSON(t, ts.URL+"/sources/demo/tracks/1/lyrics?parse=true", &doc)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, doc.Lines, 2)
	assert.Equal(t, int64(1000), doc.Lines[0].StartTime)
	assert.Equal(t, int64(5000), doc.Lines[0].EndTime)
	assert.Equal(t, "first line of song", doc.Lines[0].Content)

	var split struct {
		Lines []struct {
			Content string `json:"content"`
			Split   *struct {
				First  string `json:"first"`
				Second string `json:"second"`
			} `json:"split"`
		} `json:"lines"`
	}
	code = getJSON(t, ts.URL+"/sources/demo/tracks/1/lyrics?parse=true&split=true", &split)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, split.Lines, 2)
	require.NotNil(t, split.Lines[0].Split)
	assert.NotEmpty(t, split.Lines[0].Split.First)
	assert.NotEmpty(t, split.Lines[0].Split.Second)
}

func TestSourceConfig(t *testing.T) {
	ts, _ := newTestServer(t)

	body := bytes.NewBufferString(`{"token": "abc123"}`)
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/sources/demo/config", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg struct {
		Configs []struct {
			Key string `json:"key"`
		} `json:"configs"`
		Values map[string]string `json:"values"`
	}
	code := getJSON(t, ts.URL+"/sources/demo/config", &cfg)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, cfg.Configs, 1)
	assert.Equal(t, "token", cfg.Configs[0].Key)
	assert.Equal(t, "abc123", cfg.Values["token"])
}

func TestImportScanDelete(t *testing.T) {
	ts, _ := newTestServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "extra.js")
	require.NoError(t, err)
	extra := `/**
 * @MusicSource
 * {"id": "extra", "name": "Extra", "version": "1.0", "author": "t"}
 */
function search() { return []; }
`
	_, err = io.WriteString(part, extra)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := http.Post(ts.URL+"/sources/import", w.FormDataContentType(), &buf)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Import does not rescan; the catalog grows only after /sources/scan.
	var catalog struct {
		Count int `json:"count"`
	}
	getJSON(t, ts.URL+"/sources", &catalog)
	assert.Equal(t, 1, catalog.Count)

	resp, err = http.Post(ts.URL+"/sources/scan", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getJSON(t, ts.URL+"/sources", &catalog)
	require.Equal(t, 2, catalog.Count)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/sources/extra", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getJSON(t, ts.URL+"/sources", &catalog)
	assert.Equal(t, 1, catalog.Count)
}

func TestUnknownSource(t *testing.T) {
	ts, _ := newTestServer(t)

	code := getJSON(t, ts.URL+"/sources/ghost/search?q=x", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
