package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Parallel-SEKAI/kanade/internal/infrastructure/monitoring"
	"github.com/Parallel-SEKAI/kanade/internal/logging"
	"github.com/Parallel-SEKAI/kanade/internal/lyrics"
	"github.com/Parallel-SEKAI/kanade/internal/lyrics/split"
	"github.com/Parallel-SEKAI/kanade/internal/script/manager"
	"github.com/Parallel-SEKAI/kanade/internal/source"
)

// SettingsStore reads and writes saved per-script configuration values.
type SettingsStore interface {
	Get(scriptID string) map[string]string
	Set(scriptID string, config map[string]string) error
	Delete(scriptID string) error
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	manager  *manager.Manager
	registry *source.Registry
	settings SettingsStore
	metrics  *monitoring.Metrics
	log      *logging.Logger

	// rebuild refreshes the registry from the manager's catalog after a
	// scan or delete.
	rebuild func()
}

// NewHandlers creates the handler set.
func NewHandlers(mgr *manager.Manager, registry *source.Registry, settings SettingsStore, metrics *monitoring.Metrics, log *logging.Logger, rebuild func()) *Handlers {
	return &Handlers{
		manager:  mgr,
		registry: registry,
		settings: settings,
		metrics:  metrics,
		log:      log.Named("http"),
		rebuild:  rebuild,
	}
}

// Root handles the liveness check.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "kanade-source",
	})
}

// Health reports catalog health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"sources": len(h.registry.List()),
	})
}

// ListSources returns the scanned manifest catalog.
func (h *Handlers) ListSources(c *gin.Context) {
	manifests := h.manager.Manifests()
	c.JSON(http.StatusOK, gin.H{"sources": manifests, "count": len(manifests)})
}

// ScanSources rescans the script directory and rebuilds the source set.
func (h *Handlers) ScanSources(c *gin.Context) {
	manifests, err := h.manager.Scan()
	if err != nil {
		h.log.Error("scan failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.rebuild()
	h.metrics.SourcesInstalled.Set(float64(len(manifests)))
	c.JSON(http.StatusOK, gin.H{"sources": manifests, "count": len(manifests)})
}

// ImportSource accepts a multipart script upload and copies it into the
// script directory. The catalog is not rescanned automatically.
func (h *Handlers) ImportSource(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}

	stagingDir := filepath.Join(os.TempDir(), "kanade-import-"+uuid.NewString())
	if err := os.MkdirAll(stagingDir, 0o700); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer os.RemoveAll(stagingDir)

	staging := filepath.Join(stagingDir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, staging); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.manager.Import(staging); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": file.Filename})
}

// DeleteSource removes a script and its live state.
func (h *Handlers) DeleteSource(c *gin.Context) {
	id := c.Param("id")
	if err := h.manager.Delete(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.registry.Remove(id)
	if err := h.settings.Delete(id); err != nil {
		h.log.Warn("settings cleanup failed", zap.String("id", id), zap.Error(err))
	}
	h.metrics.SourcesInstalled.Set(float64(len(h.registry.List())))
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// GetSourceConfig returns one source's config schema and saved values.
func (h *Handlers) GetSourceConfig(c *gin.Context) {
	id := c.Param("id")
	manifest := h.manager.Manifest(id)
	if manifest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown source: " + id})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"configs": manifest.Configs,
		"values":  h.settings.Get(id),
	})
}

// SetSourceConfig replaces one source's saved config values. New values
// take effect when the script is next initialized, i.e. after a scan.
func (h *Handlers) SetSourceConfig(c *gin.Context) {
	id := c.Param("id")
	if h.manager.Manifest(id) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown source: " + id})
		return
	}

	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a string map"})
		return
	}
	if err := h.settings.Set(id, values); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": id})
}

// SearchSource searches one source.
func (h *Handlers) SearchSource(c *gin.Context) {
	src, ok := h.lookupSource(c)
	if !ok {
		return
	}
	keyword := c.Query("q")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q parameter"})
		return
	}
	result := src.Search(c.Request.Context(), keyword, queryPage(c))
	c.JSON(http.StatusOK, result)
}

// HomeSource returns one source's browse page.
func (h *Handlers) HomeSource(c *gin.Context) {
	src, ok := h.lookupSource(c)
	if !ok {
		return
	}
	browser, ok := src.(source.Browser)
	if !ok {
		c.JSON(http.StatusOK, source.SearchResult{})
		return
	}
	c.JSON(http.StatusOK, browser.GetHomeList(c.Request.Context(), queryPage(c)))
}

// TrackURL resolves the playable URL for one track.
func (h *Handlers) TrackURL(c *gin.Context) {
	src, ok := h.lookupSource(c)
	if !ok {
		return
	}
	url := src.GetPlayURL(c.Request.Context(), c.Param("trackId"))
	if url == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no playable url"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// TrackLyrics fetches lyrics for one track. With parse=true the raw text
// is parsed into structured lines; with split=true each parsed line also
// carries a suggested two-line split when one scores well enough.
func (h *Handlers) TrackLyrics(c *gin.Context) {
	src, ok := h.lookupSource(c)
	if !ok {
		return
	}
	raw := src.GetLyrics(c.Request.Context(), c.Param("trackId"))
	if raw == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no lyrics available"})
		return
	}

	if c.Query("parse") != "true" {
		c.JSON(http.StatusOK, gin.H{"raw": *raw})
		return
	}

	doc := lyrics.Parse(*raw)
	if c.Query("split") != "true" {
		c.JSON(http.StatusOK, doc)
		return
	}

	type splitLine struct {
		lyrics.Line
		Split *split.Result `json:"split,omitempty"`
	}
	lines := make([]splitLine, len(doc.Lines))
	for i, line := range doc.Lines {
		lines[i] = splitLine{Line: line, Split: split.Split(line)}
	}
	c.JSON(http.StatusOK, gin.H{"metadata": doc.Metadata, "lines": lines})
}

// SearchAll searches every installed source and merges the results.
func (h *Handlers) SearchAll(c *gin.Context) {
	keyword := c.Query("q")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q parameter"})
		return
	}
	c.JSON(http.StatusOK, h.registry.SearchAll(c.Request.Context(), keyword, queryPage(c)))
}

func (h *Handlers) lookupSource(c *gin.Context) (source.Source, bool) {
	id := c.Param("id")
	src := h.registry.Get(id)
	if src == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown source: " + id})
		return nil, false
	}
	return src, true
}

func queryPage(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
