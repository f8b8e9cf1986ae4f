package source

import (
	"context"
	"errors"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/Parallel-SEKAI/kanade/internal/logging"
	"github.com/Parallel-SEKAI/kanade/internal/script/engine"
)

// Script function names making up the conventional source contract.
// Scripts may implement any subset; missing functions degrade to empty
// results.
const (
	fnSearch         = "search"
	fnGetHomeList    = "getHomeList"
	fnGetMediaURL    = "getMediaUrl"
	fnGetLyrics      = "getLyrics"
	fnGetMusicByIDs  = "getMusicListByIds"
	fnGetMusicDetail = "getMusicInfo"
)

// Observer receives the outcome of every sandbox call before the adapter
// degrades it.
type Observer interface {
	RecordScriptCall(source, method string, err error, timedOut bool)
}

// ScriptSource adapts one script engine to the Source contract.
type ScriptSource struct {
	id     string
	name   string
	engine *engine.Engine
	log    *logging.Logger
	obs    Observer
}

// NewScriptSource wraps an engine. The engine must already be initialized.
func NewScriptSource(id, name string, eng *engine.Engine, log *logging.Logger) *ScriptSource {
	return &ScriptSource{
		id:     id,
		name:   name,
		engine: eng,
		log:    log.Named("source." + id),
	}
}

// WithObserver attaches a call observer.
func (s *ScriptSource) WithObserver(obs Observer) *ScriptSource {
	s.obs = obs
	return s
}

func (s *ScriptSource) call(ctx context.Context, method string, args ...interface{}) (string, error) {
	raw, err := s.engine.CallAsync(ctx, "", method, args...)
	if s.obs != nil {
		s.obs.RecordScriptCall(s.id, method, err, errors.Is(err, engine.ErrTimeout))
	}
	return raw, err
}

func (s *ScriptSource) ID() string   { return s.id }
func (s *ScriptSource) Name() string { return s.name }

// Search invokes the script's search function. Any failure or a "null"
// result yields an empty result.
func (s *ScriptSource) Search(ctx context.Context, keyword string, page int) SearchResult {
	raw, err := s.call(ctx, fnSearch, keyword, page)
	if err != nil {
		s.log.Debug("search failed", zap.String("keyword", keyword), zap.Error(err))
		return SearchResult{}
	}
	return s.decodeList(raw)
}

// GetHomeList invokes the script's home page function.
func (s *ScriptSource) GetHomeList(ctx context.Context, page int) SearchResult {
	raw, err := s.call(ctx, fnGetHomeList, page)
	if err != nil {
		s.log.Debug("home list failed", zap.Error(err))
		return SearchResult{}
	}
	return s.decodeList(raw)
}

// GetPlayURL resolves a playable URL for one track, or "" on failure.
func (s *ScriptSource) GetPlayURL(ctx context.Context, musicID string) string {
	raw, err := s.call(ctx, fnGetMediaURL, musicID)
	if err != nil {
		s.log.Debug("media url failed", zap.String("musicId", musicID), zap.Error(err))
		return ""
	}
	if isNullPayload(raw) {
		return ""
	}

	var play PlayURL
	if err := sonic.UnmarshalString(raw, &play); err != nil {
		s.log.Debug("media url undecodable", zap.Error(err))
		return ""
	}
	return play.URL
}

// GetLyrics fetches raw lyric text for one track. The script's return is
// a JSON-stringified string; if decoding fails the raw text is used as
// is. Returns nil on any failure, which callers treat as "no lyrics".
func (s *ScriptSource) GetLyrics(ctx context.Context, musicID string) *string {
	raw, err := s.call(ctx, fnGetLyrics, musicID)
	if err != nil {
		s.log.Debug("lyrics failed", zap.String("musicId", musicID), zap.Error(err))
		return nil
	}
	if isNullPayload(raw) {
		return nil
	}

	var text string
	if err := sonic.UnmarshalString(raw, &text); err != nil {
		text = raw
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &text
}

// GetMusicListByIDs resolves tracks by id via the script's batch lookup.
// If the batch call fails and exactly one id was requested, falls back to
// the single-item detail function before giving up.
func (s *ScriptSource) GetMusicListByIDs(ctx context.Context, ids []string) []Music {
	if len(ids) == 0 {
		return nil
	}

	raw, err := s.call(ctx, fnGetMusicByIDs, ids)
	if err == nil && !isNullPayload(raw) {
		return s.decodeList(raw).Items
	}

	if len(ids) != 1 {
		s.log.Debug("batch lookup failed", zap.Int("ids", len(ids)), zap.Error(err))
		return nil
	}

	raw, err = s.call(ctx, fnGetMusicDetail, ids[0])
	if err != nil || isNullPayload(raw) {
		s.log.Debug("detail lookup failed", zap.String("id", ids[0]), zap.Error(err))
		return nil
	}

	var item scriptMusic
	if err := sonic.UnmarshalString(raw, &item); err != nil {
		s.log.Debug("detail undecodable", zap.Error(err))
		return nil
	}
	return []Music{item.toMusic(s.id)}
}

// decodeList accepts either a bare array of items or an envelope object
// with items plus an optional total.
func (s *ScriptSource) decodeList(raw string) SearchResult {
	if isNullPayload(raw) {
		return SearchResult{}
	}

	var items []scriptMusic
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") {
		if err := sonic.UnmarshalString(raw, &items); err != nil {
			s.log.Debug("list undecodable", zap.Error(err))
			return SearchResult{}
		}
		return s.collect(items, len(items))
	}

	var envelope struct {
		Items []scriptMusic `json:"items"`
		Total int           `json:"total"`
	}
	if err := sonic.UnmarshalString(raw, &envelope); err != nil {
		s.log.Debug("envelope undecodable", zap.Error(err))
		return SearchResult{}
	}
	total := envelope.Total
	if total == 0 {
		total = len(envelope.Items)
	}
	return s.collect(envelope.Items, total)
}

func (s *ScriptSource) collect(items []scriptMusic, total int) SearchResult {
	out := SearchResult{Total: total}
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		out.Items = append(out.Items, item.toMusic(s.id))
	}
	return out
}

func isNullPayload(raw string) bool {
	t := strings.TrimSpace(raw)
	return t == "" || t == "null" || t == `"null"` || t == "undefined"
}
