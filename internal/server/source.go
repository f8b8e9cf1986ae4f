package server

import (
	"context"

	"github.com/Parallel-SEKAI/kanade/internal/infrastructure/monitoring"
	"github.com/Parallel-SEKAI/kanade/internal/logging"
	"github.com/Parallel-SEKAI/kanade/internal/script/manager"
	"github.com/Parallel-SEKAI/kanade/internal/source"
)

// managedSource is a lazy Source backed by the script manager. The engine
// is fetched per call so a scan that resets engines is picked up
// transparently; an unconstructible engine degrades every operation to an
// empty result.
type managedSource struct {
	id      string
	name    string
	manager *manager.Manager
	metrics *monitoring.Metrics
	log     *logging.Logger
}

func (s *managedSource) ID() string   { return s.id }
func (s *managedSource) Name() string { return s.name }

func (s *managedSource) adapter(ctx context.Context) *source.ScriptSource {
	eng := s.manager.Engine(ctx, s.id)
	if eng == nil {
		return nil
	}
	return source.NewScriptSource(s.id, s.name, eng, s.log).WithObserver(s.metrics)
}

func (s *managedSource) Search(ctx context.Context, keyword string, page int) source.SearchResult {
	a := s.adapter(ctx)
	if a == nil {
		return source.SearchResult{}
	}
	return a.Search(ctx, keyword, page)
}

func (s *managedSource) GetHomeList(ctx context.Context, page int) source.SearchResult {
	a := s.adapter(ctx)
	if a == nil {
		return source.SearchResult{}
	}
	return a.GetHomeList(ctx, page)
}

func (s *managedSource) GetPlayURL(ctx context.Context, musicID string) string {
	a := s.adapter(ctx)
	if a == nil {
		return ""
	}
	return a.GetPlayURL(ctx, musicID)
}

func (s *managedSource) GetLyrics(ctx context.Context, musicID string) *string {
	a := s.adapter(ctx)
	if a == nil {
		return nil
	}
	return a.GetLyrics(ctx, musicID)
}

func (s *managedSource) GetMusicListByIDs(ctx context.Context, ids []string) []source.Music {
	a := s.adapter(ctx)
	if a == nil {
		return nil
	}
	return a.GetMusicListByIDs(ctx, ids)
}
