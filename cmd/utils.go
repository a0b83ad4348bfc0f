package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/buildsight/fieldsearch/pkg/config"
	"github.com/buildsight/fieldsearch/pkg/realtime"
	"github.com/buildsight/fieldsearch/pkg/remote"
	"github.com/buildsight/fieldsearch/pkg/search"
	"github.com/buildsight/fieldsearch/pkg/storage"
	"github.com/buildsight/fieldsearch/pkg/suggest"
)

// openStore opens the sqlite store under the configured storage dir,
// creating the directory on first use.
func openStore(cfg *config.Config) (*storage.Store, error) {
	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	dbPath := filepath.Join(cfg.StorageDir, "fieldsearch.db")
	return storage.NewStore(dbPath,
		storage.WithCacheCapacity(cfg.Search.CacheCapacity),
		storage.WithHistoryCapacity(cfg.Search.HistoryCapacity),
	)
}

// buildOrchestrator wires the query pipeline from config. A nil hub is fine
// for one-shot commands; forceOffline pins the connectivity probe for the
// --offline flag.
func buildOrchestrator(cfg *config.Config, store *storage.Store, hub *realtime.Hub, forceOffline bool) *search.Orchestrator {
	client := remote.NewClient(cfg.Remote.Endpoint,
		remote.WithTimeout(cfg.Remote.Timeout.Duration),
		remote.WithLimit(cfg.Remote.Limit),
		remote.WithFuzzy(cfg.Remote.Fuzzy),
	)

	opts := []search.Option{
		search.WithDebounce(cfg.Search.DebounceWindow.Duration),
		search.WithRemoteTimeout(cfg.Remote.Timeout.Duration),
		search.WithMemoTTL(cfg.Search.MemoTTL.Duration),
	}
	if hub != nil {
		opts = append(opts, search.WithHub(hub))
	}
	if forceOffline {
		opts = append(opts, search.WithConnectivity(search.ConnectivityFunc(func() bool { return false })))
	}

	return search.NewOrchestrator(client, store, opts...)
}

// buildSuggester assembles the suggestion sources from config. The fan-out
// deadline matches the debounce window so suggestions never lag typing.
func buildSuggester(cfg *config.Config, store *storage.Store) *suggest.Aggregator {
	return suggest.NewAggregator(cfg.Suggest.Limit, cfg.Search.DebounceWindow.Duration,
		suggest.NewHistorySource(store),
		suggest.NewTrendingSource(cfg.Suggest.Trending),
		suggest.NewContextualSource(),
		suggest.NewLocationSource(),
	)
}
