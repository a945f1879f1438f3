package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pders01/newsd/internal/auth"
	"github.com/pders01/newsd/internal/config"
	"github.com/pders01/newsd/internal/feed"
	"github.com/pders01/newsd/internal/logging"
	"github.com/pders01/newsd/internal/news"
	"github.com/pders01/newsd/internal/provider"
	"github.com/pders01/newsd/internal/search"
	"github.com/pders01/newsd/internal/server"
	"github.com/pders01/newsd/internal/validation"
)

// stack is the assembled service: one cache shared by the HTTP API, the
// scheduler and the dashboard.
type stack struct {
	cfg       *config.Config
	registry  *provider.Registry
	cache     *feed.Cache
	index     *search.Index
	service   *news.Service
	scheduler *feed.Scheduler
	server    *server.Server
}

func buildStack(cfg *config.Config) (*stack, error) {
	registry, err := buildRegistry(cfg.Provider)
	if err != nil {
		return nil, err
	}

	index, err := search.NewIndex()
	if err != nil {
		return nil, err
	}

	cache := feed.NewCache(registry,
		feed.WithTTL(cfg.Cache.TTL),
		feed.WithFetchTimeout(cfg.Cache.FetchTimeout),
		feed.WithMaxConcurrentFetches(cfg.Cache.MaxConcurrentFetches),
		feed.WithEmptyOnUpstreamFailure(cfg.Cache.EmptyOnUpstreamFailure),
		feed.WithListener(index.OnSnapshot),
	)

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
		logging.Warnf("auth.jwt_secret is not set; using a per-process secret, tokens end with this process")
	}
	tokens, err := auth.NewTokens(secret, cfg.Auth.TokenTTL)
	if err != nil {
		_ = index.Close()
		return nil, err
	}

	activity := news.NewActivityTracker(cfg.Cache.DefaultTopic)
	svc, err := news.NewService(news.Deps{
		Cache:              cache,
		Tokens:             tokens,
		Ranker:             index,
		Activity:           activity,
		DefaultPreferences: cfg.Users.DefaultPreferences,
		DefaultTopic:       cfg.Cache.DefaultTopic,
		BcryptCost:         cfg.Auth.BcryptCost,
	})
	if err != nil {
		_ = index.Close()
		return nil, err
	}

	srv, err := server.New(cfg.Server, svc)
	if err != nil {
		_ = index.Close()
		return nil, err
	}

	scheduler := feed.NewScheduler(cache, topicSource(cfg, activity), cfg.Scheduler.Interval)
	if cfg.Scheduler.Enabled {
		srv.SetScheduler(scheduler)
	}

	return &stack{
		cfg:       cfg,
		registry:  registry,
		cache:     cache,
		index:     index,
		service:   svc,
		scheduler: scheduler,
		server:    srv,
	}, nil
}

// topicSource picks what scheduled refreshes fetch.
func topicSource(cfg *config.Config, activity *news.ActivityTracker) feed.TopicSource {
	if cfg.Scheduler.Strategy == config.StrategyActiveUsers {
		return activity
	}
	return feed.FirstArticleTopics{Default: cfg.Cache.DefaultTopic}
}

// buildRegistry registers every configured upstream. With none configured
// the static demo provider keeps the service usable offline.
func buildRegistry(pc config.ProviderConfig) (*provider.Registry, error) {
	registry := provider.NewRegistry(pc.HTTPTimeout, pc.UserAgent)

	validator := validation.NewUpstreamURLValidator()
	if pc.AllowPrivateUpstreams {
		validator = validation.NewPermissiveUpstreamURLValidator()
	}

	if pc.NewsAPI.APIKey != "" {
		api, err := provider.NewNewsAPI(provider.NewsAPIOptions{
			APIKey:     pc.NewsAPI.APIKey,
			BaseURL:    pc.NewsAPI.BaseURL,
			Country:    pc.NewsAPI.Country,
			PageSize:   pc.NewsAPI.PageSize,
			Categories: pc.NewsAPI.Categories,
			Validator:  validator,
		}, registry.Client(), registry.UserAgent())
		if err != nil {
			return nil, err
		}
		registry.Register(api)
	}

	if pc.RSS.Enabled {
		feeds, err := provider.LoadTopicFeeds(pc.RSS.FeedsFile)
		if err != nil {
			return nil, err
		}
		registry.Register(provider.NewRSS(provider.RSSOptions{
			Feeds:        feeds,
			ItemsPerFeed: pc.RSS.ItemsPerFeed,
			Validator:    validator,
		}, registry.Client(), registry.UserAgent()))
	}

	if registry.Len() == 0 {
		logging.Warnf("no upstream configured; serving static demo headlines")
		registry.Register(provider.NewStatic())
	}

	for _, p := range registry.ListProviders() {
		logging.Infof("provider %s registered (priority %d)", p.Name(), p.Priority())
	}
	return registry, nil
}

// Run serves HTTP and, when enabled, runs the scheduler until ctx ends.
func (s *stack) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if s.cfg.Scheduler.Enabled {
		g.Go(func() error {
			logging.Debugf("scheduler strategy %s", s.cfg.Scheduler.Strategy)
			s.scheduler.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		if err := s.server.Run(gctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (s *stack) Close() {
	if err := s.index.Close(); err != nil {
		logging.Warnf("closing search index: %v", err)
	}
}
