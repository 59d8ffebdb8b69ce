// internal/discovery/service.go
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rovshanmuradov/pumpfleet/internal/utils/fileutil"
	"go.uber.org/zap"
)

const DefaultRankLimit = 100

type Config struct {
	Client       *Client
	Filter       *Filter
	ParsedPath   string
	RankedPath   string
	MinMarketCap float64
	MaxMarketCap float64
	Logger       *zap.Logger
}

// Service fetches token lists, filters them and writes the results to disk.
type Service struct {
	client     *Client
	filter     *Filter
	parsedPath string
	rankedPath string
	minCap     float64
	maxCap     float64
	logger     *zap.Logger
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Client == nil {
		return nil, errors.New("discovery client is required")
	}
	if cfg.MinMarketCap > cfg.MaxMarketCap {
		return nil, fmt.Errorf("min market cap %.0f exceeds max %.0f", cfg.MinMarketCap, cfg.MaxMarketCap)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:     cfg.Client,
		filter:     cfg.Filter,
		parsedPath: cfg.ParsedPath,
		rankedPath: cfg.RankedPath,
		minCap:     cfg.MinMarketCap,
		maxCap:     cfg.MaxMarketCap,
		logger:     logger.Named("discovery"),
	}, nil
}

// Ranked fetches the ranking, applies the filter and saves the result.
func (s *Service) Ranked(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRankLimit
	}
	entries, err := s.client.FetchRanked(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch ranked tokens: %w", err)
	}
	kept := FilterEntries(s.filter, entries)

	if err := save(s.rankedPath, kept); err != nil {
		return nil, err
	}
	s.logger.Info("Ranked tokens saved",
		zap.Int("fetched", len(entries)),
		zap.Int("kept", len(kept)),
		zap.String("path", s.rankedPath))
	return kept, nil
}

// Parse fetches the token list and keeps tokens inside the market cap band.
func (s *Service) Parse(ctx context.Context) ([]ParsedToken, error) {
	entries, err := s.client.FetchTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch tokens: %w", err)
	}
	tokens := FilterByMarketCap(entries, s.minCap, s.maxCap)
	tokens, err = FilterParsed(s.filter, tokens)
	if err != nil {
		return nil, fmt.Errorf("apply filter: %w", err)
	}

	if err := save(s.parsedPath, tokens); err != nil {
		return nil, err
	}
	s.logger.Info("Parsed tokens saved",
		zap.Int("fetched", len(entries)),
		zap.Int("kept", len(tokens)),
		zap.Float64("min_market_cap", s.minCap),
		zap.Float64("max_market_cap", s.maxCap),
		zap.String("path", s.parsedPath))
	return tokens, nil
}

func save(path string, v any) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	return nil
}

// cronParser accepts 5 or 6 field specs and descriptors like "@every 10m".
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule runs job on spec until ctx is cancelled. Overlapping runs are skipped.
func Schedule(ctx context.Context, spec string, logger *zap.Logger, job func(context.Context) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if err := job(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Scheduled discovery run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("register schedule %q: %w", spec, err)
	}

	c.Start()
	logger.Info("Discovery scheduler started", zap.String("schedule", spec))
	<-ctx.Done()

	// Stop возвращает контекст, который завершается после текущих задач.
	<-c.Stop().Done()
	logger.Info("Discovery scheduler stopped")
	return nil
}
