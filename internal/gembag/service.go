package gembag

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gm-shop/gm_shop/internal/config"
	"github.com/gm-shop/gm_shop/internal/inventory"
)

// Request is a bag request. Zero MinTypes falls back to the shop's
// min_gem_types; zero MaxTypes allows every eligible type.
type Request struct {
	Target       decimal.Decimal `json:"target"`
	MinTypes     int             `json:"minTypes"`
	MaxTypes     int             `json:"maxTypes"`
	MinBaseValue *float64        `json:"minBaseValue"`
	MaxBaseValue *float64        `json:"maxBaseValue"`
}

// Service builds bags from the live shop gem table.
type Service struct {
	settings *config.Settings
	store    inventory.Store
	logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService constructs a gem bag service. A nil rng is seeded from the clock.
func NewService(settings *config.Settings, store inventory.Store, rng *rand.Rand, logger *slog.Logger) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{settings: settings, store: store, rng: rng, logger: logger}
}

// Preview builds a bag without touching any inventory.
func (s *Service) Preview(_ context.Context, req Request) (Result, error) {
	shop := s.settings.Get()
	opts := Options{
		Target:       req.Target.InexactFloat64(),
		Types:        shop.GemBaseValues,
		Sizes:        shop.GemSizes,
		MinTypes:     req.MinTypes,
		MaxTypes:     req.MaxTypes,
		MinBaseValue: req.MinBaseValue,
		MaxBaseValue: req.MaxBaseValue,
	}
	if opts.MinTypes == 0 {
		opts.MinTypes = shop.MinGemTypes
	}

	s.mu.Lock()
	res, err := FindOptimal(s.rng, opts)
	s.mu.Unlock()
	if err != nil {
		return Result{}, err
	}
	s.logger.Debug("gem bag built",
		slog.Float64("target", res.TargetValue),
		slog.Float64("achieved", res.TotalValue),
		slog.String("accuracy", res.Accuracy),
		slog.Int("types", res.UniqueGemTypes),
	)
	return res, nil
}

// Give builds a bag and adds it to the holder's inventory.
func (s *Service) Give(ctx context.Context, holderID string, req Request) (Result, []inventory.Item, error) {
	res, err := s.Preview(ctx, req)
	if err != nil {
		return Result{}, nil, err
	}
	items, err := Distribute(ctx, s.store, holderID, res)
	if err != nil {
		s.logger.Error("gem bag distribution incomplete", slog.String("holder_id", holderID), slog.Any("error", err))
		return res, items, err
	}
	s.logger.Info("gem bag distributed", slog.String("holder_id", holderID), slog.Int("lines", len(items)))
	return res, items, nil
}
