package mealplan

import (
	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	apperrors "github.com/alchemorsel/mealplanner/pkg/errors"
	"go.uber.org/zap"
)

// Selector maps a generation mode to its strategy
type Selector struct {
	strategies  map[mealplan.Mode]Strategy
	defaultMode mealplan.Mode
}

// NewSelector creates a selector over the four strategies
func NewSelector(defaultMode mealplan.Mode, direct *DirectStrategy, rag *RAGStrategy, hybrid *HybridStrategy, bulk *BulkStrategy) *Selector {
	if defaultMode == "" {
		defaultMode = mealplan.ModeDirect
	}
	return &Selector{
		strategies: map[mealplan.Mode]Strategy{
			mealplan.ModeDirect:             direct,
			mealplan.ModeRetrievalAugmented: rag,
			mealplan.ModeHybrid:             hybrid,
			mealplan.ModeBulk:               bulk,
		},
		defaultMode: defaultMode,
	}
}

// NewStrategySelector builds every strategy from shared dependencies
func NewStrategySelector(
	defaultMode mealplan.Mode,
	llm outbound.TextGenerator,
	candidates outbound.CandidateSource,
	cfg StrategyConfig,
	logger *zap.Logger,
	metrics *monitoring.MetricsCollector,
) *Selector {
	cfg = cfg.withDefaults()
	direct := NewDirectStrategy(llm, cfg, logger, metrics)
	rag := NewRAGStrategy(llm, candidates, direct, cfg, logger, metrics)
	hybrid := NewHybridStrategy(rag, direct, cfg.HybridRAGRatio)
	bulk := NewBulkStrategy(llm, cfg, logger, metrics)
	return NewSelector(defaultMode, direct, rag, hybrid, bulk)
}

// DefaultMode returns the mode used when a request names none
func (s *Selector) DefaultMode() mealplan.Mode {
	return s.defaultMode
}

// Select returns the strategy for the mode, or the default strategy when the
// mode is empty
func (s *Selector) Select(mode mealplan.Mode) (Strategy, error) {
	if mode == "" {
		mode = s.defaultMode
	}
	strategy, ok := s.strategies[mode]
	if !ok || strategy == nil {
		return nil, apperrors.NewUnknownStrategyError(string(mode))
	}
	return strategy, nil
}
