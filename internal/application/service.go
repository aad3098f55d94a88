// Package application wires the domain pipeline to feed, storage, cache and
// annotation collaborators.
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cotlens/internal/assets"
	"github.com/sawpanic/cotlens/internal/cache"
	"github.com/sawpanic/cotlens/internal/domain/combine"
	"github.com/sawpanic/cotlens/internal/domain/cot"
	"github.com/sawpanic/cotlens/internal/domain/seasonality"
	"github.com/sawpanic/cotlens/internal/persistence"
)

// ErrUnknownAsset is returned for asset IDs outside the registry.
var ErrUnknownAsset = fmt.Errorf("application: unknown asset")

// ResponseCache is the subset of the cache used by the read path. A nil
// cache disables caching entirely.
type ResponseCache interface {
	Get(ctx context.Context, key string, out interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AssetBias is the full read-path payload for one asset: the persisted COT
// analysis, the freshly computed seasonality, and their combination.
type AssetBias struct {
	AssetID     string             `json:"asset_id"`
	AssetName   string             `json:"asset_name"`
	ReportDate  time.Time          `json:"report_date"`
	Stale       bool               `json:"stale"`
	Cot         cot.Analysis       `json:"cot"`
	Seasonality seasonality.Result `json:"seasonality"`
	Combined    combine.Result     `json:"combined"`
}

// BiasService serves combined bias reads from persisted snapshots.
type BiasService struct {
	snapshots  persistence.SnapshotRepo
	model      *seasonality.Model
	cache      ResponseCache
	cacheTTL   time.Duration
	staleAfter time.Duration
}

// NewBiasService builds the read service. cache may be nil.
func NewBiasService(snapshots persistence.SnapshotRepo, model *seasonality.Model, responseCache ResponseCache, cacheTTL, staleAfter time.Duration) *BiasService {
	return &BiasService{
		snapshots:  snapshots,
		model:      model,
		cache:      responseCache,
		cacheTTL:   cacheTTL,
		staleAfter: staleAfter,
	}
}

// Seasonality computes the seasonality result for an asset at the given
// date. Assets flagged without seasonality yield a zero result.
func (s *BiasService) Seasonality(assetID string, date time.Time) (*seasonality.Result, error) {
	asset, ok := assets.ByID(assetID)
	if !ok {
		return nil, ErrUnknownAsset
	}

	if !asset.Seasonality {
		result := seasonality.Result{AssetID: assetID, Date: date, ActiveWindows: []seasonality.Window{}}
		return &result, nil
	}

	result := s.model.Compute(assetID, date)
	return &result, nil
}

// CombinedBias loads the latest persisted analysis for the asset, computes
// seasonality for now, and combines both under the supplied config.
func (s *BiasService) CombinedBias(ctx context.Context, assetID string, cfg combine.Config, now time.Time) (*AssetBias, error) {
	asset, ok := assets.ByID(assetID)
	if !ok {
		return nil, ErrUnknownAsset
	}

	cacheKey := cache.BiasKey(assetID, cfg)
	if s.cache != nil {
		var cached AssetBias
		if found, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && found {
			return &cached, nil
		}
	}

	snapshot, err := s.snapshots.Latest(ctx, assetID)
	if err != nil {
		return nil, err
	}

	seasonalityResult, err := s.Seasonality(assetID, now)
	if err != nil {
		return nil, err
	}

	combined, err := combine.ComputeFinalBias(
		snapshot.Derived.Score,
		seasonalityResult.NormalizedScore,
		snapshot.Derived.Bias,
		seasonalityResult.Bias(),
		cfg,
	)
	if err != nil {
		return nil, err
	}

	result := &AssetBias{
		AssetID:     asset.ID,
		AssetName:   asset.Name,
		ReportDate:  snapshot.ReportDate,
		Stale:       snapshot.Stale(now, s.staleAfter),
		Cot:         snapshot.Derived,
		Seasonality: *seasonalityResult,
		Combined:    *combined,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, s.cacheTTL); err != nil {
			log.Warn().Str("asset", assetID).Err(err).Msg("Failed to cache bias response")
		}
	}
	return result, nil
}
