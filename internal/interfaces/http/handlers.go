package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/cotlens/internal/application"
	"github.com/sawpanic/cotlens/internal/assets"
	"github.com/sawpanic/cotlens/internal/domain/combine"
	"github.com/sawpanic/cotlens/internal/domain/seasonality"
	"github.com/sawpanic/cotlens/internal/persistence"
)

// BiasReader serves the read path.
type BiasReader interface {
	CombinedBias(ctx context.Context, assetID string, cfg combine.Config, now time.Time) (*application.AssetBias, error)
	Seasonality(assetID string, date time.Time) (*seasonality.Result, error)
}

// RefreshRunner triggers one refresh cycle.
type RefreshRunner interface {
	Run(ctx context.Context) (*application.RunResult, error)
}

// Pinger checks database liveness. *sqlx.DB satisfies this.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CacheChecker checks cache liveness.
type CacheChecker interface {
	Health(ctx context.Context) error
}

// Handlers manages all HTTP endpoint handlers.
type Handlers struct {
	bias      BiasReader
	refresher RefreshRunner
	scoring   combine.Config
	db        Pinger       // optional
	cache     CacheChecker // optional
	version   string

	refreshing chan struct{} // capacity 1: at most one refresh at a time
}

// NewHandlers creates a handlers instance. db and cache may be nil; they are
// then omitted from health checks.
func NewHandlers(bias BiasReader, refresher RefreshRunner, scoring combine.Config, db Pinger, cacheChecker CacheChecker, version string) *Handlers {
	return &Handlers{
		bias:       bias,
		refresher:  refresher,
		scoring:    scoring,
		db:         db,
		cache:      cacheChecker,
		version:    version,
		refreshing: make(chan struct{}, 1),
	}
}

// writeJSON writes JSON response with proper error handling
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

// writeError writes standardized error response
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID, _ := r.Context().Value(requestIDKey).(string)
	if requestID == "" {
		requestID = "unknown"
	}

	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	})
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	components := map[string]string{}

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			components["database"] = err.Error()
			status = "degraded"
		} else {
			components["database"] = "ok"
		}
	}
	if h.cache != nil {
		if err := h.cache.Health(ctx); err != nil {
			components["cache"] = err.Error()
			status = "degraded"
		} else {
			components["cache"] = "ok"
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, HealthResponse{
		Status:     status,
		Version:    h.version,
		Timestamp:  time.Now().UTC(),
		Components: components,
	})
}

// Assets handles GET /v1/assets
func (h *Handlers) Assets(w http.ResponseWriter, r *http.Request) {
	all := assets.All()
	h.writeJSON(w, http.StatusOK, AssetListResponse{Assets: all, Count: len(all)})
}

// Bias handles GET /v1/assets/{id}/bias with optional scoring overrides via
// query parameters.
func (h *Handlers) Bias(w http.ResponseWriter, r *http.Request) {
	assetID := mux.Vars(r)["id"]

	cfg, err := h.scoringFromQuery(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	result, err := h.bias.CombinedBias(r.Context(), assetID, cfg, time.Now().UTC())
	switch {
	case errors.Is(err, application.ErrUnknownAsset):
		h.writeError(w, r, http.StatusNotFound, "asset_not_found", "Unknown asset: "+assetID)
		return
	case errors.Is(err, persistence.ErrNotFound):
		h.writeError(w, r, http.StatusNotFound, "no_data",
			"No COT data stored for asset "+assetID+"; trigger a refresh first")
		return
	case err != nil:
		log.Error().Str("asset", assetID).Err(err).Msg("Bias computation failed")
		h.writeError(w, r, http.StatusInternalServerError, "internal_error", "Failed to compute bias")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// Seasonality handles GET /v1/assets/{id}/seasonality
func (h *Handlers) Seasonality(w http.ResponseWriter, r *http.Request) {
	assetID := mux.Vars(r)["id"]

	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, "invalid_parameter",
				"date must be formatted YYYY-MM-DD")
			return
		}
		date = parsed
	}

	result, err := h.bias.Seasonality(assetID, date)
	if errors.Is(err, application.ErrUnknownAsset) {
		h.writeError(w, r, http.StatusNotFound, "asset_not_found", "Unknown asset: "+assetID)
		return
	}
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "internal_error", "Failed to compute seasonality")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// Refresh handles POST /v1/refresh. The cycle runs in the background; a
// second trigger while one is running is rejected.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	select {
	case h.refreshing <- struct{}{}:
	default:
		h.writeError(w, r, http.StatusConflict, "refresh_in_progress", "A refresh cycle is already running")
		return
	}

	go func() {
		defer func() { <-h.refreshing }()
		// Detached from the request: the cycle outlives the HTTP response.
		if _, err := h.refresher.Run(context.Background()); err != nil {
			log.Error().Err(err).Msg("Background refresh failed")
		}
	}()

	h.writeJSON(w, http.StatusAccepted, RefreshAcceptedResponse{Status: "accepted"})
}

// NotFound handles 404 responses
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found",
		"The requested endpoint does not exist")
}

// scoringFromQuery applies per-request overrides to the configured scoring
// weights.
func (h *Handlers) scoringFromQuery(r *http.Request) (combine.Config, error) {
	cfg := h.scoring

	overrides := []struct {
		name   string
		target *float64
	}{
		{"cot_weight", &cfg.CotWeight},
		{"seasonality_weight", &cfg.SeasonalityWeight},
		{"conviction_boost_threshold", &cfg.ConvictionBoostThreshold},
		{"conviction_boost_amount", &cfg.ConvictionBoostAmount},
	}
	for _, o := range overrides {
		raw := r.URL.Query().Get(o.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return cfg, errors.New(o.name + " must be a number")
		}
		*o.target = v
	}
	return cfg, nil
}
