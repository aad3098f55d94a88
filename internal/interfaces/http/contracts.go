package http

import (
	"time"

	"github.com/sawpanic/cotlens/internal/assets"
)

// ErrorResponse is the standardized error payload.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse reports service and dependency status.
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// AssetListResponse lists the tracked futures markets.
type AssetListResponse struct {
	Assets []assets.Asset `json:"assets"`
	Count  int            `json:"count"`
}

// RefreshAcceptedResponse acknowledges a refresh trigger.
type RefreshAcceptedResponse struct {
	Status string `json:"status"`
}
