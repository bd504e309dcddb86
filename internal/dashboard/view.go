package dashboard

import (
	"time"

	"crypto-analyst/internal/model"
)

// Channels on which views are published.
const (
	ChannelPair   = "pair"
	ChannelWhales = "whales"
)

// Status of a view.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// PairView is the market and recommendation side of the dashboard for the
// selected pair. A PairView is never mutated after it is stored; every
// update stores a new value.
//
// Market is set as soon as the snapshot exists. Analysis is set only for a
// complete, validated LLM response; otherwise RecommendationError explains
// why. Error is a snapshot failure and implies Market is nil.
type PairView struct {
	Pair                model.Pair          `json:"pair"`
	Generation          uint64              `json:"generation"`
	Status              Status              `json:"status"`
	Market              *model.MarketView   `json:"market,omitempty"`
	Analysis            *model.FullAnalysis `json:"analysis,omitempty"`
	AnalysisPending     bool                `json:"analysisPending"`
	RecommendationError *ViewError          `json:"recommendationError,omitempty"`
	Error               *ViewError          `json:"error,omitempty"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

// WhaleView is the latest whale-alert poll. Alerts is replaced wholesale.
type WhaleView struct {
	Status    Status             `json:"status"`
	Alerts    []model.WhaleAlert `json:"alerts"`
	Matched   int                `json:"matched"`
	Skipped   int                `json:"skipped"`
	Error     *ViewError         `json:"error,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// State is a consistent copy of the whole dashboard.
type State struct {
	Pairs    []model.Pair `json:"pairs"`
	Selected model.Pair   `json:"selected"`
	View     PairView     `json:"view"`
	Whales   WhaleView    `json:"whales"`
}
