package models

import "time"

// TripRequest is the planning form as submitted by the client.
type TripRequest struct {
	PlanID      string  `json:"plan_id,omitempty" binding:"omitempty,uuid"`
	Origin      string  `json:"origin" binding:"required,max=100"`
	Destination string  `json:"destination" binding:"required,max=100"`
	Month       string  `json:"month" binding:"required,oneof=January February March April May June July August September October November December"`
	Days        int     `json:"days" binding:"required,min=2,max=14"`
	Travellers  int     `json:"travellers" binding:"required,min=1,max=10"`
	Budget      float64 `json:"budget" binding:"required,min=10000,max=500000"`
	Style       string  `json:"style" binding:"required,oneof=Balanced Relaxed Adventure Food Nightlife Culture"`
}

// Image search outcome. Exactly one of URLs or Reason is meaningful.
const (
	ImageStatusOK    = "ok"
	ImageStatusError = "error"
)

type ImageResult struct {
	Status string   `json:"status"`
	URLs   []string `json:"urls,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

// ImagesOK wraps a successful lookup. A nil slice is normalised to empty.
func ImagesOK(urls []string) ImageResult {
	if urls == nil {
		urls = []string{}
	}
	return ImageResult{Status: ImageStatusOK, URLs: urls}
}

// ImagesFailed records why no images are available.
func ImagesFailed(reason string) ImageResult {
	return ImageResult{Status: ImageStatusError, Reason: reason}
}

func (r ImageResult) OK() bool {
	return r.Status == ImageStatusOK
}

// TripPlan is the full response for a planning request.
type TripPlan struct {
	ID        string      `json:"id"`
	Request   TripRequest `json:"request"`
	Research  string      `json:"research"`
	Itinerary string      `json:"itinerary"`
	Budget    *BudgetPlan `json:"budget"`
	Images    ImageResult `json:"images"`
	Cached    bool        `json:"cached"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// StoredPlan is what the plan store persists: the inputs and the generated
// documents, never the derived budget.
type StoredPlan struct {
	ID        string
	CacheKey  string
	Request   TripRequest
	Research  string
	Itinerary string
	Images    ImageResult
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ProgressEvent is pushed to websocket subscribers while a plan is built.
type ProgressEvent struct {
	PlanID  string    `json:"plan_id"`
	Stage   string    `json:"stage"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

const (
	StageStarted     = "started"
	StageResearching = "researching"
	StagePlanning    = "planning"
	StageImages      = "images"
	StageCompleted   = "completed"
	StageFailed      = "failed"
)
