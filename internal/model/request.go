package model

// OptimizeRequest is the caller-facing knob set for one optimization run.
type OptimizeRequest struct {
	TimeoutMs                int    `json:"timeoutMs,omitempty"`
	MaxIterations            int    `json:"maxIterations,omitempty"`
	EnableMultiDayScheduling *bool  `json:"enableMultiDayScheduling,omitempty"`
	AccommodationQuality     string `json:"accommodationQuality,omitempty"`
}

// MultiDay reports whether multi-day scheduling is requested (default true).
func (r OptimizeRequest) MultiDay() bool {
	return r.EnableMultiDayScheduling == nil || *r.EnableMultiDayScheduling
}

type ResultStatus string

const (
	StatusSuccess        ResultStatus = "success"
	StatusPartialSuccess ResultStatus = "partial_success"
	StatusError          ResultStatus = "error"
)

// ErrorPayload is the wire shape of a classified pipeline error.
type ErrorPayload struct {
	Kind             string   `json:"kind"`
	Message          string   `json:"message"`
	Retryable        bool     `json:"retryable"`
	SuggestedActions []string `json:"suggestedActions,omitempty"`
}

// OptimizeResult is the response of one optimization run.
type OptimizeResult struct {
	Status           ResultStatus   `json:"status"`
	Solution         *RouteSolution `json:"solution,omitempty"`
	Schedules        []DaySchedule  `json:"schedules,omitempty"`
	Error            *ErrorPayload  `json:"error,omitempty"`
	Warnings         []string       `json:"warnings,omitempty"`
	Strategy         string         `json:"strategy,omitempty"` // non-empty when a fallback produced the result
	ProcessingTimeMs int64          `json:"processingTimeMs"`
	SessionID        string         `json:"sessionId,omitempty"`
}
