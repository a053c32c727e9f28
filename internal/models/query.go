package models

const (
	ResponseTypeRAG     = "rag_response"
	ResponseTypeRouting = "routing_message"
)

// QueryRequest is the inbound shape of the query endpoint.
type QueryRequest struct {
	Query           string `json:"query"`
	Channel         string `json:"channel"`
	SessionID       string `json:"session_id"`
	IncludeFollowup *bool  `json:"include_followup,omitempty"`
}

// WantsFollowup defaults to true when the client did not say.
func (r QueryRequest) WantsFollowup() bool {
	return r.IncludeFollowup == nil || *r.IncludeFollowup
}

type FollowupSuggestion struct {
	Question string `json:"question"`
}

// QueryResponse is the assembled answer for one query.
type QueryResponse struct {
	Answer                string               `json:"answer"`
	Citations             []Citation           `json:"citations"`
	Sources               []RetrievalResult    `json:"sources,omitempty"`
	Classification        Summary              `json:"classification"`
	ClassificationReasons Reasons              `json:"classification_reasons"`
	FollowupSuggestions   []FollowupSuggestion `json:"followup_suggestions"`
	ResponseType          string               `json:"response_type"`
	ProcessingTimeMS      float64              `json:"processing_time_ms"`
	SessionID             string               `json:"session_id"`
	CacheHit              bool                 `json:"cache_hit"`
}

// CompletionRequest is one call to the completion service. A nil
// Temperature uses the engine's configured value; zero is a valid setting.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature *float64
}

func Ptr[T any](v T) *T {
	return &v
}
