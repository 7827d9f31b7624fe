package server

import "encoding/json"

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// ResearchRequest starts a report build. Structure is optional planner
// output: either the structure JSON object itself or a JSON string
// holding raw planner text. When omitted the query becomes a
// single-section plan.
type ResearchRequest struct {
	Query     string          `json:"query"`
	Structure json.RawMessage `json:"structure,omitempty"`
}

// ResearchResponse acknowledges an accepted research request.
type ResearchResponse struct {
	SessionID   string `json:"session_id"`
	StructureID string `json:"structure_id"`
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	SessionID    string `json:"session_id"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	LastAccessed string `json:"last_accessed"`
}

// SessionDetailResponse bundles everything recorded under one session.
type SessionDetailResponse struct {
	SessionID string            `json:"session_id"`
	Status    string            `json:"status"`
	CreatedAt string            `json:"created_at"`
	Queries   []QueryView       `json:"queries,omitempty"`
	Sections  []SectionView     `json:"sections,omitempty"`
	Reports   []ReportReference `json:"reports,omitempty"`
}

// QueryView is the stored original query with its generated sub-queries.
type QueryView struct {
	QueryID          string          `json:"query_id"`
	OriginalQuery    string          `json:"original_query"`
	GeneratedQueries json.RawMessage `json:"generated_queries,omitempty"`
}

// SectionView is one persisted worker outcome.
type SectionView struct {
	ResultID       string  `json:"result_id"`
	WorkerType     string  `json:"worker_type"`
	CompiledResult string  `json:"compiled_result"`
	ProcessingTime float64 `json:"processing_time"`
}

// ReportReference points at a stored final report.
type ReportReference struct {
	ReportID  string `json:"report_id"`
	WordCount int    `json:"word_count"`
	CreatedAt string `json:"created_at"`
}

// ReportResponse returns the latest assembled report of a session.
type ReportResponse struct {
	ReportID   string          `json:"report_id"`
	SessionID  string          `json:"session_id"`
	ReportData json.RawMessage `json:"report_data"`
	WordCount  int             `json:"word_count"`
	CreatedAt  string          `json:"created_at"`
}

// FeedbackRequest rates a stored report.
type FeedbackRequest struct {
	SessionID string `json:"session_id"`
	ReportID  string `json:"report_id"`
	Rating    int    `json:"rating"`
	Comments  string `json:"comments"`
}

// IDResponse is a generic id response wrapper.
type IDResponse struct {
	ID string `json:"id"`
}

// LibraryHit is one full-text match from the report library.
type LibraryHit struct {
	ReportID  string  `json:"report_id"`
	SessionID string  `json:"session_id"`
	Section   string  `json:"section"`
	Snippet   string  `json:"snippet"`
	Score     float64 `json:"score"`
	Rank      int     `json:"rank"`
}

// LibrarySearchResponse wraps library search results.
type LibrarySearchResponse struct {
	Query string       `json:"query"`
	Hits  []LibraryHit `json:"hits"`
}
