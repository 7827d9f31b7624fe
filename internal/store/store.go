// Package store persists research sessions, structures, worker results
// and final reports in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Session statuses.
const (
	SessionStatusActive   = "active"
	SessionStatusComplete = "complete"
	SessionStatusFailed   = "failed"
)

// DefaultSessionRetentionDays is how long an idle session survives
// before cleanup removes it and everything hanging off it.
const DefaultSessionRetentionDays = 40

type Store struct {
	DB *sql.DB
}

// SessionRecord is one research session.
type SessionRecord struct {
	SessionID    string
	UserID       string
	CreatedAt    time.Time
	LastAccessed time.Time
	Status       string
	Metadata     json.RawMessage
}

// ResearchQueryRecord holds the original question and the generated
// sub-queries derived from it.
type ResearchQueryRecord struct {
	QueryID          string
	SessionID        string
	OriginalQuery    string
	GeneratedQueries json.RawMessage
	CreatedAt        time.Time
}

// StructureRecord stores the organized per-section query groups.
type StructureRecord struct {
	StructureID   string
	QueryID       string
	SessionID     string
	StructureData json.RawMessage
	CreatedAt     time.Time
}

// WorkerResultRecord is the outcome of one section worker.
type WorkerResultRecord struct {
	ResultID       string
	StructureID    string
	SessionID      string
	WorkerType     string
	Queries        json.RawMessage
	RawSummaries   json.RawMessage
	CompiledResult string
	ProcessingTime float64
	CreatedAt      time.Time
}

// FinalReportRecord is a complete assembled report.
type FinalReportRecord struct {
	ReportID    string
	SessionID   string
	StructureID string
	ReportData  json.RawMessage
	WordCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FeedbackRecord is a user rating of a report.
type FeedbackRecord struct {
	FeedbackID string
	SessionID  string
	ReportID   string
	Rating     int
	Comments   string
	CreatedAt  time.Time
}

// SessionData bundles everything recorded under one session.
type SessionData struct {
	Session       SessionRecord
	Queries       []ResearchQueryRecord
	Structures    []StructureRecord
	WorkerResults []WorkerResultRecord
	Reports       []FinalReportRecord
}

// New builds a Store from DATABASE_URL, falling back to the POSTGRES_*
// environment variables.
func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// User operations

func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// Session operations

func (s *Store) CreateSession(ctx context.Context, userID string, metadata map[string]any) (string, error) {
	sessionID := uuid.NewString()
	var meta []byte
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("marshal session metadata: %w", err)
		}
		meta = b
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, metadata) VALUES ($1,$2,$3)`,
		sessionID, nullString(userID), meta)
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

func (s *Store) UpdateSessionAccess(ctx context.Context, sessionID string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sessions SET last_accessed = NOW() WHERE session_id=$1`, sessionID)
	return err
}

func (s *Store) SetSessionStatus(ctx context.Context, sessionID, status string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sessions SET status=$2, last_accessed = NOW() WHERE session_id=$1`, sessionID, status)
	return err
}

func (s *Store) GetUserSessions(ctx context.Context, userID string, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT session_id, created_at, last_accessed, status
		 FROM sessions WHERE user_id=$1
		 ORDER BY last_accessed DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionRecord
	for rows.Next() {
		r := SessionRecord{UserID: userID}
		if err := rows.Scan(&r.SessionID, &r.CreatedAt, &r.LastAccessed, &r.Status); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetSessionOwner returns the user a session belongs to.
func (s *Store) GetSessionOwner(ctx context.Context, sessionID string) (string, error) {
	var userID sql.NullString
	err := s.DB.QueryRowContext(ctx,
		`SELECT user_id FROM sessions WHERE session_id=$1`, sessionID).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID.String, nil
}

// GetSessionData retrieves everything recorded under one session.
func (s *Store) GetSessionData(ctx context.Context, sessionID string) (SessionData, error) {
	var data SessionData

	var userID sql.NullString
	err := s.DB.QueryRowContext(ctx,
		`SELECT session_id, user_id, created_at, last_accessed, status, metadata
		 FROM sessions WHERE session_id=$1`, sessionID).
		Scan(&data.Session.SessionID, &userID, &data.Session.CreatedAt,
			&data.Session.LastAccessed, &data.Session.Status, &data.Session.Metadata)
	if err != nil {
		return SessionData{}, err
	}
	data.Session.UserID = userID.String

	rows, err := s.DB.QueryContext(ctx,
		`SELECT query_id, original_query, generated_queries, created_at
		 FROM research_queries WHERE session_id=$1 ORDER BY created_at`, sessionID)
	if err != nil {
		return SessionData{}, err
	}
	defer rows.Close()
	for rows.Next() {
		q := ResearchQueryRecord{SessionID: sessionID}
		if err := rows.Scan(&q.QueryID, &q.OriginalQuery, &q.GeneratedQueries, &q.CreatedAt); err != nil {
			return SessionData{}, err
		}
		data.Queries = append(data.Queries, q)
	}
	if err := rows.Err(); err != nil {
		return SessionData{}, err
	}

	srows, err := s.DB.QueryContext(ctx,
		`SELECT structure_id, query_id, structure_data, created_at
		 FROM research_structures WHERE session_id=$1 ORDER BY created_at`, sessionID)
	if err != nil {
		return SessionData{}, err
	}
	defer srows.Close()
	for srows.Next() {
		st := StructureRecord{SessionID: sessionID}
		if err := srows.Scan(&st.StructureID, &st.QueryID, &st.StructureData, &st.CreatedAt); err != nil {
			return SessionData{}, err
		}
		data.Structures = append(data.Structures, st)
	}
	if err := srows.Err(); err != nil {
		return SessionData{}, err
	}

	wrows, err := s.DB.QueryContext(ctx,
		`SELECT result_id, structure_id, worker_type, queries, raw_summaries, compiled_result, processing_time, created_at
		 FROM worker_results WHERE session_id=$1 ORDER BY created_at`, sessionID)
	if err != nil {
		return SessionData{}, err
	}
	defer wrows.Close()
	for wrows.Next() {
		w := WorkerResultRecord{SessionID: sessionID}
		if err := wrows.Scan(&w.ResultID, &w.StructureID, &w.WorkerType, &w.Queries,
			&w.RawSummaries, &w.CompiledResult, &w.ProcessingTime, &w.CreatedAt); err != nil {
			return SessionData{}, err
		}
		data.WorkerResults = append(data.WorkerResults, w)
	}
	if err := wrows.Err(); err != nil {
		return SessionData{}, err
	}

	frows, err := s.DB.QueryContext(ctx,
		`SELECT report_id, structure_id, report_data, word_count, created_at, updated_at
		 FROM final_reports WHERE session_id=$1 ORDER BY created_at`, sessionID)
	if err != nil {
		return SessionData{}, err
	}
	defer frows.Close()
	for frows.Next() {
		f := FinalReportRecord{SessionID: sessionID}
		if err := frows.Scan(&f.ReportID, &f.StructureID, &f.ReportData, &f.WordCount, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return SessionData{}, err
		}
		data.Reports = append(data.Reports, f)
	}
	return data, frows.Err()
}

// Research plumbing

func (s *Store) SaveResearchQueries(ctx context.Context, sessionID, originalQuery string, generatedQueries []string) (string, error) {
	queryID := uuid.NewString()
	payload, err := json.Marshal(generatedQueries)
	if err != nil {
		return "", fmt.Errorf("marshal generated queries: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO research_queries (query_id, session_id, original_query, generated_queries)
		 VALUES ($1,$2,$3,$4)`,
		queryID, sessionID, originalQuery, payload)
	if err != nil {
		return "", err
	}
	return queryID, nil
}

func (s *Store) SaveResearchStructure(ctx context.Context, queryID, sessionID string, structureData any) (string, error) {
	structureID := uuid.NewString()
	payload, err := json.Marshal(structureData)
	if err != nil {
		return "", fmt.Errorf("marshal structure: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO research_structures (structure_id, query_id, session_id, structure_data)
		 VALUES ($1,$2,$3,$4)`,
		structureID, queryID, sessionID, payload)
	if err != nil {
		return "", err
	}
	return structureID, nil
}

func (s *Store) SaveWorkerResult(ctx context.Context, structureID, sessionID, workerType string, queries, rawTexts []string, compiledText string, processingTime float64) (string, error) {
	resultID := uuid.NewString()
	queriesJSON, err := json.Marshal(queries)
	if err != nil {
		return "", fmt.Errorf("marshal queries: %w", err)
	}
	summariesJSON, err := json.Marshal(rawTexts)
	if err != nil {
		return "", fmt.Errorf("marshal summaries: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO worker_results (result_id, structure_id, session_id, worker_type, queries, raw_summaries, compiled_result, processing_time)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		resultID, structureID, sessionID, workerType, queriesJSON, summariesJSON, compiledText, processingTime)
	if err != nil {
		return "", err
	}
	return resultID, nil
}

// SaveFinalReport persists the assembled report. The word count covers
// only string-valued entries, so the embedded sources map does not
// inflate it.
func (s *Store) SaveFinalReport(ctx context.Context, sessionID, structureID string, reportData map[string]any) (string, error) {
	reportID := uuid.NewString()
	payload, err := json.Marshal(reportData)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	wordCount := 0
	for _, v := range reportData {
		if text, ok := v.(string); ok {
			wordCount += len(strings.Fields(text))
		}
	}

	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO final_reports (report_id, session_id, structure_id, report_data, word_count)
		 VALUES ($1,$2,$3,$4,$5)`,
		reportID, sessionID, structureID, payload, wordCount)
	if err != nil {
		return "", err
	}
	return reportID, nil
}

// GetFinalReport returns the newest report for a session.
func (s *Store) GetFinalReport(ctx context.Context, sessionID string) (FinalReportRecord, bool, error) {
	var rec FinalReportRecord
	err := s.DB.QueryRowContext(ctx,
		`SELECT report_id, session_id, structure_id, report_data, word_count, created_at, updated_at
		 FROM final_reports WHERE session_id=$1
		 ORDER BY created_at DESC LIMIT 1`, sessionID).
		Scan(&rec.ReportID, &rec.SessionID, &rec.StructureID, &rec.ReportData,
			&rec.WordCount, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return FinalReportRecord{}, false, nil
	}
	if err != nil {
		return FinalReportRecord{}, false, err
	}
	return rec, true, nil
}

// ListFinalReports returns recent reports, newest first. The library
// index is rebuilt from this at boot.
func (s *Store) ListFinalReports(ctx context.Context, limit int) ([]FinalReportRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT report_id, session_id, structure_id, report_data, word_count, created_at, updated_at
		 FROM final_reports ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FinalReportRecord
	for rows.Next() {
		var rec FinalReportRecord
		if err := rows.Scan(&rec.ReportID, &rec.SessionID, &rec.StructureID, &rec.ReportData,
			&rec.WordCount, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Feedback

func (s *Store) SaveFeedback(ctx context.Context, sessionID, reportID string, rating int, comments string) (string, error) {
	if rating < 1 || rating > 5 {
		return "", fmt.Errorf("rating %d out of range 1-5", rating)
	}
	feedbackID := uuid.NewString()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO user_feedback (feedback_id, session_id, report_id, rating, comments)
		 VALUES ($1,$2,$3,$4,$5)`,
		feedbackID, sessionID, reportID, rating, nullString(comments))
	if err != nil {
		return "", err
	}
	return feedbackID, nil
}

// Retention

// CleanupOldSessions deletes sessions idle for more than olderThanDays
// days; dependent rows go with them. Returns how many sessions were
// removed.
func (s *Store) CleanupOldSessions(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		olderThanDays = DefaultSessionRetentionDays
	}
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM sessions WHERE last_accessed < NOW() - make_interval(days => $1)`, olderThanDays)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
