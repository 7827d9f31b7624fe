package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/scribe/internal/research"
	"github.com/mohammad-safakhou/scribe/internal/store"
)

// buildTimeout bounds one background report build.
const buildTimeout = 15 * time.Minute

// ReportBuilder runs the full research pipeline for a parsed structure.
type ReportBuilder interface {
	BuildReport(ctx context.Context, sessionID, structureID string, structure *research.Structure) *research.Report
}

type ResearchHandler struct {
	store   *store.Store
	builder ReportBuilder
	library *Library
	logger  *log.Logger
}

func NewResearchHandler(st *store.Store, builder ReportBuilder, library *Library) *ResearchHandler {
	return &ResearchHandler{
		store:   st,
		builder: builder,
		library: library,
		logger:  log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags),
	}
}

func (h *ResearchHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.POST("/research", h.start)
	g.GET("/sessions", h.sessions)
	g.GET("/sessions/:id", h.session)
	g.GET("/sessions/:id/report", h.report)
	g.POST("/feedback", h.feedback)
}

// Start a research report build
//
//	@Summary	Start research
//	@Tags		research
//	@Security	BearerAuth
//	@Security	CookieAuth
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		ResearchRequest	true	"Research request"
//	@Success	202		{object}	ResearchResponse	"Build accepted"
//	@Failure	400		{object}	HTTPError
//	@Failure	500		{object}	HTTPError
//	@Router		/api/research [post]
func (h *ResearchHandler) start(c echo.Context) error {
	userID := c.Get("user_id").(string)
	var req ResearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}

	structure, err := parseRequestStructure(req.Query, req.Structure)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	sessionID, err := h.store.CreateSession(ctx, userID, map[string]any{"query": req.Query})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	queryID, err := h.store.SaveResearchQueries(ctx, sessionID, req.Query, collectQueries(structure))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	structureID, err := h.store.SaveResearchStructure(ctx, queryID, sessionID, structure)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// launch background build using the shared pipeline
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
		defer cancel()
		h.runBuild(ctx, sessionID, structureID, structure)
	}()

	return c.JSON(http.StatusAccepted, ResearchResponse{SessionID: sessionID, StructureID: structureID})
}

// runBuild drives one report build to completion and keeps the library
// index current. The builder absorbs its own failures, so the session
// always ends complete.
func (h *ResearchHandler) runBuild(ctx context.Context, sessionID, structureID string, structure *research.Structure) {
	h.builder.BuildReport(ctx, sessionID, structureID, structure)
	if err := h.store.SetSessionStatus(ctx, sessionID, store.SessionStatusComplete); err != nil {
		h.logger.Printf("marking session %s complete: %v", sessionID, err)
	}
	if h.library == nil {
		return
	}
	rec, ok, err := h.store.GetFinalReport(ctx, sessionID)
	if err != nil {
		h.logger.Printf("loading report for session %s: %v", sessionID, err)
		return
	}
	if !ok {
		return
	}
	if err := h.library.Index(rec); err != nil {
		h.logger.Printf("indexing report %s: %v", rec.ReportID, err)
	}
}

// List the current user's sessions
//
//	@Summary	List sessions
//	@Tags		research
//	@Security	BearerAuth
//	@Security	CookieAuth
//	@Param		limit	query	int	false	"Maximum sessions to return (default 10)"
//	@Produce	json
//	@Success	200	{array}		SessionSummary
//	@Failure	500	{object}	HTTPError
//	@Router		/api/sessions [get]
func (h *ResearchHandler) sessions(c echo.Context) error {
	userID := c.Get("user_id").(string)
	limit := 10
	if val := strings.TrimSpace(c.QueryParam("limit")); val != "" {
		if v, err := strconv.Atoi(val); err == nil && v > 0 {
			limit = v
		}
	}
	items, err := h.store.GetUserSessions(c.Request().Context(), userID, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]SessionSummary, 0, len(items))
	for _, s := range items {
		out = append(out, SessionSummary{
			SessionID:    s.SessionID,
			Status:       s.Status,
			CreatedAt:    s.CreatedAt.Format(time.RFC3339),
			LastAccessed: s.LastAccessed.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Get one session's recorded data
//
//	@Summary	Session detail
//	@Tags		research
//	@Security	BearerAuth
//	@Security	CookieAuth
//	@Param		id	path	string	true	"Session ID"
//	@Produce	json
//	@Success	200	{object}	SessionDetailResponse
//	@Failure	404	{object}	HTTPError
//	@Router		/api/sessions/{id} [get]
func (h *ResearchHandler) session(c echo.Context) error {
	userID := c.Get("user_id").(string)
	sessionID := c.Param("id")
	data, err := h.store.GetSessionData(c.Request().Context(), sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if data.Session.UserID != userID {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if err := h.store.UpdateSessionAccess(c.Request().Context(), sessionID); err != nil {
		h.logger.Printf("touching session %s: %v", sessionID, err)
	}

	resp := SessionDetailResponse{
		SessionID: data.Session.SessionID,
		Status:    data.Session.Status,
		CreatedAt: data.Session.CreatedAt.Format(time.RFC3339),
	}
	for _, q := range data.Queries {
		resp.Queries = append(resp.Queries, QueryView{
			QueryID:          q.QueryID,
			OriginalQuery:    q.OriginalQuery,
			GeneratedQueries: q.GeneratedQueries,
		})
	}
	for _, w := range data.WorkerResults {
		resp.Sections = append(resp.Sections, SectionView{
			ResultID:       w.ResultID,
			WorkerType:     w.WorkerType,
			CompiledResult: w.CompiledResult,
			ProcessingTime: w.ProcessingTime,
		})
	}
	for _, r := range data.Reports {
		resp.Reports = append(resp.Reports, ReportReference{
			ReportID:  r.ReportID,
			WordCount: r.WordCount,
			CreatedAt: r.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// Get the latest final report of a session
//
//	@Summary	Session report
//	@Tags		research
//	@Security	BearerAuth
//	@Security	CookieAuth
//	@Param		id	path	string	true	"Session ID"
//	@Produce	json
//	@Success	200	{object}	ReportResponse
//	@Failure	404	{object}	HTTPError
//	@Router		/api/sessions/{id}/report [get]
func (h *ResearchHandler) report(c echo.Context) error {
	userID := c.Get("user_id").(string)
	sessionID := c.Param("id")
	owner, err := h.store.GetSessionOwner(c.Request().Context(), sessionID)
	if err != nil || owner != userID {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	rec, ok, err := h.store.GetFinalReport(c.Request().Context(), sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no report for session")
	}
	return c.JSON(http.StatusOK, ReportResponse{
		ReportID:   rec.ReportID,
		SessionID:  rec.SessionID,
		ReportData: rec.ReportData,
		WordCount:  rec.WordCount,
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
	})
}

// Rate a stored report
//
//	@Summary	Submit feedback
//	@Tags		research
//	@Security	BearerAuth
//	@Security	CookieAuth
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		FeedbackRequest	true	"Feedback payload"
//	@Success	201		{object}	IDResponse
//	@Failure	400		{object}	HTTPError
//	@Failure	404		{object}	HTTPError
//	@Failure	500		{object}	HTTPError
//	@Router		/api/feedback [post]
func (h *ResearchHandler) feedback(c echo.Context) error {
	userID := c.Get("user_id").(string)
	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Rating < 1 || req.Rating > 5 {
		return echo.NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}
	owner, err := h.store.GetSessionOwner(c.Request().Context(), req.SessionID)
	if err != nil || owner != userID {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	id, err := h.store.SaveFeedback(c.Request().Context(), req.SessionID, req.ReportID, req.Rating, req.Comments)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, IDResponse{ID: id})
}

// parseRequestStructure turns the optional structure payload into a
// parsed plan. A JSON string is treated as raw planner text; anything
// else is handed to the parser as-is. No payload means the query
// becomes a single-section plan.
func parseRequestStructure(query string, raw json.RawMessage) (*research.Structure, error) {
	if len(raw) == 0 {
		return defaultStructure(query), nil
	}
	text := string(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		text = s
	}
	return research.ParseStructure(text)
}

func defaultStructure(query string) *research.Structure {
	return &research.Structure{
		Topic: query,
		Sections: []research.Section{{
			Name:     "Introduction",
			Question: fmt.Sprintf("What is the beginning of %s?", query),
			Queries:  []string{query},
		}},
	}
}

func collectQueries(structure *research.Structure) []string {
	var out []string
	for _, s := range structure.Sections {
		out = append(out, s.Queries...)
	}
	return out
}
