package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/scribe/internal/helpers"
	"github.com/mohammad-safakhou/scribe/internal/research"
	"github.com/mohammad-safakhou/scribe/internal/store"
)

// libraryDoc is one indexed report section.
type libraryDoc struct {
	ReportID  string `json:"report_id"`
	SessionID string `json:"session_id"`
	Section   string `json:"section"`
	Text      string `json:"text"`
}

// Library keeps a full-text index over the sections of stored final
// reports. The index lives in memory: it is rebuilt from the store at
// boot and extended whenever a new report lands.
type Library struct {
	index bleve.Index
	meta  map[string]libraryDoc
	max   int
	mu    sync.RWMutex

	logger *log.Logger
}

func NewLibrary(maxReports int, logger *log.Logger) (*Library, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[LIBRARY] ", log.LstdFlags)
	}
	if maxReports <= 0 {
		maxReports = 100
	}
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Library{
		index:  index,
		meta:   make(map[string]libraryDoc),
		max:    maxReports,
		logger: logger,
	}, nil
}

// Rebuild reloads the index from the most recent stored reports.
// Reports with undecodable payloads are skipped, not fatal.
func (l *Library) Rebuild(ctx context.Context, st *store.Store) error {
	reports, err := st.ListFinalReports(ctx, l.max)
	if err != nil {
		return err
	}
	for _, rec := range reports {
		if err := l.Index(rec); err != nil {
			l.logger.Printf("skipping report %s: %v", rec.ReportID, err)
		}
	}
	return nil
}

// Index adds every body section of one report. The sources map is not
// searchable content and stays out of the index.
func (l *Library) Index(rec store.FinalReportRecord) error {
	var data map[string]any
	if err := json.Unmarshal(rec.ReportData, &data); err != nil {
		return fmt.Errorf("decode report %s: %w", rec.ReportID, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for name, v := range data {
		if name == research.SourcesKey {
			continue
		}
		text, ok := v.(string)
		if !ok {
			continue
		}
		doc := libraryDoc{
			ReportID:  rec.ReportID,
			SessionID: rec.SessionID,
			Section:   name,
			Text:      text,
		}
		id := rec.ReportID + "#" + name
		l.meta[id] = doc
		if err := l.index.Index(id, doc); err != nil {
			return err
		}
	}
	return nil
}

// Search returns up to k matching report sections ranked by score.
func (l *Library) Search(q string, k int) ([]LibraryHit, error) {
	query := bleve.NewQueryStringQuery(q)
	searchReq := bleve.NewSearchRequestOptions(query, k*3, 0, false)
	res, err := l.index.Search(searchReq)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []LibraryHit
	for i, hit := range res.Hits {
		doc := l.meta[hit.ID]
		out = append(out, LibraryHit{
			ReportID:  doc.ReportID,
			SessionID: doc.SessionID,
			Section:   doc.Section,
			Snippet:   snippet(doc.Text),
			Score:     hit.Score,
			Rank:      i + 1,
		})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

// snippet trims section text down to a short plain-text preview.
func snippet(s string) string {
	s = helpers.StripMarkup(s)
	if len(s) <= 300 {
		return s
	}
	return s[:300] + "..."
}

type LibraryHandler struct {
	Library *Library
}

func (h *LibraryHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.GET("/search", h.search)
}

// Search stored reports
//
//	@Summary	Search the report library
//	@Tags		library
//	@Security	BearerAuth
//	@Security	CookieAuth
//	@Param		q	query	string	true	"Query string"
//	@Param		k	query	int		false	"Maximum hits to return (default 10)"
//	@Produce	json
//	@Success	200	{object}	LibrarySearchResponse
//	@Failure	400	{object}	HTTPError
//	@Failure	500	{object}	HTTPError
//	@Router		/api/library/search [get]
func (h *LibraryHandler) search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q parameter required")
	}
	k := 10
	if val := strings.TrimSpace(c.QueryParam("k")); val != "" {
		if v, err := strconv.Atoi(val); err == nil && v > 0 {
			k = v
		}
	}
	hits, err := h.Library.Search(q, k)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if hits == nil {
		hits = []LibraryHit{}
	}
	return c.JSON(http.StatusOK, LibrarySearchResponse{Query: q, Hits: hits})
}
