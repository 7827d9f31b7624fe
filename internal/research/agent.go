// Package research composes search, extraction, ranking and synthesis
// into per-section report content.
package research

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/scribe/internal/llm"
	"github.com/mohammad-safakhou/scribe/internal/ratelimit"
)

const (
	// MaxSourceURLs is how many resolved URLs one synthesis run will
	// try to extract.
	MaxSourceURLs = 2

	// InterExtractPause is the courtesy gap between consecutive
	// extractions inside one run.
	InterExtractPause = 3 * time.Second

	// DefaultNumResults is asked of the search chain per query.
	DefaultNumResults = 3

	promptTemplate = "You are %s, an expert researcher.\n\nHere is research content:\n\n%s\n\nWrite a well-structured content based on this."
)

// URLResolver yields candidate URLs for a query, empty when every
// provider came up dry.
type URLResolver interface {
	Resolve(ctx context.Context, query string, max int) []string
}

// TextExtractor yields readable text for a URL, empty on failure.
type TextExtractor interface {
	Extract(ctx context.Context, url string) string
}

// ContextRanker selects and concatenates the most relevant documents
// under the word budget.
type ContextRanker interface {
	RankAndBudget(ctx context.Context, query string, docs []string) string
}

// Truncator is the final hard cap applied to the ranked context.
type Truncator func(string) string

// SectionResult is the terminal artifact of one synthesis run. Text is
// always non-empty: degraded runs carry a readable placeholder naming
// what went wrong, so downstream consumers can spot them. Sources are
// in extraction order, not ranking order.
type SectionResult struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
}

// Deps are the shared collaborators behind every agent.
type Deps struct {
	Resolver  URLResolver
	Extractor TextExtractor
	Ranker    ContextRanker
	Truncate  Truncator
	LLM       llm.Client
	Logger    *log.Logger

	// NumResults overrides DefaultNumResults when positive.
	NumResults int
}

// Agent researches one query on behalf of a named report section. All
// external failures are absorbed into the result: Run never errors.
type Agent struct {
	name  string
	deps  Deps
	pause time.Duration
	sleep func(context.Context, time.Duration) error
}

func NewAgent(name string, deps Deps) *Agent {
	if deps.Logger == nil {
		deps.Logger = log.New(log.Writer(), "[AGENT] ", log.LstdFlags)
	}
	if deps.Truncate == nil {
		deps.Truncate = func(s string) string { return s }
	}
	return &Agent{
		name:  name,
		deps:  deps,
		pause: InterExtractPause,
		sleep: ratelimit.Sleep,
	}
}

// Run resolves, extracts, ranks and synthesizes content for query.
func (a *Agent) Run(ctx context.Context, query string) SectionResult {
	max := a.deps.NumResults
	if max <= 0 {
		max = DefaultNumResults
	}
	urls := a.deps.Resolver.Resolve(ctx, query, max)
	if len(urls) == 0 {
		return SectionResult{
			Text:    fmt.Sprintf("%s: No useful links found for query: %s", a.name, query),
			Sources: []string{},
		}
	}

	if len(urls) > MaxSourceURLs {
		urls = urls[:MaxSourceURLs]
	}

	var texts, sources []string
	for i, url := range urls {
		if i > 0 {
			if err := a.sleep(ctx, a.pause); err != nil {
				break
			}
		}
		text := a.deps.Extractor.Extract(ctx, url)
		if text == "" {
			continue
		}
		texts = append(texts, text)
		sources = append(sources, url)
	}

	if len(texts) == 0 {
		// The attempted URLs still go out as sources so a degraded
		// section remains traceable.
		return SectionResult{
			Text:    fmt.Sprintf("%s: No content scraped for: %s", a.name, query),
			Sources: urls,
		}
	}

	ranked := a.deps.Ranker.RankAndBudget(ctx, query, texts)
	safe := a.deps.Truncate(ranked)

	prompt := fmt.Sprintf(promptTemplate, a.name, safe)
	answer, err := a.deps.LLM.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		a.deps.Logger.Printf("synthesis failed for %q: %v", query, err)
		answer = fmt.Sprintf("%s: LLM failed to respond due to: %v", a.name, err)
	}

	return SectionResult{Text: answer, Sources: sources}
}
