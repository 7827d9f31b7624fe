// Package rank orders candidate documents by embedding similarity to
// the query and selects as many whole documents as fit a word budget.
package rank

import (
	"context"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/mohammad-safakhou/scribe/internal/embed"
)

// MaxContextWords caps how much document text reaches the language
// model, counted in whitespace-delimited words.
const MaxContextWords = 9000

// TruncationMarker terminates text that Truncate had to cut.
const TruncationMarker = "\n\n...[TRUNCATED]"

type Ranker struct {
	embedder embed.Embedder
	logger   *log.Logger
}

func New(embedder embed.Embedder, logger *log.Logger) *Ranker {
	if logger == nil {
		logger = log.New(log.Writer(), "[RANK] ", log.LstdFlags)
	}
	return &Ranker{embedder: embedder, logger: logger}
}

// RankAndBudget sorts docs by similarity to query and takes whole
// documents in ranked order until the next one would push the running
// word count past MaxContextWords. Selection stops at that document;
// smaller documents further down the ranking are not back-filled.
// Selected docs are joined with a blank line.
func (r *Ranker) RankAndBudget(ctx context.Context, query string, docs []string) string {
	if len(docs) == 0 {
		return ""
	}

	scores := r.score(ctx, query, docs)

	items := make([]struct {
		text  string
		score float64
	}, len(docs))
	for i, doc := range docs {
		items[i].text = doc
		items[i].score = scores[i]
	}
	// Stable keeps input order for tied scores, and for every doc when
	// embedding failed and all scores are zero.
	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })

	var selected []string
	words := 0
	for _, it := range items {
		n := len(strings.Fields(it.text))
		if words+n > MaxContextWords {
			break
		}
		selected = append(selected, it.text)
		words += n
	}
	return strings.Join(selected, "\n\n")
}

// score embeds the query and every doc in one batch. Any embedding
// failure zeroes all scores so ranking degrades to input order rather
// than killing the run.
func (r *Ranker) score(ctx context.Context, query string, docs []string) []float64 {
	scores := make([]float64, len(docs))
	if r.embedder == nil {
		return scores
	}

	vecs, err := r.embedder.Embed(ctx, append([]string{query}, docs...))
	if err != nil {
		r.logger.Printf("embedding failed, keeping input order: %v", err)
		return scores
	}
	if len(vecs) != len(docs)+1 {
		r.logger.Printf("embedding returned %d vectors for %d texts, keeping input order", len(vecs), len(docs)+1)
		return scores
	}
	for i := range docs {
		scores[i] = Cosine(vecs[0], vecs[i+1])
	}
	return scores
}

// Truncate enforces the hard word cap: text at or under the cap comes
// back unchanged, longer text becomes its first MaxContextWords words
// joined by single spaces plus TruncationMarker. Truncating an already
// truncated text reproduces it exactly.
func Truncate(text string) string {
	words := strings.Fields(text)
	if len(words) <= MaxContextWords {
		return text
	}
	return strings.Join(words[:MaxContextWords], " ") + TruncationMarker
}

// Cosine is the similarity between two vectors, 0 when lengths differ
// or either norm is zero.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
