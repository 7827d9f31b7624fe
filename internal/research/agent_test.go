package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/scribe/internal/llm"
)

type fakeResolver struct {
	urls []string
}

func (f *fakeResolver) Resolve(ctx context.Context, query string, max int) []string {
	return f.urls
}

type fakeExtractor struct {
	texts   map[string]string
	visited []string
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) string {
	f.visited = append(f.visited, url)
	return f.texts[url]
}

type fakeRanker struct {
	gotQuery string
	gotDocs  []string
}

func (f *fakeRanker) RankAndBudget(ctx context.Context, query string, docs []string) string {
	f.gotQuery = query
	f.gotDocs = docs
	return strings.Join(docs, "\n\n")
}

type fakeLLM struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	for _, m := range messages {
		f.prompts = append(f.prompts, m.Content)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testDeps(r *fakeResolver, e *fakeExtractor, k *fakeRanker, l *fakeLLM) Deps {
	return Deps{
		Resolver:  r,
		Extractor: e,
		Ranker:    k,
		LLM:       l,
		Logger:    log.New(io.Discard, "", 0),
	}
}

// recordSleep replaces the politeness pause and records each request.
func recordSleep(slept *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
}

func TestAgentNoLinksFound(t *testing.T) {
	agent := NewAgent("Introduction", testDeps(&fakeResolver{}, &fakeExtractor{}, &fakeRanker{}, &fakeLLM{}))

	got := agent.Run(context.Background(), "obscure query")
	want := "Introduction: No useful links found for query: obscure query"
	if got.Text != want {
		t.Errorf("Text = %q, want %q", got.Text, want)
	}
	if len(got.Sources) != 0 {
		t.Errorf("Sources = %v, want empty", got.Sources)
	}
}

func TestAgentNoContentScraped(t *testing.T) {
	resolver := &fakeResolver{urls: []string{"https://a.example/1", "https://b.example/2"}}
	extractor := &fakeExtractor{texts: map[string]string{}}
	agent := NewAgent("Background", testDeps(resolver, extractor, &fakeRanker{}, &fakeLLM{}))
	var slept []time.Duration
	agent.sleep = recordSleep(&slept)

	got := agent.Run(context.Background(), "hard query")
	want := "Background: No content scraped for: hard query"
	if got.Text != want {
		t.Errorf("Text = %q, want %q", got.Text, want)
	}
	// The attempt list survives so the failure is traceable.
	if len(got.Sources) != 2 || got.Sources[0] != "https://a.example/1" || got.Sources[1] != "https://b.example/2" {
		t.Errorf("Sources = %v, want both attempted urls", got.Sources)
	}
	if len(slept) != 1 || slept[0] != InterExtractPause {
		t.Errorf("pauses = %v, want one of %v between the two extractions", slept, InterExtractPause)
	}
}

func TestAgentSynthesizesSolarEnergyReport(t *testing.T) {
	resolver := &fakeResolver{urls: []string{"https://a.example/1", "https://b.example/2"}}
	extractor := &fakeExtractor{texts: map[string]string{
		"https://a.example/1": "batteries store energy",
		"https://b.example/2": "thermal storage banks heat",
	}}
	ranker := &fakeRanker{}
	model := &fakeLLM{reply: "Energy storage comes in several forms."}
	agent := NewAgent("Research Lead", testDeps(resolver, extractor, ranker, model))
	var slept []time.Duration
	agent.sleep = recordSleep(&slept)

	got := agent.Run(context.Background(), "solar energy storage")

	if got.Text != "Energy storage comes in several forms." {
		t.Errorf("Text = %q", got.Text)
	}
	if len(got.Sources) != 2 || got.Sources[0] != "https://a.example/1" || got.Sources[1] != "https://b.example/2" {
		t.Errorf("Sources = %v, want both urls in extraction order", got.Sources)
	}
	if ranker.gotQuery != "solar energy storage" || len(ranker.gotDocs) != 2 {
		t.Errorf("ranker saw query %q docs %v", ranker.gotQuery, ranker.gotDocs)
	}
	wantPrompt := "You are Research Lead, an expert researcher.\n\nHere is research content:\n\nbatteries store energy\n\nthermal storage banks heat\n\nWrite a well-structured content based on this."
	if len(model.prompts) != 1 || model.prompts[0] != wantPrompt {
		t.Errorf("prompt = %q\nwant %q", model.prompts, wantPrompt)
	}
	if len(slept) != 1 {
		t.Errorf("pauses = %v, want exactly one", slept)
	}
}

func TestAgentAbsorbsLLMFailure(t *testing.T) {
	resolver := &fakeResolver{urls: []string{"https://a.example/1"}}
	extractor := &fakeExtractor{texts: map[string]string{"https://a.example/1": "content"}}
	model := &fakeLLM{err: errors.New("rate limited")}
	agent := NewAgent("Summary", testDeps(resolver, extractor, &fakeRanker{}, model))
	agent.sleep = func(context.Context, time.Duration) error { return nil }

	got := agent.Run(context.Background(), "q")
	want := fmt.Sprintf("Summary: LLM failed to respond due to: %v", errors.New("rate limited"))
	if got.Text != want {
		t.Errorf("Text = %q, want %q", got.Text, want)
	}
	if len(got.Sources) != 1 || got.Sources[0] != "https://a.example/1" {
		t.Errorf("Sources = %v, want the extracted url", got.Sources)
	}
}

func TestAgentExtractsOnlyFirstTwoURLs(t *testing.T) {
	resolver := &fakeResolver{urls: []string{"u1", "u2", "u3", "u4"}}
	extractor := &fakeExtractor{texts: map[string]string{"u1": "one", "u2": "two", "u3": "three"}}
	agent := NewAgent("X", testDeps(resolver, extractor, &fakeRanker{}, &fakeLLM{reply: "ok"}))
	agent.sleep = func(context.Context, time.Duration) error { return nil }

	agent.Run(context.Background(), "q")
	if len(extractor.visited) != 2 || extractor.visited[0] != "u1" || extractor.visited[1] != "u2" {
		t.Errorf("visited = %v, want first two urls only", extractor.visited)
	}
}

func TestAgentSkipsEmptyExtractions(t *testing.T) {
	resolver := &fakeResolver{urls: []string{"u1", "u2"}}
	extractor := &fakeExtractor{texts: map[string]string{"u2": "only this"}}
	ranker := &fakeRanker{}
	agent := NewAgent("X", testDeps(resolver, extractor, ranker, &fakeLLM{reply: "ok"}))
	agent.sleep = func(context.Context, time.Duration) error { return nil }

	got := agent.Run(context.Background(), "q")
	if len(got.Sources) != 1 || got.Sources[0] != "u2" {
		t.Errorf("Sources = %v, want only the url that yielded text", got.Sources)
	}
	if len(ranker.gotDocs) != 1 || ranker.gotDocs[0] != "only this" {
		t.Errorf("ranked docs = %v", ranker.gotDocs)
	}
}
