package research

import (
	"context"
	"log"
	"strings"
	"time"
)

// SourcesKey holds the sources-by-section map inside the persisted
// report payload. Renderers skip it when laying out body sections.
const SourcesKey = "Sources Section"

// Sink persists pipeline outputs. A nil sink leaves results in memory
// only; a failing sink is logged and ignored so persistence problems
// never cost a computed report.
type Sink interface {
	SaveWorkerResult(ctx context.Context, structureID, sessionID, workerType string, queries, rawTexts []string, compiledText string, processingTime float64) (string, error)
	SaveFinalReport(ctx context.Context, sessionID, structureID string, reportData map[string]any) (string, error)
}

// SectionRunner produces content for one query; Agent is the real
// implementation.
type SectionRunner interface {
	Run(ctx context.Context, query string) SectionResult
}

// AgentFactory builds the runner for a named section.
type AgentFactory func(name string) SectionRunner

// Pipeline runs all queries of one report section through that
// section's agent and persists the combined outcome.
type Pipeline struct {
	agents AgentFactory
	sink   Sink
	logger *log.Logger
}

func NewPipeline(deps Deps, sink Sink) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	}
	return &Pipeline{
		agents: func(name string) SectionRunner { return NewAgent(name, deps) },
		sink:   sink,
		logger: logger,
	}
}

// NewPipelineWithFactory is the test seam: it accepts a prebuilt
// factory instead of deriving agents from shared dependencies.
func NewPipelineWithFactory(agents AgentFactory, sink Sink, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	}
	return &Pipeline{agents: agents, sink: sink, logger: logger}
}

// RunSection researches every query of section in order and compiles
// the per-query texts into one blank-line-joined body. Sources
// accumulate in extraction order across queries, duplicates included.
// A section with no queries falls back to researching its guiding
// question.
func (p *Pipeline) RunSection(ctx context.Context, structureID, sessionID string, section Section) SectionResult {
	start := time.Now()
	sectionsProcessed.Inc()

	queries := section.Queries
	if len(queries) == 0 && section.Question != "" {
		queries = []string{section.Question}
	}

	agent := p.agents(section.Name)
	var rawTexts []string
	var sources []string
	for _, query := range queries {
		result := agent.Run(ctx, query)
		rawTexts = append(rawTexts, result.Text)
		sources = append(sources, result.Sources...)
	}
	compiled := strings.Join(rawTexts, "\n\n")

	elapsed := time.Since(start).Seconds()
	sectionDuration.Observe(elapsed)

	if p.sink != nil {
		if _, err := p.sink.SaveWorkerResult(ctx, structureID, sessionID, section.Name, queries, rawTexts, compiled, elapsed); err != nil {
			p.logger.Printf("saving section %q result: %v", section.Name, err)
		}
	}

	if sources == nil {
		sources = []string{}
	}
	return SectionResult{Text: compiled, Sources: sources}
}

// Report is a fully assembled research report. Sections maps section
// name to synthesized text; Order preserves the structure's section
// sequence; Sources holds each section's URLs in extraction order.
type Report struct {
	Sections map[string]string   `json:"sections"`
	Order    []string            `json:"order"`
	Sources  map[string][]string `json:"sources"`
}

// Builder turns a parsed structure into a complete report, one section
// at a time.
type Builder struct {
	pipeline *Pipeline
	sink     Sink
	logger   *log.Logger
}

func NewBuilder(pipeline *Pipeline, sink Sink, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.New(log.Writer(), "[BUILDER] ", log.LstdFlags)
	}
	return &Builder{pipeline: pipeline, sink: sink, logger: logger}
}

// BuildReport runs every section of structure in declared order and
// persists the assembled report. The returned report is complete even
// when persistence fails; a section that produced nothing but
// placeholders still occupies its slot so degraded output stays
// visible.
func (b *Builder) BuildReport(ctx context.Context, sessionID, structureID string, structure *Structure) *Report {
	report := &Report{
		Sections: make(map[string]string, len(structure.Sections)),
		Sources:  make(map[string][]string, len(structure.Sections)),
	}

	for _, section := range structure.Sections {
		result := b.pipeline.RunSection(ctx, structureID, sessionID, section)
		report.Sections[section.Name] = result.Text
		report.Sources[section.Name] = result.Sources
		report.Order = append(report.Order, section.Name)
	}

	reportsBuilt.Inc()

	if b.sink != nil {
		reportData := make(map[string]any, len(report.Sections)+1)
		for name, text := range report.Sections {
			reportData[name] = text
		}
		reportData[SourcesKey] = report.Sources
		if _, err := b.sink.SaveFinalReport(ctx, sessionID, structureID, reportData); err != nil {
			b.logger.Printf("saving final report for session %s: %v", sessionID, err)
		}
	}
	return report
}
