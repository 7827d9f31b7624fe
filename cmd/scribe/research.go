package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/scribe/config"
	"github.com/mohammad-safakhou/scribe/internal/embed"
	"github.com/mohammad-safakhou/scribe/internal/extract"
	"github.com/mohammad-safakhou/scribe/internal/helpers"
	"github.com/mohammad-safakhou/scribe/internal/llm"
	"github.com/mohammad-safakhou/scribe/internal/rank"
	"github.com/mohammad-safakhou/scribe/internal/research"
	"github.com/mohammad-safakhou/scribe/internal/search"
	"github.com/mohammad-safakhou/scribe/internal/store"
)

func researchCMD() *cobra.Command {
	var structureFile string
	var sections string
	var cfgPath string

	var researchCmd = &cobra.Command{
		Use:   "research \"question\"",
		Short: "Run one research report from the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(args[0])
			if query == "" {
				return fmt.Errorf("question required")
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			structure, err := loadStructure(query, structureFile, sections)
			if err != nil {
				return err
			}
			return runResearch(cfg, query, structure)
		},
	}
	researchCmd.Flags().StringVar(&structureFile, "structure", "", "planner output file (JSON or raw planner text)")
	researchCmd.Flags().StringVar(&sections, "sections", "", "comma-separated section names when no structure file is given")
	researchCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/scribe_config.json)")

	return researchCmd
}

// loadStructure resolves the research plan: a planner output file wins,
// then explicit section names, then a single-section plan built from
// the question itself.
func loadStructure(query, structureFile, sections string) (*research.Structure, error) {
	if structureFile != "" {
		raw, err := os.ReadFile(structureFile)
		if err != nil {
			return nil, err
		}
		return research.ParseStructure(string(raw))
	}
	if sections != "" {
		s := &research.Structure{Topic: query}
		for _, name := range strings.Split(sections, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			s.Sections = append(s.Sections, research.Section{
				Name:    name,
				Queries: []string{query + " " + name},
			})
		}
		if len(s.Sections) > 0 {
			return s, nil
		}
	}
	return &research.Structure{
		Topic: query,
		Sections: []research.Section{{
			Name:     "Introduction",
			Question: fmt.Sprintf("What is the beginning of %s?", query),
			Queries:  []string{query},
		}},
	}, nil
}

func runResearch(cfg *config.Config, query string, structure *research.Structure) error {
	ctx := context.Background()

	chain := search.NewDefaultChain(search.Options{
		BraveAPIKey:  cfg.Search.Brave.APIKey,
		SerperAPIKey: cfg.Search.Serper.APIKey,
	}, log.New(log.Writer(), "[SEARCH] ", log.LstdFlags))

	extractor := extract.NewExtractor(log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags))
	if cfg.Extract.Timeout > 0 {
		extractor.Timeout = cfg.Extract.Timeout
	}

	embedder, err := embed.New(embed.Options{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		Dimension:  cfg.Embedding.Dimension,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		OllamaHost: cfg.Embedding.OllamaHost,
	})
	if err != nil {
		return err
	}

	deps := research.Deps{
		Resolver:  chain,
		Extractor: extractor,
		Ranker:    rank.New(embedder, log.New(log.Writer(), "[RANK] ", log.LstdFlags)),
		Truncate:  rank.Truncate,
		LLM: llm.NewOpenAIClient(llm.Options{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
		}),
		Logger:     log.New(log.Writer(), "[AGENT] ", log.LstdFlags),
		NumResults: cfg.Search.NumResults,
	}

	// The store is optional for terminal runs: without it the report
	// is printed but not saved.
	var sink research.Sink
	var st *store.Store
	var sessionID, structureID string
	if dsn, derr := cfg.Storage.Postgres.DSN(); derr != nil {
		log.Printf("store not configured, printing only: %v", derr)
	} else if s, serr := store.NewWithDSN(ctx, dsn); serr != nil {
		log.Printf("store unavailable, printing only: %v", serr)
	} else {
		st = s
	}
	if st != nil {
		sessionID, structureID, err = recordRun(ctx, st, query, structure)
		if err != nil {
			log.Printf("recording run failed, printing only: %v", err)
			st = nil
		} else {
			sink = st
		}
	}

	pipeline := research.NewPipeline(deps, sink)
	builder := research.NewBuilder(pipeline, sink, log.New(log.Writer(), "[BUILDER] ", log.LstdFlags))
	report := builder.BuildReport(ctx, sessionID, structureID, structure)

	printReport(report)

	if st != nil {
		if err := st.SetSessionStatus(ctx, sessionID, store.SessionStatusComplete); err != nil {
			log.Printf("marking session complete: %v", err)
		}
		fmt.Printf("saved as session %s\n", sessionID)
	}
	return nil
}

func recordRun(ctx context.Context, st *store.Store, query string, structure *research.Structure) (string, string, error) {
	sessionID, err := st.CreateSession(ctx, "", map[string]any{"query": query, "origin": "cli"})
	if err != nil {
		return "", "", err
	}
	var queries []string
	for _, s := range structure.Sections {
		queries = append(queries, s.Queries...)
	}
	queryID, err := st.SaveResearchQueries(ctx, sessionID, query, queries)
	if err != nil {
		return "", "", err
	}
	structureID, err := st.SaveResearchStructure(ctx, queryID, sessionID, structure)
	if err != nil {
		return "", "", err
	}
	return sessionID, structureID, nil
}

func printReport(report *research.Report) {
	for _, name := range report.Order {
		fmt.Printf("## %s\n\n%s\n\n", name, report.Sections[name])
		if sources := report.Sources[name]; len(sources) > 0 {
			fmt.Println("Sources:")
			for _, line := range helpers.FormatSources(sources) {
				fmt.Println("  " + line)
			}
			fmt.Println()
		}
	}
}
