package research

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mohammad-safakhou/scribe/internal/helpers"
)

// Section is one planned subdivision of the report with the queries
// that will research it.
type Section struct {
	Name     string   `json:"name"`
	Question string   `json:"question"`
	Queries  []string `json:"queries"`
}

// Structure is the organized research plan consumed by the builder.
// Sections keep the declaration order of the planner output.
type Structure struct {
	Topic    string    `json:"topic"`
	Sections []Section `json:"sections"`
}

// ParseStructure consumes raw planner output: reasoning preamble and
// code fences are stripped, the outermost JSON object extracted and
// decoded. Planner outputs that only carry a flat searchQueries list
// are wrapped into a single Introduction section.
func ParseStructure(raw string) (*Structure, error) {
	cleaned, err := helpers.ExtractJSON(helpers.StripThinking(raw))
	if err != nil {
		return nil, fmt.Errorf("no JSON object in planner output: %w", err)
	}

	var doc struct {
		Topic     string          `json:"topic"`
		Organized json.RawMessage `json:"organizedSearchQueries"`
		Flat      []string        `json:"searchQueries"`
	}
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, fmt.Errorf("invalid planner JSON: %w", err)
	}

	if len(doc.Organized) > 0 && string(doc.Organized) != "null" {
		sections, err := decodeSections(doc.Organized)
		if err != nil {
			return nil, err
		}
		return &Structure{Topic: doc.Topic, Sections: sections}, nil
	}

	if doc.Flat != nil {
		topic := doc.Topic
		if topic == "" {
			topic = "the topic"
		}
		return &Structure{
			Topic: doc.Topic,
			Sections: []Section{{
				Name:     "Introduction",
				Question: fmt.Sprintf("What is the beginning of %s?", topic),
				Queries:  doc.Flat,
			}},
		}, nil
	}

	return nil, fmt.Errorf("planner JSON missing organizedSearchQueries or searchQueries")
}

// decodeSections walks the object token by token so sections come out
// in the order the planner declared them, which a map decode would
// lose.
func decodeSections(raw json.RawMessage) ([]Section, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode organizedSearchQueries: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("organizedSearchQueries is not an object")
	}

	var sections []Section
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode section name: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("section name is not a string")
		}

		var body struct {
			Question string   `json:"question"`
			Queries  []string `json:"queries"`
		}
		if err := dec.Decode(&body); err != nil {
			return nil, fmt.Errorf("decode section %q: %w", name, err)
		}
		sections = append(sections, Section{Name: name, Question: body.Question, Queries: body.Queries})
	}
	return sections, nil
}
