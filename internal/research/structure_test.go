package research

import (
	"testing"
)

func TestParseStructureOrganized(t *testing.T) {
	raw := `Planning the research now.</think>
Here is the plan:
` + "```json" + `
{
  "topic": "solar energy storage",
  "organizedSearchQueries": {
    "Introduction": {"question": "What is solar storage?", "queries": ["solar storage basics"]},
    "Background": {"question": "How did it evolve?", "queries": ["history of grid batteries", "pumped hydro origins"]},
    "Applications": {"question": "Where is it used?", "queries": ["residential solar batteries"]}
  }
}
` + "```"

	s, err := ParseStructure(raw)
	if err != nil {
		t.Fatalf("ParseStructure: %v", err)
	}
	if s.Topic != "solar energy storage" {
		t.Errorf("Topic = %q", s.Topic)
	}
	wantOrder := []string{"Introduction", "Background", "Applications"}
	if len(s.Sections) != len(wantOrder) {
		t.Fatalf("got %d sections, want %d", len(s.Sections), len(wantOrder))
	}
	for i, name := range wantOrder {
		if s.Sections[i].Name != name {
			t.Errorf("section[%d] = %q, want %q", i, s.Sections[i].Name, name)
		}
	}
	if s.Sections[1].Question != "How did it evolve?" {
		t.Errorf("Background question = %q", s.Sections[1].Question)
	}
	if len(s.Sections[1].Queries) != 2 || s.Sections[1].Queries[1] != "pumped hydro origins" {
		t.Errorf("Background queries = %v", s.Sections[1].Queries)
	}
}

func TestParseStructureKeepsDeclarationOrder(t *testing.T) {
	// Deliberately non-alphabetical so a map-based decode would scramble it.
	raw := `{"organizedSearchQueries": {
		"Zeta": {"question": "z", "queries": ["z1"]},
		"Alpha": {"question": "a", "queries": ["a1"]},
		"Mid": {"question": "m", "queries": ["m1"]},
		"Beta": {"question": "b", "queries": ["b1"]}
	}}`

	s, err := ParseStructure(raw)
	if err != nil {
		t.Fatalf("ParseStructure: %v", err)
	}
	want := []string{"Zeta", "Alpha", "Mid", "Beta"}
	for i, name := range want {
		if s.Sections[i].Name != name {
			t.Fatalf("section[%d] = %q, want %q", i, s.Sections[i].Name, name)
		}
	}
}

func TestParseStructureFlatFallback(t *testing.T) {
	s, err := ParseStructure(`{"topic": "quantum computing", "searchQueries": ["qubits", "error correction"]}`)
	if err != nil {
		t.Fatalf("ParseStructure: %v", err)
	}
	if len(s.Sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(s.Sections))
	}
	sec := s.Sections[0]
	if sec.Name != "Introduction" {
		t.Errorf("Name = %q", sec.Name)
	}
	if sec.Question != "What is the beginning of quantum computing?" {
		t.Errorf("Question = %q", sec.Question)
	}
	if len(sec.Queries) != 2 || sec.Queries[0] != "qubits" {
		t.Errorf("Queries = %v", sec.Queries)
	}
}

func TestParseStructureFlatFallbackWithoutTopic(t *testing.T) {
	s, err := ParseStructure(`{"searchQueries": ["something"]}`)
	if err != nil {
		t.Fatalf("ParseStructure: %v", err)
	}
	if got := s.Sections[0].Question; got != "What is the beginning of the topic?" {
		t.Errorf("Question = %q", got)
	}
}

func TestParseStructureErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"no json", "the model rambled and never produced a plan"},
		{"missing keys", `{"topic": "x"}`},
		{"organized not an object", `{"organizedSearchQueries": ["not", "an", "object"]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseStructure(tc.raw); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
