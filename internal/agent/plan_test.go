package agent

import (
	"strings"
	"testing"
)

func TestTopoSort_OrdersDependenciesFirst(t *testing.T) {
	steps := []*PlanStep{
		{ID: "s3", DependsOn: []string{"s1", "s2"}},
		{ID: "s1"},
		{ID: "s2", DependsOn: []string{"s1"}},
	}

	ordered, err := topoSort(steps)
	if err != nil {
		t.Fatalf("topoSort failed: %v", err)
	}

	pos := make(map[string]int)
	for i, s := range ordered {
		pos[s.ID] = i
	}
	if pos["s1"] > pos["s2"] || pos["s2"] > pos["s3"] || pos["s1"] > pos["s3"] {
		t.Errorf("dependency order violated: %v", pos)
	}
}

func TestTopoSort_DetectsCycle(t *testing.T) {
	steps := []*PlanStep{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
	}
	if _, err := topoSort(steps); err == nil {
		t.Fatal("expected cycle error")
	} else if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTopoSort_UnknownDependency(t *testing.T) {
	steps := []*PlanStep{
		{ID: "a", DependsOn: []string{"ghost"}},
	}
	if _, err := topoSort(steps); err == nil {
		t.Fatal("expected unknown dependency error")
	}
}

func TestTopoSort_DuplicateID(t *testing.T) {
	steps := []*PlanStep{
		{ID: "a"},
		{ID: "a"},
	}
	if _, err := topoSort(steps); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"steps": []}`, `{"steps": []}`},
		{"fenced", "Here is the plan:\n```json\n{\"steps\": []}\n```", `{"steps": []}`},
		{"prose", `Sure! {"steps": []} Hope that helps.`, `{"steps": []}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractJSON(tc.in)
			if err != nil {
				t.Fatalf("extractJSON failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}

	if _, err := extractJSON("no json here"); err == nil {
		t.Error("expected error for text without JSON")
	}
}
