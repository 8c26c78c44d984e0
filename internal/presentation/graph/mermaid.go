package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	httpAdapter "github.com/aretw0/davinci/pkg/adapters/http"
)

// GenerateMermaid produces a Mermaid flowchart of a mock script. Shapes
// follow what a step returns:
// - Start: ((Circle))
// - Form (a ContinueNode): [/Parallelogram/]
// - Error or failure status: {{Hexagon}}
// - Anything else: ([Stadium])
// Routes become edges labelled with their conditions.
func GenerateMermaid(s *httpAdapter.Script) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, name := range slices.Sorted(maps.Keys(s.Steps)) {
		step := s.Steps[name]
		safeID := sanitizeMermaidID(name)

		opener, closer := "([", "])"
		switch {
		case name == s.Start:
			opener, closer = "((", "))"
		case step.Status >= 400:
			opener, closer = "{{", "}}"
		case step.Body["form"] != nil:
			opener, closer = "[/", "/]"
		}

		label := name
		if step.Status != 0 {
			label = fmt.Sprintf("%s <br/> %d", name, step.Status)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		for _, r := range step.Routes {
			arrow := "-->"
			if cond := condition(r.When); cond != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", strings.ReplaceAll(cond, "\"", "'"))
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(r.Goto))
		}
	}

	return sb.String()
}

func condition(when map[string]string) string {
	parts := make([]string, 0, len(when))
	for _, path := range slices.Sorted(maps.Keys(when)) {
		parts = append(parts, path+"="+when[path])
	}
	return strings.Join(parts, " & ")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
