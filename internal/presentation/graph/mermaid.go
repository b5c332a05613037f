// Package graph renders the kiosk screen graph for humans: Mermaid for diagrams,
// Markdown for terminals and YAML for tooling.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/kiosk/pkg/domain"
	"github.com/aretw0/kiosk/pkg/flow"
)

// anyState is the pseudo node universal triggers are drawn from.
const anyState = "ANY"

// Overlay contains live session data to highlight on the graph.
type Overlay struct {
	Visited []domain.State
	Current domain.State
}

// GenerateMermaid produces a Mermaid flowchart for table.
// It applies semantic styling:
// - Initial screen: ((Circle))
// - ERROR and TIMEOUT: {{Hexagon}}
// - Default: [Rectangle]
// Universal triggers are collapsed onto a single ANY node with dotted edges.
// Overlay styles (visited/current) are applied when overlay is not nil.
func GenerateMermaid(table *flow.Table, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	universal := universalTriggers(table)

	for _, s := range table.States() {
		safeID := sanitizeMermaidID(string(s))

		opener, closer := "[", "]"
		switch {
		case s == table.Initial():
			opener, closer = "((", "))"
		case s == domain.StateError || s == domain.StateTimeout:
			opener, closer = "{{", "}}"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, s, closer)

		for _, t := range table.Outgoing(s) {
			if _, ok := universal[t.Trigger]; ok {
				continue
			}
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, t.Trigger, sanitizeMermaidID(string(t.To)))
		}
	}

	if len(universal) > 0 {
		fmt.Fprintf(&sb, "    %s[/\"any screen\"/]\n", anyState)
		for _, trig := range table.Triggers(domain.StateError) {
			to, ok := universal[trig]
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", anyState, trig, sanitizeMermaidID(string(to)))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast regardless of theme
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[domain.State]bool)
		for _, s := range overlay.Visited {
			if seen[s] || !table.Has(s) {
				continue
			}
			seen[s] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", sanitizeMermaidID(string(s)))
		}
		if overlay.Current != "" && table.Has(overlay.Current) {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(string(overlay.Current)))
		}
	}

	return sb.String()
}

// universalTriggers maps each universal trigger to its destination.
func universalTriggers(table *flow.Table) map[domain.Trigger]domain.State {
	out := make(map[domain.Trigger]domain.State)
	for _, t := range table.Outgoing(domain.StateError) {
		if table.IsUniversal(t.Trigger) {
			out[t.Trigger] = t.To
		}
	}
	return out
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
