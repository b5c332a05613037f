package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/kiosk/pkg/flow"
	"gopkg.in/yaml.v3"
)

// Markdown renders the transition table as one Markdown section per screen.
func Markdown(table *flow.Table) string {
	var sb strings.Builder
	sb.WriteString("# Kiosk screen flow\n\n")
	fmt.Fprintf(&sb, "Initial screen: `%s`\n\n", table.Initial())

	for _, s := range table.States() {
		out := table.Outgoing(s)
		fmt.Fprintf(&sb, "## %s\n\n", s)
		if len(out) == 0 {
			sb.WriteString("_No outgoing transitions._\n\n")
			continue
		}
		sb.WriteString("| Trigger | To | Universal |\n|---|---|---|\n")
		for _, t := range out {
			mark := ""
			if table.IsUniversal(t.Trigger) {
				mark = "yes"
			}
			fmt.Fprintf(&sb, "| `%s` | `%s` | %s |\n", t.Trigger, t.To, mark)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Document is the YAML export of a flow table.
type Document struct {
	Initial     string          `yaml:"initial"`
	States      []string        `yaml:"states"`
	Transitions []TransitionDoc `yaml:"transitions"`
}

// TransitionDoc is one edge of the YAML export.
type TransitionDoc struct {
	Trigger   string `yaml:"trigger"`
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	Universal bool   `yaml:"universal,omitempty"`
}

// YAML renders the transition table as a YAML document.
func YAML(table *flow.Table) ([]byte, error) {
	doc := Document{Initial: string(table.Initial())}
	for _, s := range table.States() {
		doc.States = append(doc.States, string(s))
	}
	for _, t := range table.Transitions() {
		doc.Transitions = append(doc.Transitions, TransitionDoc{
			Trigger:   string(t.Trigger),
			From:      string(t.From),
			To:        string(t.To),
			Universal: table.IsUniversal(t.Trigger),
		})
	}
	return yaml.Marshal(doc)
}
