// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/campus-agents/internal/pipeline"
	"github.com/jonathan/campus-agents/internal/store"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to a terminal; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to n runes, ending in "...".
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintTrace outputs the stages a run visited with their durations.
func (p *Printer) PrintTrace(name string, events []pipeline.ProgressEvent) {
	if len(events) == 0 {
		return
	}

	var sb strings.Builder
	for _, e := range events {
		switch e.Type {
		case pipeline.EventStageExit:
			fmt.Fprintf(&sb, "✓ %-32s %8s\n", e.Stage, e.Elapsed.Round(100_000))
		case pipeline.EventShortCircuit:
			fmt.Fprintf(&sb, "  ↳ error set, skipping to %s\n", e.Next)
		case pipeline.EventRunFault:
			fmt.Fprintf(&sb, "✗ %s: %v\n", e.Stage, e.Fault)
		case pipeline.EventRunComplete:
			fmt.Fprintf(&sb, "\nTotal: %s\n", e.Elapsed.Round(100_000))
		}
	}

	p.printBox("PIPELINE TRACE: "+name, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResult outputs a human-readable summary of a pipeline's final state.
func (p *Printer) PrintResult(name string, out map[string]any) {
	if out == nil {
		return
	}
	doc := store.Document(out)

	var sb strings.Builder
	if msg := doc.String("error"); msg != "" {
		fmt.Fprintf(&sb, "Error: %s\n\n", msg)
	}

	switch name {
	case "matching":
		writeMatches(&sb, doc)
	case "safety":
		writeSafety(&sb, doc)
	case "onboarding":
		writeOnboarding(&sb, doc)
	case "events_communities":
		writeRecommendations(&sb, doc)
	case "chat_assistant":
		writeChat(&sb, doc)
	case "help":
		writeHelp(&sb, doc)
	default:
		keys := make([]string, 0, len(out))
		for k := range out {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&sb, "Keys: %s\n", strings.Join(keys, ", "))
	}

	p.printBox("RESULT: "+strings.ToUpper(name), strings.TrimSuffix(sb.String(), "\n"))
}

func items(doc store.Document, key string) []store.Document {
	raw, _ := doc[key].([]any)
	out := make([]store.Document, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, store.Document(m))
		}
	}
	return out
}

func writeMore(sb *strings.Builder, total int) {
	if total > maxItemsToShow {
		fmt.Fprintf(sb, "  ... and %d more\n", total-maxItemsToShow)
	}
}

func writeMatches(sb *strings.Builder, doc store.Document) {
	matches := items(doc, "final_matches")
	fmt.Fprintf(sb, "Matches: %d\n", len(matches))
	for i, m := range matches[:min(len(matches), maxItemsToShow)] {
		score, _ := m.Float("score")
		fmt.Fprintf(sb, "#%d  %s  (score %.0f)\n", i+1, m.String("name"), score)
		if why := m.String("why_compatible"); why != "" {
			fmt.Fprintf(sb, "    %s\n", why)
		}
	}
	writeMore(sb, len(matches))

	if meta, ok := doc["response_metadata"].(map[string]any); ok {
		md := store.Document(meta)
		total, _ := md.Int("total_candidates")
		filtered, _ := md.Int("filtered_count")
		fmt.Fprintf(sb, "\nCandidates: %d, after filters: %d\n", total, filtered)
	}
}

func writeSafety(sb *strings.Builder, doc store.Document) {
	confidence, _ := doc.Float("confidence")
	fmt.Fprintf(sb, "Action:     %s\n", doc.String("recommended_action"))
	fmt.Fprintf(sb, "Safe:       %v\n", doc["safe"])
	fmt.Fprintf(sb, "Confidence: %.2f\n", confidence)
	flags := items(doc, "flags")
	if len(flags) > 0 {
		sb.WriteString("Flags:\n")
		for _, f := range flags {
			c, _ := f.Float("confidence")
			fmt.Fprintf(sb, "  • %s %.2f (%s)\n", f.String("flag"), c, f.String("rule"))
		}
	}
}

func writeOnboarding(sb *strings.Builder, doc store.Document) {
	step, _ := doc.Int("current_step")
	fmt.Fprintf(sb, "Step:     %d\n", step)
	fmt.Fprintf(sb, "Valid:    %v\n", doc["is_valid"])
	fmt.Fprintf(sb, "Complete: %v\n", doc["profile_complete"])
	if errs, ok := doc["validation_errors"].(map[string]any); ok && len(errs) > 0 {
		fields := make([]string, 0, len(errs))
		for field := range errs {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(sb, "  • %s: %v\n", field, errs[field])
		}
	}
	if prompt := doc.String("next_prompt"); prompt != "" {
		fmt.Fprintf(sb, "\n%s\n", prompt)
	}
}

func writeRecommendations(sb *strings.Builder, doc store.Document) {
	recs := items(doc, "ranked_recommendations")
	fmt.Fprintf(sb, "Recommendations: %d\n", len(recs))
	for i, r := range recs[:min(len(recs), maxItemsToShow)] {
		title := r.String("title")
		if title == "" {
			title = r.String("name")
		}
		score, _ := r.Float("score")
		fmt.Fprintf(sb, "#%d  %s  (score %.0f)\n", i+1, title, score)
		if reason := r.String("reason"); reason != "" {
			fmt.Fprintf(sb, "    %s\n", reason)
		}
	}
	writeMore(sb, len(recs))
}

func writeChat(sb *strings.Builder, doc store.Document) {
	fmt.Fprintf(sb, "Action: %s\n", doc.String("action"))
	if convs := items(doc, "conversations"); len(convs) > 0 {
		fmt.Fprintf(sb, "Conversations: %d\n", len(convs))
	}
	if summary := doc.String("summary"); summary != "" {
		fmt.Fprintf(sb, "\nSummary:\n%s\n", summary)
	}
	if draft := doc.String("draft_reply"); draft != "" {
		fmt.Fprintf(sb, "\nDraft reply:\n%s\n", draft)
	}
}

func writeHelp(sb *strings.Builder, doc store.Document) {
	confidence, _ := doc.Float("confidence")
	fmt.Fprintf(sb, "%s\n\n", doc.String("response"))
	fmt.Fprintf(sb, "Confidence: %.2f\n", confidence)
	if sources := doc.Strings("sources"); len(sources) > 0 {
		fmt.Fprintf(sb, "Sources: %s\n", strings.Join(sources, ", "))
	}
}
