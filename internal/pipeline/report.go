package pipeline

import (
	"fmt"
	"strings"

	"github.com/formworks/formfill-cli/internal/model"
)

// FormatReport renders a human-readable fill report. Fields appear in
// schema order; a review section at the end collects everything a human
// still has to look at.
func FormatReport(result *model.RunResult) string {
	var b strings.Builder

	name := result.FormName
	if name == "" {
		name = "(unnamed form)"
	}
	fmt.Fprintf(&b, "# Fill Report: %s\n", name)
	if result.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", result.RunID)
	}
	b.WriteString("\n")

	s := result.Summary
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Fields: %d total, %d filled, %d rejected, %d unresolved\n",
		s.TotalFields, s.Filled, s.Rejected, s.Unresolved)
	fmt.Fprintf(&b, "- Duration: %dms\n", s.DurationMS)
	fmt.Fprintf(&b, "- Token usage: %d input, %d output\n",
		result.Usage.InputTokens, result.Usage.OutputTokens)
	fmt.Fprintf(&b, "- Estimated cost: $%.4f\n\n", result.Usage.Cost)

	b.WriteString("## Fields\n")
	if len(result.Results) == 0 {
		b.WriteString("No fields processed.\n")
	}
	for i := range result.Results {
		r := &result.Results[i]
		switch r.Status {
		case model.StatusFilled:
			fmt.Fprintf(&b, "- **%s**: %s [%.0f%%, %s]\n",
				r.FieldID, r.Value(), r.Confidence*100, r.Origin)
		case model.StatusRejected:
			fmt.Fprintf(&b, "- **%s**: rejected (%s), raw value %q [%.0f%%]\n",
				r.FieldID, resultReason(r), rawValue(r), r.Confidence*100)
		default:
			fmt.Fprintf(&b, "- **%s**: unresolved (%s)\n",
				r.FieldID, resultReason(r))
		}
	}

	review := reviewLines(result.Results)
	if len(review) > 0 {
		b.WriteString("\n## Needs Review\n")
		for _, line := range review {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// reviewLines builds one line per unfilled field, listing the runner-up
// values a reviewer can pick from.
func reviewLines(results []model.MappingResult) []string {
	var lines []string
	for i := range results {
		r := &results[i]
		if r.Status == model.StatusFilled {
			continue
		}
		line := fmt.Sprintf("- %s: %s", r.FieldID, resultReason(r))
		if r.Diagnostics != nil && len(r.Diagnostics.Alternatives) > 0 {
			var alts []string
			for _, a := range r.Diagnostics.Alternatives {
				alts = append(alts, fmt.Sprintf("%q (%.0f%%)", a.Value, a.Confidence*100))
			}
			line += ", alternatives: " + strings.Join(alts, ", ")
		}
		lines = append(lines, line)
	}
	return lines
}

func resultReason(r *model.MappingResult) string {
	if r.Diagnostics == nil || r.Diagnostics.Reason == "" {
		return "unknown"
	}
	return r.Diagnostics.Reason
}

func rawValue(r *model.MappingResult) string {
	if r.Diagnostics == nil {
		return ""
	}
	return r.Diagnostics.RawValue
}
