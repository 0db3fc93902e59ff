package synth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sells-group/guarded-chat/internal/model"
)

// SystemPolicy is the fixed system instruction sent with every synthesis call.
const SystemPolicy = "You are the Guarded Insights Assistant. Your task is to produce a final, " +
	"truthful, and guarded response for business insights. Always respect the guardrail " +
	"annotations provided. If evidence confidence is limited or no direct evidence " +
	"exists, you must clearly state the limitation and avoid inventing facts. " +
	"Only rely on the supplied sources. If a source is flagged as outdated, you must warn " +
	"the user. Provide clear, structured answers with actionable guidance when possible."

const noSources = "No sources were returned."

const instructions = "Instructions:\n" +
	"- Produce a final answer that adheres to the guardrail assessment.\n" +
	"- Clearly indicate where evidence is limited or outdated.\n" +
	"- Do not fabricate data. If information is missing, state the gap and optionally " +
	"outline a framework or next steps.\n" +
	"- Reference sources inline using [#] notation matching the numbered list when relevant.\n"

// BuildBrief renders the assessment as labeled lines, one per finding.
func BuildBrief(a model.GuardrailAssessment) string {
	lines := []string{
		"Evidence confidence: " + string(a.EvidenceConfidence),
		"Evidence summary: " + a.EvidenceSummary,
		"Market scope: " + a.MarketScope,
		"Category scope: " + a.CategoryScope,
		"Timeframe scope: " + a.TimeframeScope,
		"Tiered market focus: " + a.TieredMarketFocus,
	}
	if a.FabricationWarning != nil {
		lines = append(lines, "Fabrication warning: "+*a.FabricationWarning)
	}
	return strings.Join(lines, "\n")
}

// FormatSources renders the numbered source catalogue. Numbering is 1-based
// and follows the flag order so inline [#] citations line up.
func FormatSources(flags []model.SourceFlag) string {
	if len(flags) == 0 {
		return noSources
	}

	var lines []string
	for i, f := range flags {
		lines = append(lines,
			fmt.Sprintf("%d. Title: %s", i+1, f.Title),
			"   URL: "+f.URL,
			"   Classification: "+string(f.Label),
		)
		if f.Description != "" {
			lines = append(lines, "   Summary: "+f.Description)
		}
		if f.PublishedAt != nil && *f.PublishedAt != "" {
			line := "   Published at: " + *f.PublishedAt
			if f.AgeInYears != nil {
				line += fmt.Sprintf(" (approx. age: %s years)", formatAge(*f.AgeInYears))
			}
			lines = append(lines, line)
		}
		if f.IsOutdated {
			lines = append(lines, "   WARNING: Source older than 3 years.")
		}
	}
	return strings.Join(lines, "\n")
}

// BuildUserContent assembles the user message for the synthesis call.
func BuildUserContent(in Input) string {
	var b strings.Builder
	b.WriteString("Original user prompt:\n")
	b.WriteString(in.Prompt)
	b.WriteString("\n\nInitial response from the assistant:\n")
	b.WriteString(in.Answer)
	b.WriteString("\n\nGuardrail assessment:\n")
	b.WriteString(BuildBrief(in.Assessment))
	b.WriteString("\n\nSource catalogue:\n")
	b.WriteString(FormatSources(in.Sources))
	b.WriteString("\n\n")
	b.WriteString(instructions)
	return b.String()
}

// formatAge prints the shortest decimal form with at least one fractional
// digit: 4.1 renders as "4.1", 3 as "3.0".
func formatAge(years float64) string {
	s := strconv.FormatFloat(years, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
