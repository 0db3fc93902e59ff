package guardrail

import "github.com/sells-group/guarded-chat/internal/model"

const (
	summaryNoEvidence = "No supporting sources were returned. I can outline a typical approach but do not have data-backed findings."
	summaryStrong     = "Multiple recent empirical sources support these findings."
	summaryOutdated   = "Some sources may be outdated (>3 years old). Treat insights as directional only."
	summarySingle     = "Only a single or contextual source was identified. Consider validating with additional research."

	// FabricationWarning is attached when no sources back the answer.
	FabricationWarning = "I don't have enough evidence to answer directly. I can share a general framework if helpful."
)

// minStrongEmpirical is the number of empirical sources needed for "strong data".
const minStrongEmpirical = 2

// AggregateEvidence computes the confidence tier, a summary and an optional
// fabrication warning. Rules apply in order: no sources, strong (enough
// empirical sources and nothing outdated), any outdated, otherwise limited.
func AggregateEvidence(flags []model.SourceFlag) (model.EvidenceConfidence, string, *string) {
	if len(flags) == 0 {
		warning := FabricationWarning
		return model.ConfidenceNone, summaryNoEvidence, &warning
	}

	var empirical, outdated int
	for _, f := range flags {
		if f.Label == model.LabelEmpirical {
			empirical++
		}
		if f.IsOutdated {
			outdated++
		}
	}

	switch {
	case empirical >= minStrongEmpirical && outdated == 0:
		return model.ConfidenceStrong, summaryStrong, nil
	case outdated > 0:
		return model.ConfidenceLimited, summaryOutdated, nil
	default:
		return model.ConfidenceLimited, summarySingle, nil
	}
}
