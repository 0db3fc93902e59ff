package guardrail

import "github.com/sells-group/guarded-chat/internal/model"

// Assessor composes source classification, evidence aggregation and scope
// summarizing into a single assessment.
type Assessor struct {
	classifier *Classifier
}

// NewAssessor creates an Assessor. Options are passed to the underlying
// Classifier.
func NewAssessor(opts ...Option) *Assessor {
	return &Assessor{classifier: NewClassifier(opts...)}
}

// Assess evaluates the sources returned for a request. Source flags keep the
// input order, which downstream citation numbering relies on.
func (a *Assessor) Assess(req model.ChatRequest, sources []model.RawSource) model.GuardrailAssessment {
	flags := a.classifier.ClassifyAll(sources)
	confidence, summary, warning := AggregateEvidence(flags)
	scope := SummarizeScope(req)

	return model.GuardrailAssessment{
		EvidenceConfidence: confidence,
		EvidenceSummary:    summary,
		MarketScope:        scope.Market,
		CategoryScope:      scope.Category,
		TimeframeScope:     scope.Timeframe,
		TieredMarketFocus:  scope.TieredMarketFocus,
		FabricationWarning: warning,
		SourceFlags:        flags,
	}
}
