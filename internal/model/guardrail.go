package model

// EvidenceConfidence is the aggregate reliability tier of a response's sources.
type EvidenceConfidence string

const (
	ConfidenceStrong  EvidenceConfidence = "strong data"
	ConfidenceLimited EvidenceConfidence = "limited data"
	ConfidenceNone    EvidenceConfidence = "no direct evidence"
)

// Prompt fields the completeness check requires, in the order they are reported.
const (
	FieldMarket    = "market"
	FieldCategory  = "category"
	FieldTimeframe = "timeframe"
)

// PromptStatus is the result of the prompt completeness check.
type PromptStatus struct {
	IsComplete       bool     `json:"is_complete"`
	MissingFields    []string `json:"missing_fields"`
	FollowUpQuestion *string  `json:"follow_up_question"`
}

// Scope holds the descriptive scope strings derived from a request.
type Scope struct {
	Market            string `json:"market_scope"`
	Category          string `json:"category_scope"`
	Timeframe         string `json:"timeframe_scope"`
	TieredMarketFocus string `json:"tiered_market_focus"`
}

// GuardrailAssessment aggregates the guardrail findings for one answer.
type GuardrailAssessment struct {
	EvidenceConfidence EvidenceConfidence `json:"evidence_confidence" yaml:"evidence_confidence"`
	EvidenceSummary    string             `json:"evidence_summary" yaml:"evidence_summary"`
	MarketScope        string             `json:"market_scope" yaml:"market_scope"`
	CategoryScope      string             `json:"category_scope" yaml:"category_scope"`
	TimeframeScope     string             `json:"timeframe_scope" yaml:"timeframe_scope"`
	TieredMarketFocus  string             `json:"tiered_market_focus" yaml:"tiered_market_focus"`
	FabricationWarning *string            `json:"fabrication_warning" yaml:"fabrication_warning"`
	SourceFlags        []SourceFlag       `json:"source_flags" yaml:"source_flags"`
}
