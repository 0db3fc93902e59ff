package model

// SourceLabel classifies a source as evidence or context.
type SourceLabel string

const (
	LabelEmpirical   SourceLabel = "empirical evidence"
	LabelContextual  SourceLabel = "contextual reference"
	LabelUnspecified SourceLabel = "unspecified evidence"
)

// RawSource is a citation returned by the assistant backend.
type RawSource struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	PublishedAt *string `json:"published_at"`
}

// SourceFlag is a RawSource annotated with its age and evidence label.
type SourceFlag struct {
	Title       string      `json:"title" yaml:"title"`
	URL         string      `json:"url" yaml:"url"`
	Type        string      `json:"type" yaml:"type"`
	Description string      `json:"description" yaml:"description"`
	PublishedAt *string     `json:"published_at" yaml:"published_at"`
	AgeInYears  *float64    `json:"age_in_years" yaml:"age_in_years"`
	IsOutdated  bool        `json:"is_outdated" yaml:"is_outdated"`
	Label       SourceLabel `json:"label" yaml:"label"`
}
