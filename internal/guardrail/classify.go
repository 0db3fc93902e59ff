package guardrail

import (
	"math"
	"strings"
	"time"

	"github.com/sells-group/guarded-chat/internal/model"
)

// outdatedAfterYears is the age past which a source is flagged as outdated.
// A source exactly this old is not outdated.
const outdatedAfterYears = 3.0

const defaultSourceTitle = "View Source"

// labelRule maps a keyword set to a label. Rules are evaluated in order and
// the first rule with a matching keyword wins.
type labelRule struct {
	keywords []string
	label    model.SourceLabel
}

var labelRules = []labelRule{
	{
		keywords: []string{"forecast", "quant", "quantitative", "survey", "panel", "sales"},
		label:    model.LabelEmpirical,
	},
	{
		keywords: []string{"pov", "presentation", "overview", "brand", "strategy"},
		label:    model.LabelContextual,
	},
}

const secondsPerDay = 24 * 60 * 60

// publishedLayouts are the ISO-8601 forms accepted for published_at. Values
// without an offset are read as UTC.
var publishedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04Z0700",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Classifier labels raw sources and computes their age against a clock.
type Classifier struct {
	now func() time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock overrides the time source used for age computation.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		c.now = now
	}
}

// NewClassifier creates a Classifier using the wall clock unless overridden.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify converts a raw source into a SourceFlag.
func (c *Classifier) Classify(src model.RawSource) model.SourceFlag {
	age := AgeInYears(src.PublishedAt, c.now())
	title := src.Title
	if title == "" {
		title = defaultSourceTitle
	}
	return model.SourceFlag{
		Title:       title,
		URL:         src.URL,
		Type:        src.Type,
		Description: src.Description,
		PublishedAt: src.PublishedAt,
		AgeInYears:  age,
		IsOutdated:  age != nil && *age > outdatedAfterYears,
		Label:       Label(src.Title, src.Description, src.Type),
	}
}

// ClassifyAll classifies sources preserving input order. The result is never
// nil so it encodes as an empty list.
func (c *Classifier) ClassifyAll(sources []model.RawSource) []model.SourceFlag {
	flags := make([]model.SourceFlag, 0, len(sources))
	for _, src := range sources {
		flags = append(flags, c.Classify(src))
	}
	return flags
}

// Label returns the evidence label for a source's text fields.
func Label(title, description, sourceType string) model.SourceLabel {
	blob := strings.ToLower(strings.Join([]string{title, description, sourceType}, " "))
	for _, rule := range labelRules {
		for _, kw := range rule.keywords {
			if strings.Contains(blob, kw) {
				return rule.label
			}
		}
	}
	return model.LabelUnspecified
}

// AgeInYears returns the age of a timestamp in years (whole days / 365.25,
// rounded to two decimals). It returns nil when the value is absent or
// cannot be parsed. Future timestamps yield negative ages.
func AgeInYears(publishedAt *string, now time.Time) *float64 {
	if publishedAt == nil {
		return nil
	}
	published, ok := parsePublished(*publishedAt)
	if !ok {
		return nil
	}
	// Unix seconds rather than Sub: a Duration saturates near 292 years.
	days := math.Floor(float64(now.Unix()-published.Unix()) / secondsPerDay)
	age := math.Round(days/365.25*100) / 100
	return &age
}

func parsePublished(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
