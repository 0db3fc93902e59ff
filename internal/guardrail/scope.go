package guardrail

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/guarded-chat/internal/model"
)

const marketPending = "Market emphasis pending; awaiting clarification."

// priorityMarkets is the fixed market ranking, highest weight first.
var priorityMarkets = []string{"united states", "mexico", "brazil"}

// SummarizeScope derives the scope strings and tiered-market narrative for a
// request.
func SummarizeScope(req model.ChatRequest) model.Scope {
	return model.Scope{
		Market:            "In-market focus: " + orDefault(req.Market, "Market unspecified"),
		Category:          "Category focus: " + orDefault(req.Category, "Category unspecified"),
		Timeframe:         "Timeframe focus: " + orDefault(req.Timeframe, "Timeframe unspecified"),
		TieredMarketFocus: tieredMarketFocus(req.Market),
	}
}

func tieredMarketFocus(market string) string {
	market = strings.TrimSpace(market)
	if market == "" {
		return marketPending
	}

	if slices.Contains(priorityMarkets, strings.ToLower(market)) {
		return fmt.Sprintf("Prioritized %s due to strategic focus. Secondary markets were referenced only when directly relevant.", market)
	}

	caser := cases.Title(language.English)
	titled := make([]string, len(priorityMarkets))
	for i, m := range priorityMarkets {
		titled[i] = caser.String(m)
	}
	return fmt.Sprintf("Primary focus on %s. Higher-weight markets (%s) were deprioritized unless supporting data was available.",
		market, strings.Join(titled, ", "))
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
