package app

import (
	"strconv"
	"strings"

	"github.com/pscheid92/reactboard/internal/domain"
)

// SummarySeparator joins the rendered tallies of a board entry.
const SummarySeparator = "  ·  "

// Decide reports whether any tally reaches threshold and renders the qualifying
// tallies as "<emoji> <count>" in input order.
func Decide(tallies []domain.Tally, threshold int) domain.PublishDecision {
	var parts []string
	for _, t := range tallies {
		if t.Count < threshold {
			continue
		}
		parts = append(parts, t.Emoji+" "+strconv.Itoa(t.Count))
	}

	if len(parts) == 0 {
		return domain.PublishDecision{}
	}

	return domain.PublishDecision{
		ShouldPublish: true,
		Summary:       strings.Join(parts, SummarySeparator),
	}
}
