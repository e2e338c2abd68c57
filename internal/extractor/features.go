package extractor

import (
	"regexp"
	"strings"

	"github.com/ternarybob/dno-gatherer/internal/interfaces"
)

// germanFederalStates is the closed set of sixteen states matched
// case-insensitively against extracted text.
var germanFederalStates = []string{
	"Baden-Württemberg",
	"Bayern",
	"Berlin",
	"Brandenburg",
	"Bremen",
	"Hamburg",
	"Hessen",
	"Mecklenburg-Vorpommern",
	"Niedersachsen",
	"Nordrhein-Westfalen",
	"Rheinland-Pfalz",
	"Saarland",
	"Sachsen",
	"Sachsen-Anhalt",
	"Schleswig-Holstein",
	"Thüringen",
}

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// German phone numbers: optional +49/0049 country code or leading 0,
	// followed by area code and subscriber number, tolerant of spaces,
	// dashes, slashes and parentheses as separators.
	phonePattern      = regexp.MustCompile(`(?:\+49|0049|0)[\s\-/]?\(?\d{2,5}\)?[\s\-/]?\d{3,9}(?:[\s\-/]?\d{2,4})?`)
	voltageKMPattern = regexp.MustCompile(`\b\d+(?:[.,]\d+)?\s?(?:kV|km)\b`)
)

// defaultMaxHeadingsPerLevel is the per-level heading cap absent an explicit
// config.ExtractorConfig.MaxHeadings override.
const defaultMaxHeadingsPerLevel = 5

// extractFeatures harvests the cross-cutting signals used by pattern
// recognition from the DOM-extracted plain text and the parsed document.
func extractFeatures(text string, headings map[int][]string, description, keywords string) interfaces.Features {
	return interfaces.Features{
		Emails:        dedupPreserveOrder(emailPattern.FindAllString(text, -1)),
		Phones:        dedupPreserveOrder(phonePattern.FindAllString(text, -1)),
		Headings:      headings,
		Description:   description,
		Keywords:      keywords,
		FederalStates: matchFederalStates(text),
		VoltageKM:     dedupPreserveOrder(voltageKMPattern.FindAllString(text, -1)),
	}
}

func matchFederalStates(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, state := range germanFederalStates {
		if strings.Contains(lower, strings.ToLower(state)) {
			found = append(found, state)
		}
	}
	return found
}

func dedupPreserveOrder(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func capHeadings(headings map[int][]string, maxPerLevel int) map[int][]string {
	capped := make(map[int][]string, len(headings))
	for level, values := range headings {
		if len(values) > maxPerLevel {
			values = values[:maxPerLevel]
		}
		capped[level] = values
	}
	return capped
}
