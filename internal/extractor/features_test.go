package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFeatures_EmailsAndPhonesDeduped(t *testing.T) {
	text := "Kontakt: info@netze-bw.de oder info@netze-bw.de, Tel. 0711 1234567"
	features := extractFeatures(text, map[int][]string{}, "", "")
	assert.Equal(t, []string{"info@netze-bw.de"}, features.Emails)
	assert.NotEmpty(t, features.Phones)
}

func TestExtractFeatures_FederalStates(t *testing.T) {
	text := "Das Netzgebiet liegt in Baden-Württemberg und angrenzend an Bayern."
	features := extractFeatures(text, map[int][]string{}, "", "")
	assert.Contains(t, features.FederalStates, "Baden-Württemberg")
	assert.Contains(t, features.FederalStates, "Bayern")
	assert.NotContains(t, features.FederalStates, "Berlin")
}

func TestExtractFeatures_VoltageAndKM(t *testing.T) {
	text := "Die Leitung hat 110 kV und eine Länge von 42 km."
	features := extractFeatures(text, map[int][]string{}, "", "")
	assert.Contains(t, features.VoltageKM, "110 kV")
	assert.Contains(t, features.VoltageKM, "42 km")
}

func TestCapHeadings_LimitsToFivePerLevel(t *testing.T) {
	headings := map[int][]string{
		1: {"a", "b", "c", "d", "e", "f", "g"},
	}
	capped := capHeadings(headings, defaultMaxHeadingsPerLevel)
	assert.Len(t, capped[1], 5)
}

func TestDedupPreserveOrder(t *testing.T) {
	out := dedupPreserveOrder([]string{"b", "a", "b", "c", "a"})
	assert.Equal(t, []string{"b", "a", "c"}, out)
}
