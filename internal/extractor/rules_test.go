package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/dno-gatherer/internal/model"
)

func writeRuleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const sampleRuleYAML = `
operator_key: netze-bw
fields:
  - field_id: arbeitspreis_hv
    kind: grid_charge
    voltage_level: HV
    unit: "ct/kWh"
    pattern: "Arbeitspreis HV:\\s*(?P<value>[\\d,.]+)"
  - field_id: hochlastfenster
    kind: load_window
    slot_id: winter_morning
    pattern: "Hochlastfenster:\\s*(?P<value>[^\\n]+)"
`

func TestLoadRuleStore_AppliesGridChargeAndLoadWindow(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "netze-bw.yaml", sampleRuleYAML)

	store, err := LoadRuleStore(dir)
	require.NoError(t, err)
	assert.True(t, store.HasRulesFor("netze-bw"))

	text := "Arbeitspreis HV: 1,234 ct/kWh. Hochlastfenster: 06:00-09:00"
	gridCharges, loadWindows, err := store.Apply(text, "netze-bw")
	require.NoError(t, err)
	require.Len(t, gridCharges, 1)
	assert.Equal(t, "arbeitspreis_hv", gridCharges[0].FieldID)
	require.NotNil(t, gridCharges[0].Value)
	assert.InDelta(t, 1.234, *gridCharges[0].Value, 0.0001)

	require.Len(t, loadWindows, 1)
	assert.Equal(t, "winter_morning", loadWindows[0].SlotID)
	require.NotNil(t, loadWindows[0].Value)
	assert.Contains(t, *loadWindows[0].Value, "06:00")
}

func TestLoadRuleStore_NoRulesForOperator(t *testing.T) {
	store, err := LoadRuleStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.Apply("anything", "unknown-operator")
	require.Error(t, err)
	kind, ok := model.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.FailureNotFound, kind)
}

func TestLoadRuleStore_RulesProducedNothing(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "netze-bw.yaml", sampleRuleYAML)

	store, err := LoadRuleStore(dir)
	require.NoError(t, err)

	_, _, err = store.Apply("nothing matches here", "netze-bw")
	require.Error(t, err)
	kind, ok := model.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.FailureExhausted, kind)
}

func TestLoadRuleStore_MissingDirYieldsEmptyStore(t *testing.T) {
	store, err := LoadRuleStore(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.False(t, store.HasRulesFor("netze-bw"))
}

func TestParseGermanNumber(t *testing.T) {
	v, err := parseGermanNumber("1.234,56")
	require.NoError(t, err)
	assert.InDelta(t, 1234.56, v, 0.001)

	v, err = parseGermanNumber("12,5")
	require.NoError(t, err)
	assert.InDelta(t, 12.5, v, 0.001)
}
