package badger

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dno-gatherer/internal/config"
	"github.com/ternarybob/dno-gatherer/internal/interfaces"
	"github.com/ternarybob/dno-gatherer/internal/model"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir, err := os.MkdirTemp("", "dno-badger-test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	m, err := NewManager(arbor.NewLogger(), config.BadgerConfig{Path: dir})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestPatternBacking_PutGetRoundTrip(t *testing.T) {
	m := newTestManager(t)
	backing := m.Patterns()

	p := &model.Pattern{ID: "p1", OperatorKey: "op1", Kind: model.PatternURLTemplate, Template: "https://x/{year}.pdf"}
	backing.Put(p)

	got, ok := backing.Get("p1")
	require.True(t, ok)
	assert.Equal(t, p.Template, got.Template)

	_, ok = backing.Get("missing")
	assert.False(t, ok)
}

func TestPatternBacking_ListScopesByOperator(t *testing.T) {
	m := newTestManager(t)
	backing := m.Patterns()

	backing.Put(&model.Pattern{ID: "p1", OperatorKey: "op1", Template: "a"})
	backing.Put(&model.Pattern{ID: "p2", OperatorKey: "op1", Template: "b"})
	backing.Put(&model.Pattern{ID: "p3", OperatorKey: "op2", Template: "c"})

	got := backing.List("op1")
	assert.Len(t, got, 2)
}

func TestPatternBacking_FindByTemplate(t *testing.T) {
	m := newTestManager(t)
	backing := m.Patterns()

	backing.Put(&model.Pattern{ID: "p1", OperatorKey: "op1", Template: "https://x/{year}.pdf"})

	got, ok := backing.FindByTemplate("op1", "https://x/{year}.pdf")
	require.True(t, ok)
	assert.Equal(t, "p1", got.ID)

	_, ok = backing.FindByTemplate("op1", "https://x/other.pdf")
	assert.False(t, ok)
}

func TestPatternBacking_AllSpansEveryOperator(t *testing.T) {
	m := newTestManager(t)
	backing := m.Patterns()

	backing.Put(&model.Pattern{ID: "p1", OperatorKey: "op1", Template: "a"})
	backing.Put(&model.Pattern{ID: "p2", OperatorKey: "op2", Template: "b"})

	got := backing.All()
	assert.Len(t, got, 2)
}

func TestRepositoryStore_OperatorCrossLookup(t *testing.T) {
	m := newTestManager(t)
	store := m.Repository()

	ref := &interfaces.OperatorRef{ID: "op1", Name: "Netze BW", Slug: "netze-bw"}
	require.NoError(t, store.PutOperator(ref))

	byID, ok, err := store.GetOperatorByID("op1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ref.Name, byID.Name)

	bySlug, ok, err := store.GetOperatorBySlug("netze-bw")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ref.ID, bySlug.ID)

	all, err := store.ListOperators()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepositoryStore_GridChargeSearchByOperatorAndYear(t *testing.T) {
	m := newTestManager(t)
	store := m.Repository()

	v1, v2 := 10.0, 20.0
	require.NoError(t, store.PutGridCharges([]model.GridChargeRecord{
		{OperatorKey: "op1", Year: 2023, VoltageLevel: model.VoltageHV, FieldID: "arbeitspreis", Value: &v1},
		{OperatorKey: "op1", Year: 2024, VoltageLevel: model.VoltageHV, FieldID: "arbeitspreis", Value: &v2},
	}))

	got, err := store.SearchGridCharges(interfaces.GridChargeFilter{OperatorID: "op1", Year: 2024})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 20.0, *got[0].Value)
}

func TestRepositoryStore_GridChargeUpsertOverwritesSameKey(t *testing.T) {
	m := newTestManager(t)
	store := m.Repository()

	v1, v2 := 10.0, 99.0
	rec := model.GridChargeRecord{OperatorKey: "op1", Year: 2024, VoltageLevel: model.VoltageHV, FieldID: "arbeitspreis"}
	rec.Value = &v1
	require.NoError(t, store.PutGridCharges([]model.GridChargeRecord{rec}))
	rec.Value = &v2
	require.NoError(t, store.PutGridCharges([]model.GridChargeRecord{rec}))

	got, err := store.SearchGridCharges(interfaces.GridChargeFilter{OperatorID: "op1", Year: 2024})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 99.0, *got[0].Value)
}

func TestRepositoryStore_ArtifactRoundTrip(t *testing.T) {
	m := newTestManager(t)
	store := m.Repository()

	a := &model.Artifact{ID: "a1", OperatorKey: "op1", SourceURL: "https://x/y.pdf", MIME: "application/pdf"}
	require.NoError(t, store.PutArtifact(a))

	got, ok, err := store.GetArtifact("a1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a.SourceURL, got.SourceURL)

	_, ok, err = store.GetArtifact("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryStore_LatestArtifactForOperator(t *testing.T) {
	m := newTestManager(t)
	store := m.Repository()

	older := &model.Artifact{ID: "a1", OperatorKey: "op1", FetchedAt: time.Now().Add(-time.Hour)}
	newer := &model.Artifact{ID: "a2", OperatorKey: "op1", FetchedAt: time.Now()}
	require.NoError(t, store.PutArtifact(older))
	require.NoError(t, store.PutArtifact(newer))

	got, ok, err := store.LatestArtifactForOperator("op1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a2", got.ID)

	_, ok, err = store.LatestArtifactForOperator("op-nothing")
	require.NoError(t, err)
	assert.False(t, ok)
}
