package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propcheck/internal/deficiency/models"
	inspection "propcheck/internal/inspection/models"
	"propcheck/internal/platform/config"
)

func newSyncer(t *testing.T) *Syncer {
	t.Helper()
	s, err := New(config.DefaultRules())
	require.NoError(t, err)
	return s
}

func stored() *models.DeficientItem {
	return &models.DeficientItem{
		ID:                      "di-1",
		Item:                    "item-1",
		State:                   models.StatePending,
		CurrentPlanToFix:        "replace shingles",
		ItemTitle:               "Roof",
		ItemScore:               55,
		ItemMainInputSelection:  1,
		ItemMainInputType:       "twoactions_checkmarkx",
		SectionTitle:            "Exterior",
		SectionType:             inspection.SectionTypeSingle,
		ItemDataLastUpdatedDate: 100,
	}
}

func expectedFrom(di *models.DeficientItem) *models.DeficientItem {
	e := di.Clone()
	e.ID = ""
	e.State = models.StateRequiresAction
	e.CurrentPlanToFix = ""
	return e
}

func TestNew(t *testing.T) {
	t.Run("nil rules", func(t *testing.T) {
		_, err := New(nil)
		assert.Error(t, err)
	})

	t.Run("unknown whitelist attribute", func(t *testing.T) {
		rules := config.DefaultRules()
		rules.ProxyAttributes = append(rules.ProxyAttributes, "state")
		_, err := New(rules)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"state"`)
	})
}

func TestDiff(t *testing.T) {
	s := newSyncer(t)

	t.Run("unchanged item is a no-op", func(t *testing.T) {
		current := stored()
		delta := s.Diff(expectedFrom(current), current)
		assert.True(t, delta.IsEmpty())
	})

	t.Run("workflow fields are never proxied", func(t *testing.T) {
		current := stored()
		expected := expectedFrom(current)
		expected.State = "closed"
		expected.CurrentPlanToFix = "something else"
		assert.True(t, s.Diff(expected, current).IsEmpty())
	})

	t.Run("changed title is carried with the stored score", func(t *testing.T) {
		current := stored()
		expected := expectedFrom(current)
		expected.ItemTitle = "Roof (north)"

		delta := s.Diff(expected, current)
		assert.Equal(t, Delta{"itemTitle": "Roof (north)", AttrItemScore: 55.0}, delta)
	})

	t.Run("new selection brings its score", func(t *testing.T) {
		current := stored()
		expected := expectedFrom(current)
		expected.ItemMainInputSelection = 2
		expected.ItemScore = 30

		delta := s.Diff(expected, current)
		assert.Equal(t, 2, delta["itemMainInputSelection"])
		assert.Equal(t, 30.0, delta[AttrItemScore])
	})

	t.Run("empty and absent values are equal", func(t *testing.T) {
		current := stored()
		current.ItemPhotosData = map[string]inspection.Photo{}
		expected := expectedFrom(current)
		expected.ItemPhotosData = nil
		assert.True(t, s.Diff(expected, current).IsEmpty())
	})

	t.Run("photo changes are detected", func(t *testing.T) {
		current := stored()
		expected := expectedFrom(current)
		expected.ItemPhotosData = map[string]inspection.Photo{"p1": {DownloadURL: "u"}}
		expected.HasItemPhotoData = true

		delta := s.Diff(expected, current)
		assert.Contains(t, delta, "itemPhotosData")
		assert.Equal(t, true, delta["hasItemPhotoData"])
	})
}

func TestDiff_ScoreFidelity(t *testing.T) {
	s := newSyncer(t)

	t.Run("zero expected score keeps stored score", func(t *testing.T) {
		current := stored()
		expected := expectedFrom(current)
		expected.ItemScore = 0
		expected.ItemInspectorNotes = "water damage"

		delta := s.Diff(expected, current)
		assert.Equal(t, 55.0, delta[AttrItemScore])

		require.NoError(t, delta.Apply(current))
		assert.Equal(t, 55.0, current.ItemScore)
		assert.Equal(t, "water damage", current.ItemInspectorNotes)
	})

	t.Run("zero expected score alone writes nothing", func(t *testing.T) {
		current := stored()
		expected := expectedFrom(current)
		expected.ItemScore = 0
		assert.True(t, s.Diff(expected, current).IsEmpty())
	})

	t.Run("zero stored score is simply replaced", func(t *testing.T) {
		current := stored()
		current.ItemScore = 0
		expected := expectedFrom(current)
		expected.ItemScore = 12
		assert.Equal(t, Delta{AttrItemScore: 12.0}, s.Diff(expected, current))
	})
}

func TestDiff_LastUpdatedDateNeverRegresses(t *testing.T) {
	s := newSyncer(t)

	t.Run("newer admin edit overrides", func(t *testing.T) {
		current := stored()
		expected := expectedFrom(current)
		expected.ItemAdminEdits = map[string]inspection.AdminEdit{"e1": {EditDate: 500}}

		delta := s.Diff(expected, current)
		assert.Equal(t, int64(500), delta[AttrItemDataLastUpdatedDate])
	})

	t.Run("older admin edit does not", func(t *testing.T) {
		current := stored()
		current.ItemAdminEdits = map[string]inspection.AdminEdit{"e1": {EditDate: 50}}
		expected := expectedFrom(current)
		expected.ItemDataLastUpdatedDate = 50

		delta := s.Diff(expected, current)
		assert.NotContains(t, delta, AttrItemDataLastUpdatedDate)
		assert.True(t, delta.IsEmpty())
	})
}

func TestDeltaApply(t *testing.T) {
	di := stored()

	require.NoError(t, Delta{"itemTitle": "Gutter", AttrItemDataLastUpdatedDate: int64(900)}.Apply(di))
	assert.Equal(t, "Gutter", di.ItemTitle)
	assert.Equal(t, int64(900), di.ItemDataLastUpdatedDate)

	assert.Error(t, Delta{"state": "closed"}.Apply(di))
	assert.Error(t, Delta{"itemTitle": 42}.Apply(di))
}
