package dataset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lingen1218/cfac/internal/dataset"
)

func TestPredicate_BuildersDoNotAlias(t *testing.T) {
	base := dataset.All().Eq(dataset.FieldSessionID, 1)
	a := base.Eq(dataset.FieldElectronCount, 2)
	b := base.Eq(dataset.FieldLevelID, 7)

	assert.Len(t, base.Constraints(), 1)
	assert.Equal(t, "sessionId = 1 AND electronCount = 2", a.String())
	assert.Equal(t, "sessionId = 1 AND levelId = 7", b.String())
	assert.Equal(t, "true", dataset.All().String())
	assert.True(t, dataset.All().IsAll())
}

func TestPredicate_Validate(t *testing.T) {
	tests := []struct {
		name  string
		kind  dataset.RecordKind
		pred  dataset.Predicate
		valid bool
	}{
		{"all on sessions", dataset.KindSession, dataset.All(), true},
		{"session field on levels", dataset.KindLevel, dataset.All().Eq(dataset.FieldSessionID, 1), true},
		{"level id on sessions", dataset.KindSession, dataset.All().Eq(dataset.FieldLevelID, 1), false},
		{"delta on levels", dataset.KindLevel, dataset.All().Eq(dataset.FieldElectronCountDelta, 1), false},
		{"delta on transitions", dataset.KindTransition, dataset.All().Eq(dataset.FieldElectronCountDelta, -1), true},
		{"range", dataset.KindLevel, dataset.All().Between(dataset.FieldElectronCount, 2, 4), true},
		{"inverted range", dataset.KindLevel, dataset.All().Between(dataset.FieldElectronCount, 4, 2), false},
		{"unknown kind", dataset.RecordKind("autoionization"), dataset.All(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pred.Validate(tt.kind)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, dataset.ErrMalformedPredicate)
		})
	}
}

func TestPredicate_Match(t *testing.T) {
	l := dataset.Level{ID: 4, SessionID: 1, ElectronCount: 3}

	assert.True(t, dataset.All().Match(l))
	assert.True(t, dataset.All().Eq(dataset.FieldSessionID, 1).Eq(dataset.FieldElectronCount, 3).Match(l))
	assert.False(t, dataset.All().Eq(dataset.FieldSessionID, 2).Match(l))
	assert.True(t, dataset.All().Between(dataset.FieldElectronCount, 2, 3).Match(l))
	assert.False(t, dataset.All().Between(dataset.FieldElectronCount, 4, 9).Match(l))
	// A field the record does not carry never matches.
	assert.False(t, dataset.All().Eq(dataset.FieldInitialLevelID, 4).Match(l))
}

func TestTransition_GF(t *testing.T) {
	e1 := dataset.Transition{Multipole: -1, RME: 2, DeltaE: -0.5}
	// Dipole: rme^2 * de / 3.
	assert.InDelta(t, 4*0.5/3, e1.GF(), 1e-12)

	m1 := dataset.Transition{Multipole: 1, RME: 2, DeltaE: 0.5}
	assert.InDelta(t, e1.GF(), m1.GF(), 1e-12)

	e2 := dataset.Transition{Multipole: 2, RME: 1, DeltaE: 1}
	alpha := 7.2973525693e-3
	assert.InDelta(t, alpha*alpha/5, e2.GF(), 1e-15)
}
