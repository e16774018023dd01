package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/venuescope/internal/model"
)

func TestAggregateWinner(t *testing.T) {
	works := []model.WorkSignal{
		{Weight: 5, Field: "Psychology", Subfield: "Developmental and Educational Psychology", Topic: "Empathy"},
		{Weight: 3, Field: "Psychology", Subfield: "Developmental and Educational Psychology", Topic: "Child Development"},
		{Weight: 2, Field: "Medicine", Subfield: "Pediatrics", Topic: "Infant Health"},
	}

	sig, err := Aggregate(works, 10)
	require.NoError(t, err)
	assert.Equal(t, "Developmental and Educational Psychology", sig.Discipline)
	assert.Equal(t, "Psychology", sig.Field)
	assert.InDelta(t, 0.8, sig.Confidence, 1e-9)
	assert.Equal(t, []string{"Empathy", "Child Development"}, sig.Topics)
}

func TestAggregateTieBreakByFieldWorks(t *testing.T) {
	works := []model.WorkSignal{
		{Weight: 4, Field: "Zoology", Subfield: "Animal Behavior", WorksCount: 1},
		{Weight: 4, Field: "Arts", Subfield: "Music", WorksCount: 1},
		// Zoology has more works overall through a second subfield
		{Weight: 1, Field: "Zoology", Subfield: "Ecology", WorksCount: 5},
	}

	sig, err := Aggregate(works, 5)
	require.NoError(t, err)
	assert.Equal(t, "Animal Behavior", sig.Discipline)
	assert.Equal(t, "Zoology", sig.Field)
}

func TestAggregateTieBreakAlphabetical(t *testing.T) {
	works := []model.WorkSignal{
		{Weight: 2, Field: "Physics", Subfield: "Optics"},
		{Weight: 2, Field: "Chemistry", Subfield: "Catalysis"},
	}

	for i := 0; i < 20; i++ {
		sig, err := Aggregate(works, 5)
		require.NoError(t, err)
		assert.Equal(t, "Catalysis", sig.Discipline)
		assert.InDelta(t, 0.5, sig.Confidence, 1e-9)
	}
}

func TestAggregateZeroWorksCountCountsAsOne(t *testing.T) {
	works := []model.WorkSignal{
		{Weight: 1, Field: "B", Subfield: "b1", WorksCount: 0},
		{Weight: 1, Field: "B", Subfield: "b2", WorksCount: 0},
		{Weight: 2, Field: "A", Subfield: "a1", WorksCount: 1},
		{Weight: 2, Field: "C", Subfield: "c1", WorksCount: 1},
		{Weight: 2, Field: "C", Subfield: "c1", WorksCount: -3},
	}

	sig, err := Aggregate(works, 5)
	require.NoError(t, err)
	// c1 has weight 4; nothing ties with it
	assert.Equal(t, "c1", sig.Discipline)
}

func TestAggregateNoSignal(t *testing.T) {
	tests := []struct {
		name  string
		works []model.WorkSignal
	}{
		{"nil", nil},
		{"zero weights", []model.WorkSignal{{Weight: 0, Field: "F", Subfield: "S"}}},
		{"missing subfield", []model.WorkSignal{{Weight: 1, Field: "F"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := Aggregate(tt.works, 5)
			assert.Nil(t, sig)
			assert.ErrorIs(t, err, model.ErrNoSignal)
		})
	}
}

func TestAggregateTopicCap(t *testing.T) {
	works := []model.WorkSignal{
		{Weight: 1, Field: "F", Subfield: "S", Topic: "delta"},
		{Weight: 1, Field: "F", Subfield: "S", Topic: "alpha"},
		{Weight: 3, Field: "F", Subfield: "S", Topic: "gamma"},
		{Weight: 1, Field: "F", Subfield: "S", Topic: "beta"},
	}

	sig, err := Aggregate(works, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"gamma", "alpha", "beta"}, sig.Topics)
	assert.InDelta(t, 1.0, sig.Confidence, 1e-9)
}

func TestAggregateConfidenceBounds(t *testing.T) {
	works := []model.WorkSignal{
		{Weight: 0.3, Field: "F", Subfield: "S1"},
		{Weight: 0.3, Field: "F", Subfield: "S2"},
		{Weight: 0.4, Field: "G", Subfield: "S3"},
	}

	sig, err := Aggregate(works, 5)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sig.Confidence, 0.0)
	assert.LessOrEqual(t, sig.Confidence, 1.0)
	assert.Equal(t, "S3", sig.Discipline)
}
