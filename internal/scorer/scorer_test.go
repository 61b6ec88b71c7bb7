package scorer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physio/engine/internal/core"
)

// buildTestModel returns a single-tree model where splitting on feature 0
// isolates values >= 500 in two splits (a short path, size-1 leaf) versus
// a 50-member leaf reached in one split for everything below 100.
func buildTestModel() *Model {
	return &Model{
		SampleSize: 256,
		Threshold:  0.5,
		Trees: []tree{
			{
				Root: &node{
					Feature: 0,
					Split:   100,
					Left:    &node{Leaf: true, Size: 50},
					Right: &node{
						Feature: 0,
						Split:   500,
						Left:    &node{Leaf: true, Size: 10},
						Right:   &node{Leaf: true, Size: 1},
					},
				},
			},
		},
	}
}

func TestScore_IsolatedOutlierScoresHigherThanTypical(t *testing.T) {
	m := buildTestModel()

	_, outlierScore := m.Score([6]float64{1000, 0, 0, 0, 0, 0})
	_, typicalScore := m.Score([6]float64{50, 0, 0, 0, 0, 0})

	assert.Greater(t, outlierScore, typicalScore)
}

func TestScore_FlagsAboveThresholdAsAnomalous(t *testing.T) {
	m := buildTestModel()

	isAnomaly, score := m.Score([6]float64{1000, 0, 0, 0, 0, 0})
	assert.True(t, isAnomaly)
	assert.Greater(t, score, m.Threshold)
}

func TestScore_DoesNotFlagTypicalVector(t *testing.T) {
	m := buildTestModel()

	isAnomaly, _ := m.Score([6]float64{50, 0, 0, 0, 0, 0})
	assert.False(t, isAnomaly)
}

func TestAveragePathLengthNormalization_SingleAndEmptyAreZero(t *testing.T) {
	assert.Equal(t, 0.0, averagePathLengthNormalization(0))
	assert.Equal(t, 0.0, averagePathLengthNormalization(1))
}

func TestLoad_RejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrModelUnloadable)
}

func TestLoad_RejectsEmptyModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	data, err := json.Marshal(Model{Trees: nil, SampleSize: 256, Threshold: 0.5})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrModelUnloadable)
}

func TestLoad_AcceptsWellFormedModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	want := buildTestModel()
	data, err := json.Marshal(want)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want.SampleSize, got.SampleSize)
	assert.Equal(t, want.Threshold, got.Threshold)
	assert.Len(t, got.Trees, 1)
}
