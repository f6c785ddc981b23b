package automl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirzakinn/sales-prediction/sklearn/model_selection"
)

func TestDefaultCatalogueIsComplete(t *testing.T) {
	require.NoError(t, ValidateCatalogue(DefaultGridCatalogue(), DefaultOrder))

	c := DefaultGridCatalogue()
	c[GridFast][Ridge]["alpha"] = nil
	assert.Error(t, ValidateCatalogue(c, DefaultOrder))

	c = DefaultGridCatalogue()
	delete(c, GridDetailed)
	assert.Error(t, ValidateCatalogue(c, DefaultOrder))
}

func TestUltraMinimalHasOneCandidate(t *testing.T) {
	for alg, grid := range GridsFor(GridUltraMinimal) {
		assert.Equal(t, 1, grid.Size(), alg)
	}
}

func TestGridSizes(t *testing.T) {
	assert.Equal(t, 32, GridsFor(GridDetailed)[Ridge].Size())
	assert.Equal(t, 12, GridsFor(GridFast)[Ridge].Size())
	assert.Equal(t, 2, GridsFor(GridUltraFast)[Ridge].Size())
	assert.Equal(t, 16, GridsFor(GridFast)[DecisionTree].Size())
}

func TestGridsForReturnsFreshMaps(t *testing.T) {
	g := GridsFor(GridFast)
	g[Ridge]["alpha"] = []any{42.0}
	assert.Len(t, GridsFor(GridFast)[Ridge]["alpha"], 4)
}

func TestEveryGridCandidateConfiguresItsEstimator(t *testing.T) {
	specs := DefaultAlgorithms()
	for tier, grids := range DefaultGridCatalogue() {
		for alg, grid := range grids {
			for _, params := range model_selection.ParameterGrid(grid) {
				_, err := specs[alg].Build(params)
				assert.NoError(t, err, "%s/%s %s", tier, alg, params)
			}
		}
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "SVR (Support Vector Regression)", DisplayName(SVR))
	assert.Equal(t, "XGBoost", DisplayName(XGBoost))
	assert.Equal(t, "LightGBM", DisplayName(LightGBM))
	assert.Equal(t, "custom", DisplayName("custom"))
}
