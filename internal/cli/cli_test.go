package cli

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirzakinn/sales-prediction/core/model"
)

// workspace writes a CSV where sales = 3*price - 2*promo + noise and a
// config limiting the search to the linear models.
func workspace(t *testing.T) (csvPath, cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	rng := rand.New(rand.NewPCG(7, 8))

	var b strings.Builder
	b.WriteString("price,promo,store,sales\n")
	stores := []string{"ankara", "izmir", "istanbul"}
	for i := 0; i < 150; i++ {
		price := rng.Float64() * 10
		promo := float64(rng.IntN(2))
		sales := 3*price - 2*promo + 0.1*rng.NormFloat64()
		fmt.Fprintf(&b, "%.4f,%g,%s,%.4f\n", price, promo, stores[i%3], sales)
	}
	b.WriteString("NA,1,izmir,4\n")

	csvPath = filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(b.String()), 0o600))
	cfgPath = filepath.Join(dir, "salesml.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
search:
  algorithms: [linear_regression, ridge, lasso]
logging:
  level: warn
`), 0o600))
	return csvPath, cfgPath, filepath.Join(dir, "history.db")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return out.String(), err
}

func TestSearchRecordsAndListsHistory(t *testing.T) {
	csvPath, cfgPath, dbPath := workspace(t)

	out, err := run(t, "search", "--config", cfgPath, "--history", dbPath, "-d", csvPath, "-t", "sales")
	require.NoError(t, err)
	assert.Contains(t, out, "Rows: 150 (1 dropped), features: price, promo, store")
	assert.Contains(t, out, "Dataset tier: standard (grid fast, 5-fold CV)")
	assert.Regexp(t, `Best model: (Linear|Ridge) Regression with R² 0\.9\d+`, out)

	m := regexp.MustCompile(`Saved run (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2)
	id := m[1]

	out, err = run(t, "history", "--config", cfgPath, "--history", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "sales.csv")

	out, err = run(t, "history", id, "--config", cfgPath, "--history", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Run:")
	assert.Contains(t, out, "lasso")
	assert.Contains(t, out, "price, promo, store")

	_, err = run(t, "history", "nope", "--config", cfgPath, "--history", dbPath)
	assert.Error(t, err)
}

func TestSearchWithoutHistory(t *testing.T) {
	csvPath, cfgPath, dbPath := workspace(t)
	out, err := run(t, "search", "--config", cfgPath, "--history", dbPath, "--no-history",
		"-d", csvPath, "-t", "sales", "-f", "price,promo")
	require.NoError(t, err)
	assert.NotContains(t, out, "Saved run")
	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestTrainCommand(t *testing.T) {
	csvPath, cfgPath, _ := workspace(t)

	out, err := run(t, "train", "--config", cfgPath, "-d", csvPath, "-t", "sales",
		"--algorithm", "Ridge", "--param", "alpha=0.5", "--param", "solver=svd")
	require.NoError(t, err)
	assert.Contains(t, out, "Model: Ridge Regression")
	assert.Contains(t, out, "Parameters: {alpha: 0.5, solver: svd}")

	out, err = run(t, "train", "--config", cfgPath, "-d", csvPath, "-t", "sales",
		"--algorithm", "decision_tree", "--grid", "ultra_minimal", "--cv", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Parameters: {max_depth: 10}")
	assert.Contains(t, out, "CV R²:")

	_, err = run(t, "train", "--config", cfgPath, "-d", csvPath, "-t", "sales", "--algorithm", "catboost")
	assert.Error(t, err)
	_, err = run(t, "train", "--config", cfgPath, "-d", csvPath, "-t", "sales", "--algorithm", "ridge", "--param", "alpha")
	assert.Error(t, err)
}

func TestPredictNewRecords(t *testing.T) {
	csvPath, cfgPath, _ := workspace(t)
	newPath := filepath.Join(t.TempDir(), "next.csv")
	require.NoError(t, os.WriteFile(newPath, []byte("store,price,promo\nizmir,5,0\nankara,2,1\n"), 0o600))

	out, err := run(t, "train", "--config", cfgPath, "-d", csvPath, "-t", "sales",
		"--algorithm", "linear_regression", "--param", "fit_intercept=true", "--predict", newPath)
	require.NoError(t, err)
	require.Contains(t, out, "Predictions (sales):")

	var got []float64
	for _, line := range strings.Split(out[strings.Index(out, "Predictions (sales):"):], "\n")[2:] {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		require.NoError(t, err)
		got = append(got, v)
	}
	require.Len(t, got, 2)
	assert.InDelta(t, 15, got[0], 0.2)
	assert.InDelta(t, 4, got[1], 0.2)

	out, err = run(t, "search", "--config", cfgPath, "--no-history", "-d", csvPath, "-t", "sales", "--predict", newPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Predictions (sales):")

	require.NoError(t, os.WriteFile(newPath, []byte("store,price,promo\nbursa,5,0\n"), 0o600))
	_, err = run(t, "search", "--config", cfgPath, "--no-history", "-d", csvPath, "-t", "sales", "--predict", newPath)
	assert.ErrorContains(t, err, "unseen label")
}

func TestMissingFlagsAndBadInput(t *testing.T) {
	csvPath, cfgPath, _ := workspace(t)

	_, err := run(t, "search", "--config", cfgPath, "-d", csvPath)
	assert.Error(t, err)
	_, err = run(t, "search", "--config", cfgPath, "--no-history", "-d", csvPath, "-t", "profit")
	assert.Error(t, err)
	_, err = run(t, "search", "--config", filepath.Join(t.TempDir(), "absent.yaml"), "-d", csvPath, "-t", "sales")
	assert.Error(t, err)
}

func TestParseParams(t *testing.T) {
	p, err := parseParams([]string{"alpha=0.5", "max_depth=none", "n_estimators=100", "fit_intercept=false", "solver= svd "})
	require.NoError(t, err)
	assert.Equal(t, model.Params{
		"alpha": 0.5, "max_depth": nil, "n_estimators": 100, "fit_intercept": false, "solver": "svd",
	}, p)

	p, err = parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = parseParams([]string{"=3"})
	assert.Error(t, err)
}
