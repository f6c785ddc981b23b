package automl

import (
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/mirzakinn/sales-prediction/core/model"
	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

// fakeBehavior drives a fakeRegressor. Its predictions blend feature 0
// (which equals the target in cyclicData) with the training mean so that
// the test R² is exactly 1-(1-q)².
type fakeBehavior struct {
	q      float64
	fail   bool
	panics bool
	// nanAbove > 0 makes predictions on more rows than this NaN.
	nanAbove int
	block    <-chan struct{}
	rec      *fitRecorder
}

type fitRecorder struct {
	mu   sync.Mutex
	rows []int
}

func (r *fitRecorder) add(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, n)
}

func (r *fitRecorder) sizes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.rows...)
}

type fakeRegressor struct {
	b     fakeBehavior
	mean  float64
	state *model.StateManager
}

func (f *fakeRegressor) Fit(X, y mat.Matrix) error {
	if f.b.block != nil {
		<-f.b.block
	}
	if f.b.panics {
		panic("fake fit exploded")
	}
	if f.b.fail {
		return errors.New("fake fit failed")
	}
	n, c, target, err := model.CheckXY("fake.Fit", X, y)
	if err != nil {
		return err
	}
	var sum float64
	for _, v := range target {
		sum += v
	}
	f.mean = sum / float64(n)
	if f.b.rec != nil {
		f.b.rec.add(n)
	}
	f.state.MarkFitted(n, c)
	return nil
}

func (f *fakeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := f.state.RequireFitted("fake", X); err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	if f.b.nanAbove > 0 && r > f.b.nanAbove {
		for i := 0; i < r; i++ {
			out.Set(i, 0, math.NaN())
		}
		return out, nil
	}
	for i := 0; i < r; i++ {
		out.Set(i, 0, f.b.q*X.At(i, 0)+(1-f.b.q)*f.mean)
	}
	return out, nil
}

func (f *fakeRegressor) Score(X, y mat.Matrix) (float64, error) { return model.ScoreR2(f, X, y) }
func (f *fakeRegressor) GetParams() model.Params                { return model.Params{"q": f.b.q} }
func (f *fakeRegressor) SetParams(model.Params) error           { return nil }

func fakeSpec(alg Algorithm, b fakeBehavior) AlgorithmSpec {
	return AlgorithmSpec{
		Name: alg,
		New: func(model.Params) (model.Regressor, error) {
			return &fakeRegressor{b: b, state: model.NewStateManager()}, nil
		},
	}
}

// qFor returns the blend weight that yields the given test R².
func qFor(r2 float64) float64 {
	return 1 - math.Sqrt(1-r2)
}

// fakeSpecs builds one fake per algorithm of DefaultOrder from r2 targets.
func fakeSpecs(r2 map[Algorithm]float64, override map[Algorithm]fakeBehavior) []AlgorithmSpec {
	specs := make([]AlgorithmSpec, 0, len(DefaultOrder))
	for _, alg := range DefaultOrder {
		b, ok := override[alg]
		if !ok {
			b = fakeBehavior{q: qFor(r2[alg])}
		}
		specs = append(specs, fakeSpec(alg, b))
	}
	return specs
}

// fakeCatalogue gives every algorithm a single-candidate grid in every tier.
func fakeCatalogue() GridCatalogue {
	c := GridCatalogue{}
	for _, tier := range GridTiers {
		c[tier] = map[Algorithm]ParamGrid{}
		for _, alg := range DefaultOrder {
			c[tier][alg] = ParamGrid{"q": {1}}
		}
	}
	return c
}

// cyclicData returns rows whose feature 0 and target are i%10, so every
// train set, test set and unshuffled fold of whole cycles has mean 4.5.
func cyclicData(rows int, seed uint64) Dataset {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(rows, 2, nil)
	y := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		v := float64(i % 10)
		X.Set(i, 0, v)
		X.Set(i, 1, rng.Float64())
		y.SetVec(i, v)
	}
	return Dataset{X: X, Y: y}
}

// linearData is y = 2·x1 + noise with three irrelevant features.
func linearData(rows int, noise float64, seed uint64) Dataset {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	X := mat.NewDense(rows, 4, nil)
	y := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < 4; j++ {
			X.Set(i, j, rng.NormFloat64())
		}
		y.SetVec(i, 2*X.At(i, 0)+noise*rng.NormFloat64())
	}
	return Dataset{X: X, Y: y}
}
