package model

import (
	"sync"

	"github.com/mirzakinn/sales-prediction/pkg/errors"
)

// StateManager tracks whether an estimator is fitted and the input width it
// was fitted on. It is safe for concurrent use so a fitted estimator can
// serve predictions from several goroutines.
type StateManager struct {
	mu        sync.RWMutex
	fitted    bool
	nFeatures int
	nSamples  int
}

// NewStateManager creates an unfitted StateManager.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted returns whether the model has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fitted
}

// MarkFitted records a successful fit on nSamples × nFeatures data.
func (s *StateManager) MarkFitted(nSamples, nFeatures int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = true
	s.nSamples = nSamples
	s.nFeatures = nFeatures
}

// Reset clears the fitted state. Fit calls it first so a failed refit never
// leaves stale coefficients marked as usable.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitted = false
	s.nSamples = 0
	s.nFeatures = 0
}

// Dimensions returns the fitted (features, samples).
func (s *StateManager) Dimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}

// RequireFitted returns a NotFittedError when the model is unfitted, and a
// DimensionError when X has a different column count than the training data.
func (s *StateManager) RequireFitted(modelName string, X interface{ Dims() (int, int) }) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.fitted {
		return errors.NewNotFittedError(modelName, "Predict")
	}
	if X != nil {
		if _, c := X.Dims(); c != s.nFeatures {
			return errors.NewDimensionError(modelName+".Predict", s.nFeatures, c, 1)
		}
	}
	return nil
}
