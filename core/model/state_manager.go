package model

import (
	"sync"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// StateManager records whether an estimator or transformer has been fitted
// and the training shape it saw. Estimators hold one by pointer and consult
// it before predicting. Safe for concurrent use.
type StateManager struct {
	mu sync.RWMutex

	// Exported for gob snapshots.
	Fitted    bool
	NFeatures int
	NSamples  int
}

func NewStateManager() *StateManager {
	return &StateManager{}
}

func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

func (s *StateManager) SetFitted() {
	s.mu.Lock()
	s.Fitted = true
	s.mu.Unlock()
}

// Reset returns the manager to its unfitted zero state. Called at the start
// of Fit so a failed refit does not leave stale dimensions behind.
func (s *StateManager) Reset() {
	s.mu.Lock()
	s.Fitted, s.NFeatures, s.NSamples = false, 0, 0
	s.mu.Unlock()
}

// SetDimensions records the training matrix shape.
func (s *StateManager) SetDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	s.NFeatures, s.NSamples = nFeatures, nSamples
	s.mu.Unlock()
}

func (s *StateManager) GetDimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NFeatures, s.NSamples
}

// RequireFitted returns a NotFittedError for modelName.method unless the
// manager is fitted.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if s.IsFitted() {
		return nil
	}
	return errors.NewNotFittedError(modelName, method)
}

// RequireFeatures returns a DimensionError when got differs from the column
// count seen during Fit.
func (s *StateManager) RequireFeatures(modelName string, got int) error {
	nFeatures, _ := s.GetDimensions()
	if nFeatures != got {
		return errors.NewDimensionError(modelName, nFeatures, got, 1)
	}
	return nil
}
