package portal

import "sync"

type Slot int

const (
	SlotSBOM Slot = iota
	SlotDataPrep
)

func (s Slot) String() string {
	switch s {
	case SlotSBOM:
		return "sbom"
	case SlotDataPrep:
		return "data_prep"
	default:
		return "unknown"
	}
}

func (s Slot) accepts(a *Artifact) bool {
	switch s {
	case SlotSBOM:
		return IsSBOM(a)
	case SlotDataPrep:
		return IsDataPrep(a)
	default:
		return false
	}
}

// Holds at most one artifact per slot plus the standing selection error
type Selector struct {
	err       error
	artifacts [2]*Artifact
	mu        sync.RWMutex
}

func NewSelector() *Selector {
	return &Selector{}
}

// Only the first candidate of a gesture is considered, the rest are dropped
func (s *Selector) SelectSBOM(candidates ...*Artifact) error {
	return s.selectInto(SlotSBOM, candidates)
}

func (s *Selector) SelectDataPrep(candidates ...*Artifact) error {
	return s.selectInto(SlotDataPrep, candidates)
}

func (s *Selector) selectInto(slot Slot, candidates []*Artifact) error {
	if len(candidates) == 0 || candidates[0] == nil {
		return nil
	}
	candidate := candidates[0]

	s.mu.Lock()
	defer s.mu.Unlock()

	if !slot.accepts(candidate) {
		err := &UnsupportedArtifactError{Name: candidate.Name, Slot: slot}
		s.err = err
		return err
	}

	s.artifacts[slot] = candidate
	s.err = nil
	return nil
}

func (s *Selector) ClearSBOM() {
	s.clear(SlotSBOM)
}

func (s *Selector) ClearDataPrep() {
	s.clear(SlotDataPrep)
}

func (s *Selector) clear(slot Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[slot] = nil
}

func (s *Selector) SBOM() *Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifacts[SlotSBOM]
}

func (s *Selector) DataPrep() *Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifacts[SlotDataPrep]
}

// Standing error of the last rejected selection, nil once a selection is accepted
func (s *Selector) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Selector) Ready() bool {
	sbom, dataPrep := s.both()
	return sbom != nil && dataPrep != nil
}

func (s *Selector) both() (*Artifact, *Artifact) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifacts[SlotSBOM], s.artifacts[SlotDataPrep]
}

func (s *Selector) clearErr() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}
