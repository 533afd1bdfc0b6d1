package portal

import (
	"fmt"
	"sync"

	"github.com/validation-portal/portal-client/internal/types"
)

// Values sent alongside the artifacts
type ValidationParameters struct {
	PlantReference          string
	ProductionAreaReference string
	SingleFileAssembly      types.AssemblyFlag
}

// Collects the contextual fields. Values persist across submissions.
type Parameters struct {
	plantReference          string
	productionAreaReference string
	singleFileAssembly      bool
	mu                      sync.RWMutex
}

func NewParameters() *Parameters {
	return &Parameters{}
}

// Verbatim overwrite of one of the free text fields
func (p *Parameters) SetField(name, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case types.FieldPlantReference:
		p.plantReference = value
	case types.FieldProductionAreaReference:
		p.productionAreaReference = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	return nil
}

func (p *Parameters) SetAssemblyFlag(singleFileAssembly bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.singleFileAssembly = singleFileAssembly
}

func (p *Parameters) Values() ValidationParameters {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ValidationParameters{
		PlantReference:          p.plantReference,
		ProductionAreaReference: p.productionAreaReference,
		SingleFileAssembly:      types.AssemblyFlagFromBool(p.singleFileAssembly),
	}
}
