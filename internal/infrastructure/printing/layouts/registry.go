// Package layouts holds the fixed layout of every known letter type and the
// registry the document assembler dispatches on.
package layouts

import (
	"slices"
	"sync"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/Ayash13/tulip-sub000/internal/infrastructure/printing"
)

// Registry maps letter types to their layout builders.
// Types without a builder are rendered by the assembler's generic layout.
type Registry struct {
	mu       sync.RWMutex
	builders map[letter.LetterType]printing.LayoutBuilder
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[letter.LetterType]printing.LayoutBuilder),
	}
}

// NewDefaultRegistry creates a Registry with a builder for every known letter type.
func NewDefaultRegistry(engine *printing.TemplateEngine, store *printing.LayoutStore) *Registry {
	bodies := printing.NewBodyRenderer(engine, store)
	r := NewRegistry()
	r.Register(NewRekomendasiLayout(bodies))
	r.Register(NewAktifKuliahLayout(bodies))
	r.Register(NewPenelitianLayout(bodies))
	r.Register(NewMagangLayout(bodies))
	r.Register(NewDispensasiLayout(bodies))
	r.Register(NewCutiAkademikLayout(bodies))
	r.Register(NewBeasiswaLayout(bodies))
	r.Register(NewKelakuanBaikLayout(bodies))
	r.Register(NewEnrollmentCertificateLayout(bodies))
	r.Register(NewPengantarLayout(bodies))
	return r
}

// Register adds a builder to the registry.
// If a builder for the same letter type already exists, it will be replaced.
func (r *Registry) Register(builder printing.LayoutBuilder) {
	if builder == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[builder.LetterType()] = builder
}

// Resolve returns the builder for the given letter type.
// Returns (nil, false) if no builder is registered for that type.
func (r *Registry) Resolve(letterType letter.LetterType) (printing.LayoutBuilder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	builder, ok := r.builders[letterType]
	return builder, ok
}

// Has checks if a builder is registered for the given letter type.
func (r *Registry) Has(letterType letter.LetterType) bool {
	_, ok := r.Resolve(letterType)
	return ok
}

// RegisteredTypes returns all letter types that have registered builders, sorted.
func (r *Registry) RegisteredTypes() []letter.LetterType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]letter.LetterType, 0, len(r.builders))
	for letterType := range r.builders {
		types = append(types, letterType)
	}
	slices.Sort(types)
	return types
}

var _ printing.LayoutResolver = (*Registry)(nil)
