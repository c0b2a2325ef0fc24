// Package engine defines the format adapter contract shared by all engine
// families and the priority-ordered registry used for project detection.
package engine

import (
	"fmt"

	"github.com/Baconana-chan/BaconanaMTLTool-sub000/unit"
)

// Adapter is implemented once per engine family. Adapters are stateless
// between files: Extract must not mutate the source, and Apply must leave
// any unit absent from the translation map as the original text.
type Adapter interface {
	// ID is the stable engine identifier (e.g. "rpgmaker").
	ID() string
	// Name is the human-readable engine name.
	Name() string
	// Detect reports whether root looks like a project of this engine.
	// Cheap heuristics only; false positives are tolerated because the
	// registry tries adapters in priority order and the first match wins.
	Detect(root string) bool
	// Files enumerates the candidate files to process under root, in a
	// stable order.
	Files(root string) ([]string, error)
	// Extract returns the translatable units of one file in source order.
	Extract(path string) ([]unit.Unit, error)
	// Apply reads the file, substitutes translations, and returns the new
	// artifact bytes. It never writes; the orchestrator owns the
	// backup-and-overwrite step. Keys of the map are unit.Text for
	// literal-match adapters and unit.LocationKey for positional adapters
	// (see Positional). Units absent from the map keep their original text.
	Apply(path string, translations map[string]string) ([]byte, error)
	// Positional reports how translations are correlated back to the file.
	// Positional adapters address units by LocationKey in extraction order
	// and duplicate source strings are never deduplicated: two identical
	// lines occupy different slots. Literal-match adapters address units
	// by source text and duplicates collapse into one map entry that
	// affects every occurrence.
	Positional() bool
}

// Registry is a fixed, priority-ordered list of adapters. More distinctive
// formats come first so a generic heuristic never shadows a specific one.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds a registry preserving the given order.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// Adapters returns the registered adapters in priority order.
func (r *Registry) Adapters() []Adapter {
	return r.adapters
}

// ByID returns the adapter with the given identifier.
func (r *Registry) ByID(id string) (Adapter, error) {
	for _, a := range r.adapters {
		if a.ID() == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("unknown engine %q", id)
}

// Detect returns the first adapter whose Detect matches root.
func (r *Registry) Detect(root string) (Adapter, error) {
	for _, a := range r.adapters {
		if a.Detect(root) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("no supported engine detected in %s", root)
}

// Manifest describes a detected project: the winning engine and the ordered
// file list to process.
type Manifest struct {
	Engine string
	Files  []string
}

// Scan detects the project type under root and enumerates its files.
func (r *Registry) Scan(root string) (*Manifest, Adapter, error) {
	adapter, err := r.Detect(root)
	if err != nil {
		return nil, nil, err
	}
	files, err := adapter.Files(root)
	if err != nil {
		return nil, nil, err
	}
	return &Manifest{Engine: adapter.ID(), Files: files}, adapter, nil
}
