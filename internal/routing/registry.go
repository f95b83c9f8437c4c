package routing

import (
	"fmt"
	"log"
	"sort"

	"couriernav/internal/model"
)

// Registry resolves algorithm names to strategies. It is populated once at
// startup from an explicit strategy list; no runtime discovery.
type Registry struct {
	byName      map[string]Algorithm
	defaultName string
}

// NewRegistry builds a registry from the given strategies. defaultName
// selects the default; if it names an unregistered strategy the registry
// falls back to "Nearest Neighbor" (or, failing that, the first registered
// strategy) and logs a warning. Zero strategies is a configuration error.
func NewRegistry(defaultName string, algorithms ...Algorithm) (*Registry, error) {
	if len(algorithms) == 0 {
		return nil, fmt.Errorf("%w: no routing algorithms registered", model.ErrConfiguration)
	}
	byName := make(map[string]Algorithm, len(algorithms))
	for _, a := range algorithms {
		byName[a.Name()] = a
	}
	if _, ok := byName[defaultName]; !ok {
		fallback := NearestNeighborName
		if _, ok := byName[fallback]; !ok {
			fallback = algorithms[0].Name()
		}
		if defaultName != "" {
			log.Printf("routing: configured default algorithm %q not registered, falling back to %q", defaultName, fallback)
		}
		defaultName = fallback
	}
	return &Registry{byName: byName, defaultName: defaultName}, nil
}

// Default returns the configured default strategy.
func (r *Registry) Default() Algorithm {
	return r.byName[r.defaultName]
}

// Get returns the named strategy, falling back to the default with a logged
// warning for unknown names. Never returns nil.
func (r *Registry) Get(name string) Algorithm {
	if a, ok := r.byName[name]; ok {
		return a
	}
	log.Printf("routing: unknown algorithm %q, using default %q", name, r.defaultName)
	return r.Default()
}

// Names lists registered algorithm names, default first, rest sorted.
func (r *Registry) Names() []string {
	rest := make([]string, 0, len(r.byName))
	for name := range r.byName {
		if name != r.defaultName {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append([]string{r.defaultName}, rest...)
}
