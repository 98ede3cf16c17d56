/*
Package registry resolves the source, destination, and validator adapters
an ingestion run is configured to use.

The original loader (booru_tools' loaders/plugin_loader.py) discovers
plugins at runtime by importing every Python file in a directory and
filtering by subclass. Per spec, dynamic discovery is redesigned as a
compile-time registry: every adapter package registers itself from an
init() function, and this package only ever looks up what's already
registered — no filesystem globbing, no reflection over method sets.
*/
package registry

import (
	"fmt"
	"sync"

	"github.com/corvid-labs/boorusync/internal/core/destination"
	"github.com/corvid-labs/boorusync/internal/core/resource"
	"github.com/corvid-labs/boorusync/internal/core/source"
)

// Registry holds every source and destination adapter factory compiled
// into the binary, keyed by the name each adapter registers itself under.
type Registry struct {
	mu           sync.RWMutex
	sources      map[string]source.Factory
	destinations map[string]destination.Factory
}

// global is the process-wide registry every adapter package's init()
// registers itself with, and the one [Find*] callers use by default.
var global = New()

// New constructs an empty [Registry]. Tests construct their own instance
// instead of mutating the process-wide one.
func New() *Registry {
	return &Registry{
		sources:      make(map[string]source.Factory),
		destinations: make(map[string]destination.Factory),
	}
}

// Global returns the process-wide registry adapter packages register
// themselves with via [RegisterSource] and [RegisterDestination].
func Global() *Registry {
	return global
}

// RegisterSource adds factory to the process-wide registry under name. It
// is meant to be called from a source adapter package's init() function
// and panics on a duplicate name, since that indicates two adapter
// packages were compiled in under the same name.
func RegisterSource(name string, factory source.Factory) {
	global.RegisterSource(name, factory)
}

// RegisterDestination adds factory to the process-wide registry under
// name, analogous to [RegisterSource].
func RegisterDestination(name string, factory destination.Factory) {
	global.RegisterDestination(name, factory)
}

// RegisterSource adds factory to r under name.
func (r *Registry) RegisterSource(name string, factory source.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[name]; exists {
		panic(fmt.Sprintf("registry: source %q registered twice", name))
	}
	r.sources[name] = factory
}

// RegisterDestination adds factory to r under name.
func (r *Registry) RegisterDestination(name string, factory destination.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.destinations[name]; exists {
		panic(fmt.Sprintf("registry: destination %q registered twice", name))
	}
	r.destinations[name] = factory
}

// FindSource builds and returns the source adapter registered under name.
func (r *Registry) FindSource(name string, deps source.Dependencies) (source.Adapter, error) {
	r.mu.RLock()
	factory, ok := r.sources[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("registry: no source adapter registered as %q", name)
	}
	return factory(deps), nil
}

// FindDestination builds and returns the destination adapter registered
// under name.
func (r *Registry) FindDestination(name string, deps destination.Dependencies) (destination.Adapter, error) {
	r.mu.RLock()
	factory, ok := r.destinations[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("registry: no destination adapter registered as %q", name)
	}
	return factory(deps), nil
}

// SourceNames returns every registered source adapter name, for CLI help
// text and configuration validation.
func (r *Registry) SourceNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	return names
}

// DestinationNames returns every registered destination adapter name.
func (r *Registry) DestinationNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.destinations))
	for name := range r.destinations {
		names = append(names, name)
	}
	return names
}

// ClassifyURL asks the registered source adapters whether their validator
// matches url and returns the name of the first one that does. Adapters are
// tried in map iteration order, which is not defined, so when more than one
// adapter's validator matches url, which name is returned is not defined.
// This replaces InternalPlugins.find_matching_validator's domain-substring
// search with a compile-time-known set of validators.
func (r *Registry) ClassifyURL(url string) (adapterName string, found bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, factory := range r.sources {
		adapter := factory(source.Dependencies{})
		if adapter.Validator().Matches(url) {
			return name, true
		}
	}
	return "", false
}

// ClassifyType returns the [resource.SourceType] reported by the first
// registered source adapter found to recognise url, or
// [resource.SourceTypeUnknown] if no registered adapter matches it. Adapters
// are tried in map iteration order, which is not defined. Destination adapters use this to
// pick out, e.g., the post-type source URLs out of a post's source list
// without depending on which site produced them.
func (r *Registry) ClassifyType(url string) resource.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, factory := range r.sources {
		adapter := factory(source.Dependencies{})
		if validator := adapter.Validator(); validator.Matches(url) {
			return validator.Classify(url)
		}
	}
	return resource.SourceTypeUnknown
}
