package agent

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry maps agent kinds to constructors and default descriptors.
// Descriptors are fixed at registration; per-invocation Overrides are
// merged at create time.
type Registry struct {
	logger *zap.Logger

	mu           sync.RWMutex
	entries      map[Kind]registryEntry
	nextExternal Kind
}

type registryEntry struct {
	ctor Constructor
	desc Descriptor
}

// Overrides adjust a descriptor's default configuration for one instance.
// Nil fields keep the default.
type Overrides struct {
	MaxRetries *int
	Timeout    *time.Duration
	Options    map[string]any
}

// Plugin is the typed escape hatch for external agents. Plugins don't pick
// their own Kind; the registry allocates one from a reserved range.
type Plugin interface {
	// Describe returns the plugin's descriptor. Kind is ignored and
	// assigned by the registry.
	Describe() Descriptor

	// New builds the plugin's agent for the assigned kind.
	New(desc Descriptor, deps Deps) Agent
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:       logger,
		entries:      make(map[Kind]registryEntry),
		nextExternal: externalKindBase,
	}
}

// Register adds an agent kind. Re-registering overwrites the previous
// entry with a logged warning, not an error.
func (r *Registry) Register(ctor Constructor, desc Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Kind]; exists {
		r.logger.Warn("overwriting agent registration", zap.Stringer("kind", desc.Kind))
	}
	r.entries[desc.Kind] = registryEntry{ctor: ctor, desc: desc}
}

// RegisterPlugin registers an external agent and returns its allocated
// kind.
func (r *Registry) RegisterPlugin(p Plugin) (Kind, error) {
	if p == nil {
		return KindUnknown, fmt.Errorf("plugin is nil")
	}
	desc := p.Describe()
	if desc.Layer == "" {
		return KindUnknown, fmt.Errorf("plugin %q has no layer", desc.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kind := r.nextExternal
	r.nextExternal++
	desc.Kind = kind
	r.entries[kind] = registryEntry{ctor: p.New, desc: desc}

	r.logger.Info("registered plugin agent",
		zap.Stringer("kind", kind),
		zap.String("name", desc.Name),
		zap.String("layer", string(desc.Layer)),
	)
	return kind, nil
}

// Create instantiates an agent, merging overrides onto the descriptor's
// defaults. Unknown kinds fail here, not at registration.
func (r *Registry) Create(kind Kind, deps Deps, overrides *Overrides) (Agent, Descriptor, error) {
	r.mu.RLock()
	entry, ok := r.entries[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	desc := entry.desc
	if overrides != nil {
		if overrides.MaxRetries != nil {
			desc.MaxRetries = *overrides.MaxRetries
		}
		if overrides.Timeout != nil {
			desc.Timeout = *overrides.Timeout
		}
		if len(overrides.Options) > 0 {
			merged := make(map[string]any, len(desc.Options)+len(overrides.Options))
			for k, v := range desc.Options {
				merged[k] = v
			}
			for k, v := range overrides.Options {
				merged[k] = v
			}
			desc.Options = merged
		}
	}

	return entry.ctor(desc, deps), desc, nil
}

// CreateLayer instantiates every registered agent in a layer, ordered by
// kind.
func (r *Registry) CreateLayer(layer Layer, deps Deps) ([]Agent, error) {
	r.mu.RLock()
	var kinds []Kind
	for kind, entry := range r.entries {
		if entry.desc.Layer == layer {
			kinds = append(kinds, kind)
		}
	}
	r.mu.RUnlock()

	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	agents := make([]Agent, 0, len(kinds))
	for _, kind := range kinds {
		a, _, err := r.Create(kind, deps, nil)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// Descriptor returns the registered descriptor for kind.
func (r *Registry) Descriptor(kind Kind) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[kind]
	return entry.desc, ok
}

// ListAvailable returns registered descriptors grouped by layer, each
// group ordered by kind.
func (r *Registry) ListAvailable() map[Layer][]Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	grouped := make(map[Layer][]Descriptor)
	for _, entry := range r.entries {
		grouped[entry.desc.Layer] = append(grouped[entry.desc.Layer], entry.desc)
	}
	for layer := range grouped {
		descs := grouped[layer]
		sort.Slice(descs, func(i, j int) bool { return descs[i].Kind < descs[j].Kind })
	}
	return grouped
}
