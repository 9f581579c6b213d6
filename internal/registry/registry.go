// Package registry derives every named validator of the inventory model:
// entity shapes, where/unique filters, create and update inputs, ordering,
// aggregation and projection arguments.
//
// Construction is two-phase. New declares one slot per schema name, each
// holding a builder. A slot is built on first lookup and cached. Builders
// refer to other slots only through lazy references, so cyclic entity graphs
// never recurse at construction time.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/TakashiAihara/preppin-sub000/internal/filters"
	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
)

// ErrUnknownSchema is returned when a name has no slot.
var ErrUnknownSchema = errors.New("unknown schema")

// Options tune how inputs are built.
type Options struct {
	// MaterializeDefaults fills absent defaulted fields (ids, timestamps,
	// static enum and bool defaults) in OptionalDefaults shapes and create
	// inputs instead of leaving them absent.
	MaterializeDefaults bool
	// Now supplies timestamps for materialized defaults. Defaults to time.Now.
	Now model.Clock
	// IDs supplies ids for materialized defaults. Defaults to model.NewID.
	IDs func() string
}

type slot struct {
	entity string
	build  func() schema.Schema
}

// Registry holds every derived schema of a model. Safe for concurrent use.
type Registry struct {
	model *model.Schema
	lib   *filters.Library
	opts  Options

	// slots is written only by New.
	slots map[string]slot

	mu    sync.RWMutex
	built map[string]schema.Schema
}

// New declares every slot derived from m. Nothing is built yet.
func New(m *model.Schema, opts Options) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IDs == nil {
		opts.IDs = model.NewID
	}
	r := &Registry{
		model: m,
		lib:   filters.NewLibrary(),
		opts:  opts,
		slots: make(map[string]slot),
		built: make(map[string]schema.Schema),
	}
	r.declareShared()
	for _, e := range m.Entities {
		r.declareEntity(e)
	}
	return r
}

// Model returns the entity graph the registry was derived from.
func (r *Registry) Model() *model.Schema { return r.model }

func (r *Registry) declare(entity, name string, build func() schema.Schema) {
	if _, dup := r.slots[name]; dup {
		panic(fmt.Sprintf("registry: slot %s declared twice", name))
	}
	r.slots[name] = slot{entity: entity, build: build}
}

// canonical maps name onto a slot key. A trailing "Schema" is accepted, so
// "UserSchema" and "User" name the same slot.
func (r *Registry) canonical(name string) (string, bool) {
	if _, ok := r.slots[name]; ok {
		return name, true
	}
	if trimmed := strings.TrimSuffix(name, "Schema"); trimmed != name {
		if _, ok := r.slots[trimmed]; ok {
			return trimmed, true
		}
	}
	return "", false
}

// Lookup returns the schema registered under name, building it on first use.
func (r *Registry) Lookup(name string) (schema.Schema, error) {
	key, ok := r.canonical(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	return r.get(key), nil
}

func (r *Registry) get(key string) schema.Schema {
	r.mu.RLock()
	s, ok := r.built[key]
	r.mu.RUnlock()
	if ok {
		return s
	}

	built := r.slots[key].build()

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.built[key]; ok {
		return s
	}
	r.built[key] = built
	return built
}

// ref returns a lazy handle to a declared slot. Referring to an undeclared
// name is a programming error and panics immediately.
func (r *Registry) ref(name string) schema.Schema {
	if _, ok := r.slots[name]; !ok {
		panic(fmt.Sprintf("registry: reference to undeclared slot %s", name))
	}
	return schema.Lazy(func() schema.Schema { return r.get(name) })
}

// Validate parses v against the named schema. Failures are returned as a
// *schema.ValidationError.
func (r *Registry) Validate(name string, v any) (any, error) {
	key, ok := r.canonical(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	return schema.Validate(key, r.get(key), v)
}

// Names lists every slot, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.slots))
	for name := range r.slots {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// EntityNames lists the slots derived from one entity, sorted. Shared slots
// (enums, scalar filters, sentinels) belong to no entity.
func (r *Registry) EntityNames(entity string) []string {
	var out []string
	for name, s := range r.slots {
		if s.entity == entity {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Warm builds every slot and resolves every lazy reference reachable from
// it, returning how many slots exist.
func (r *Registry) Warm() int {
	names := r.Names()
	seen := make(map[schema.Schema]struct{})
	for _, name := range names {
		resolveAll(r.get(name), seen)
	}
	return len(names)
}

func resolveAll(s schema.Schema, seen map[schema.Schema]struct{}) {
	if s == nil {
		return
	}
	if _, ok := seen[s]; ok {
		return
	}
	seen[s] = struct{}{}
	switch t := s.(type) {
	case *schema.ObjectSchema:
		for _, p := range t.Props() {
			resolveAll(p.Schema, seen)
		}
	case *schema.ArraySchema:
		resolveAll(t.Elem, seen)
	case *schema.UnionSchema:
		for _, opt := range t.Options {
			resolveAll(opt, seen)
		}
	case *uniqueWhereSchema:
		for _, alt := range t.alternatives {
			resolveAll(alt.value, seen)
		}
		resolveAll(t.where, seen)
	case schema.Wrapper:
		resolveAll(t.Unwrap(), seen)
	}
}
