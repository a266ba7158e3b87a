// Package registry maps type names to model and collection constructors.
//
// Types are registered explicitly at startup, either in code (Register,
// RegisterCollection) or from CUE definitions (RegisterDefinitions).
// Lookups accept the registered identifier ("CustomListing") or its
// underscored form ("custom_listing"); both resolve to the same entry.
package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/fetchr/internal/entity"
)

// ModelFactory constructs a model of def from attrs.
type ModelFactory func(def entity.ModelDef, attrs entity.Attributes) (entity.Model, error)

// CollectionFactory constructs a collection of def.
type CollectionFactory func(def entity.CollectionDef, models []entity.Model, params, meta entity.Attributes) (entity.Collection, error)

// BaseModelFactory builds an *entity.BaseModel.
func BaseModelFactory(def entity.ModelDef, attrs entity.Attributes) (entity.Model, error) {
	return entity.NewModel(def, attrs), nil
}

// BaseCollectionFactory builds an *entity.BaseCollection.
func BaseCollectionFactory(def entity.CollectionDef, models []entity.Model, params, meta entity.Attributes) (entity.Collection, error) {
	return entity.NewCollection(def, models, params, meta), nil
}

// ModelType is a resolved model constructor.
type ModelType struct {
	Def     entity.ModelDef
	factory ModelFactory
}

// New constructs a model. A nil bag yields an empty model.
func (t ModelType) New(attrs entity.Attributes) (entity.Model, error) {
	m, err := t.factory(t.Def, attrs)
	if err != nil {
		return nil, &ConstructError{Name: t.Def.Name, Err: err}
	}
	if m == nil {
		return nil, &ConstructError{Name: t.Def.Name, Err: fmt.Errorf("factory returned nil")}
	}
	return m, nil
}

// CollectionType is a resolved collection constructor together with the
// constructor of its members.
type CollectionType struct {
	Def     entity.CollectionDef
	Member  ModelType
	factory CollectionFactory
}

// New constructs a collection holding models in the given order.
func (t CollectionType) New(models []entity.Model, params, meta entity.Attributes) (entity.Collection, error) {
	c, err := t.factory(t.Def, models, params, meta)
	if err != nil {
		return nil, &ConstructError{Name: t.Def.Name, Err: err}
	}
	if c == nil {
		return nil, &ConstructError{Name: t.Def.Name, Err: fmt.Errorf("factory returned nil")}
	}
	return c, nil
}

// Registry is the name → constructor table.
// Safe for concurrent use; registration normally happens once at startup.
type Registry struct {
	mu          sync.RWMutex
	models      map[string]ModelType
	collections map[string]collectionEntry
}

type collectionEntry struct {
	def     entity.CollectionDef
	factory CollectionFactory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		models:      make(map[string]ModelType),
		collections: make(map[string]collectionEntry),
	}
}

// Register adds a model type. A nil factory uses BaseModelFactory.
// Registering the same name again replaces the previous entry.
func (r *Registry) Register(def entity.ModelDef, factory ModelFactory) error {
	if def.Name == "" {
		return fmt.Errorf("register model: name is required")
	}
	if factory == nil {
		factory = BaseModelFactory
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[Underscorize(def.Name)] = ModelType{Def: def, factory: factory}
	return nil
}

// RegisterCollection adds a collection type. A nil factory uses
// BaseCollectionFactory. The member model type is resolved at lookup time,
// so registration order does not matter.
func (r *Registry) RegisterCollection(def entity.CollectionDef, factory CollectionFactory) error {
	if def.Name == "" {
		return fmt.Errorf("register collection: name is required")
	}
	if def.Model == "" {
		return fmt.Errorf("register collection %s: member model is required", def.Name)
	}
	if factory == nil {
		factory = BaseCollectionFactory
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[Underscorize(def.Name)] = collectionEntry{def: def, factory: factory}
	return nil
}

// ModelConstructor resolves a model type by name.
// Returns *UnknownTypeError if no such model is registered.
func (r *Registry) ModelConstructor(name string) (ModelType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modelLocked(name)
}

func (r *Registry) modelLocked(name string) (ModelType, error) {
	t, ok := r.models[Underscorize(name)]
	if !ok {
		return ModelType{}, &UnknownTypeError{Kind: KindModel, Name: name}
	}
	return t, nil
}

// CollectionConstructor resolves a collection type and its member type.
// Returns *UnknownTypeError if either is not registered.
func (r *Registry) CollectionConstructor(name string) (CollectionType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.collections[Underscorize(name)]
	if !ok {
		return CollectionType{}, &UnknownTypeError{Kind: KindCollection, Name: name}
	}
	member, err := r.modelLocked(entry.def.Model)
	if err != nil {
		return CollectionType{}, err
	}
	return CollectionType{Def: entry.def, Member: member, factory: entry.factory}, nil
}

// NewModel constructs a model of the named type.
func (r *Registry) NewModel(name string, attrs entity.Attributes) (entity.Model, error) {
	t, err := r.ModelConstructor(name)
	if err != nil {
		return nil, err
	}
	return t.New(attrs)
}

// NewCollection constructs a collection of the named type pre-populated
// with already hydrated members, preserving their order.
func (r *Registry) NewCollection(name string, models []entity.Model, params, meta entity.Attributes) (entity.Collection, error) {
	t, err := r.CollectionConstructor(name)
	if err != nil {
		return nil, err
	}
	return t.New(models, params, meta)
}

// Names returns the registered model and collection names, sorted.
func (r *Registry) Names() (models, collections []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.models {
		models = append(models, t.Def.Name)
	}
	for _, e := range r.collections {
		collections = append(collections, e.def.Name)
	}
	slices.Sort(models)
	slices.Sort(collections)
	return models, collections
}
