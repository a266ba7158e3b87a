package entity

import (
	"fmt"
	"sync"
)

// BaseCollection is the default Collection implementation.
// It is safe for concurrent use.
type BaseCollection struct {
	def CollectionDef

	mu     sync.RWMutex
	models []Model
	params Attributes
	meta   Attributes
	app    any
}

var _ Collection = (*BaseCollection)(nil)

// NewCollection creates a collection of def with members in the given order.
// Nil params or meta become empty bags.
func NewCollection(def CollectionDef, models []Model, params, meta Attributes) *BaseCollection {
	c := &BaseCollection{
		def:    def,
		models: append([]Model(nil), models...),
		params: params,
		meta:   meta,
	}
	if c.params == nil {
		c.params = Attributes{}
	}
	if c.meta == nil {
		c.meta = Attributes{}
	}
	return c
}

func (c *BaseCollection) Def() CollectionDef { return c.def }
func (c *BaseCollection) TypeName() string   { return c.def.Name }

func (c *BaseCollection) Models() []Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Model(nil), c.models...)
}

func (c *BaseCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}

func (c *BaseCollection) Add(models ...Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = append(c.models, models...)
}

func (c *BaseCollection) Reset(models ...Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = append([]Model(nil), models...)
}

// Params returns the params as held; callers must not mutate the result.
func (c *BaseCollection) Params() Attributes {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.params
}

// Meta returns the meta as held; callers must not mutate the result.
func (c *BaseCollection) Meta() Attributes {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.meta
}

func (c *BaseCollection) SetParams(params Attributes) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if params == nil {
		params = Attributes{}
	}
	c.params = params
}

func (c *BaseCollection) SetMeta(meta Attributes) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if meta == nil {
		meta = Attributes{}
	}
	c.meta = meta
}

// Parse accepts either a bare array of member objects or an object wrapping
// the array under JSONKey. In the wrapped form every other key becomes meta.
func (c *BaseCollection) Parse(raw any) ([]Attributes, Attributes, error) {
	list := raw
	meta := Attributes{}
	if obj, ok := asObject(raw); ok {
		if c.def.JSONKey == "" {
			return nil, nil, fmt.Errorf("parse %s: object response but no json_key declared", c.def.Name)
		}
		inner, found := obj[c.def.JSONKey]
		if !found {
			return nil, nil, fmt.Errorf("parse %s: response has no %q key", c.def.Name, c.def.JSONKey)
		}
		list = inner
		for k, v := range obj {
			if k != c.def.JSONKey {
				meta[k] = v
			}
		}
	}

	items, ok := list.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("parse %s: expected array, got %T", c.def.Name, list)
	}
	members := make([]Attributes, len(items))
	for i, item := range items {
		obj, ok := asObject(item)
		if !ok {
			return nil, nil, fmt.Errorf("parse %s: member %d is %T, not an object", c.def.Name, i, item)
		}
		members[i] = obj.Clone()
	}
	return members, meta, nil
}

func (c *BaseCollection) ToJSON() []Attributes {
	models := c.Models()
	out := make([]Attributes, len(models))
	for i, m := range models {
		out[i] = m.ToJSON()
	}
	return out
}

func (c *BaseCollection) Pluck(attr string) []any {
	models := c.Models()
	out := make([]any, len(models))
	for i, m := range models {
		out[i], _ = m.Get(attr)
	}
	return out
}

func (c *BaseCollection) App() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.app
}

func (c *BaseCollection) SetApp(app any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.app = app
}
