package entity

import (
	"fmt"
	"sync"
)

// BaseModel is the default Model implementation.
// It is safe for concurrent use.
type BaseModel struct {
	def ModelDef

	mu    sync.RWMutex
	attrs Attributes
	app   any
}

var _ Model = (*BaseModel)(nil)

// NewModel creates a model of def holding a copy of attrs.
func NewModel(def ModelDef, attrs Attributes) *BaseModel {
	return &BaseModel{def: def, attrs: attrs.Clone()}
}

func (m *BaseModel) Def() ModelDef    { return m.def }
func (m *BaseModel) TypeName() string { return m.def.Name }

func (m *BaseModel) ID() (any, bool) {
	return m.Get(m.def.IDAttr())
}

func (m *BaseModel) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.attrs[key]
	return v, ok
}

func (m *BaseModel) Set(attrs Attributes) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attrs == nil {
		m.attrs = make(Attributes, len(attrs))
	}
	for k, v := range attrs {
		m.attrs[k] = v
	}
}

func (m *BaseModel) Attributes() Attributes {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attrs.Clone()
}

// Parse unwraps the response under JSONKey when the type declares one and
// the response carries it; otherwise the response itself is the bag.
func (m *BaseModel) Parse(raw any) (Attributes, error) {
	obj, ok := asObject(raw)
	if !ok {
		return nil, fmt.Errorf("parse %s: expected object, got %T", m.def.Name, raw)
	}
	if m.def.JSONKey != "" {
		if inner, found := obj[m.def.JSONKey]; found {
			wrapped, ok := asObject(inner)
			if !ok {
				return nil, fmt.Errorf("parse %s: %q is %T, not an object", m.def.Name, m.def.JSONKey, inner)
			}
			return wrapped.Clone(), nil
		}
	}
	return obj.Clone(), nil
}

func (m *BaseModel) ToJSON() Attributes {
	return m.Attributes()
}

func (m *BaseModel) App() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.app
}

func (m *BaseModel) SetApp(app any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.app = app
}

func asObject(v any) (Attributes, bool) {
	switch val := v.(type) {
	case Attributes:
		return val, true
	case map[string]any:
		return Attributes(val), true
	default:
		return nil, false
	}
}
