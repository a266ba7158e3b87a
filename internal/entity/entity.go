package entity

import "maps"

// DefaultIDAttribute is the identifier attribute used when a type does not
// declare one.
const DefaultIDAttribute = "id"

// Attributes is a plain key/value bag representing an entity's known state.
type Attributes map[string]any

// Has reports whether key is present. A key mapped to a zero value is present.
func (a Attributes) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Clone returns a shallow copy. Cloning nil yields an empty bag.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	maps.Copy(out, a)
	return out
}

// ModelDef describes a registered model type.
type ModelDef struct {
	// Name is the registered type identifier, e.g. "Listing".
	Name string `json:"name"`

	// IDAttribute names the identifier attribute. Empty means "id".
	IDAttribute string `json:"id_attribute,omitempty"`

	// JSONKey, when set, is the key a remote response wraps the attributes in.
	JSONKey string `json:"json_key,omitempty"`

	// URL is the remote path template, e.g. "/listings/:id".
	URL string `json:"url,omitempty"`
}

// IDAttr returns the effective identifier attribute.
func (d ModelDef) IDAttr() string {
	if d.IDAttribute == "" {
		return DefaultIDAttribute
	}
	return d.IDAttribute
}

// CollectionDef describes a registered collection type.
type CollectionDef struct {
	Name    string `json:"name"`
	Model   string `json:"model"`
	JSONKey string `json:"json_key,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Entity is the subset shared by models and collections.
type Entity interface {
	// TypeName returns the registered (unnormalized) type identifier.
	TypeName() string
	App() any
	SetApp(app any)
}

// Model is a single typed entity.
type Model interface {
	Entity
	Def() ModelDef

	// ID returns the identifier attribute value, if present.
	ID() (any, bool)
	Get(key string) (any, bool)

	// Set merges attrs into the model. Existing keys not in attrs are kept.
	Set(attrs Attributes)

	// Attributes returns a copy of the current bag.
	Attributes() Attributes

	// Parse turns a raw remote response into an attribute bag.
	Parse(raw any) (Attributes, error)

	// ToJSON returns the serialized form of the model.
	ToJSON() Attributes
}

// Collection is an ordered set of models of one type.
type Collection interface {
	Entity
	Def() CollectionDef
	Models() []Model
	Len() int
	Add(models ...Model)
	Reset(models ...Model)
	Params() Attributes
	Meta() Attributes
	SetParams(params Attributes)
	SetMeta(meta Attributes)

	// Parse turns a raw remote response into member bags and meta.
	Parse(raw any) ([]Attributes, Attributes, error)

	ToJSON() []Attributes

	// Pluck returns attr from every member, in member order.
	Pluck(attr string) []any
}
