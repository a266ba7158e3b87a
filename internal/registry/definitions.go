package registry

import (
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/fetchr/internal/entity"
)

// definitionSchema closes the accepted shape so typos in a types file fail
// loudly instead of being ignored.
const definitionSchema = `
#Definitions: {
	model?: [string]: {
		id_attribute?: string
		json_key?:     string
		url?:          string
	}
	collection?: [string]: {
		model:     string
		json_key?: string
		url?:      string
	}
}
`

// Definitions holds type declarations compiled from CUE.
type Definitions struct {
	Models      []entity.ModelDef
	Collections []entity.CollectionDef
}

// DefinitionError reports an invalid type declaration.
type DefinitionError struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *DefinitionError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// CompileString compiles type declarations from CUE source.
//
//	model: Listing: { json_key: "listing", url: "/listings/:id" }
//	collection: Listings: { model: "Listing", json_key: "listings" }
func CompileString(src string) (*Definitions, error) {
	v := cuecontext.New().CompileString(src, cue.Filename("types.cue"))
	return CompileDefinitions(v)
}

// LoadDefinitions loads and compiles the CUE package in dir.
func LoadDefinitions(dir string) (*Definitions, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("types directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("types directory: not a directory: %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError("load", inst.Err)
	}

	v := cuecontext.New().BuildInstance(inst)
	return CompileDefinitions(v)
}

// CompileDefinitions extracts model and collection declarations from v.
// Results are sorted by name so registration is deterministic.
func CompileDefinitions(v cue.Value) (*Definitions, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError("cue", err)
	}

	schema := v.Context().CompileString(definitionSchema, cue.Filename("schema.cue"))
	checked := schema.LookupPath(cue.ParsePath("#Definitions")).Unify(v)
	if err := checked.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError("schema", err)
	}

	defs := &Definitions{}

	models := v.LookupPath(cue.ParsePath("model"))
	if models.Exists() {
		iter, err := models.Fields()
		if err != nil {
			return nil, formatCUEError("model", err)
		}
		for iter.Next() {
			def, err := compileModel(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			defs.Models = append(defs.Models, def)
		}
	}

	collections := v.LookupPath(cue.ParsePath("collection"))
	if collections.Exists() {
		iter, err := collections.Fields()
		if err != nil {
			return nil, formatCUEError("collection", err)
		}
		for iter.Next() {
			def, err := compileCollection(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			defs.Collections = append(defs.Collections, def)
		}
	}

	slices.SortFunc(defs.Models, func(a, b entity.ModelDef) int { return compareStrings(a.Name, b.Name) })
	slices.SortFunc(defs.Collections, func(a, b entity.CollectionDef) int { return compareStrings(a.Name, b.Name) })
	return defs, nil
}

func compileModel(name string, v cue.Value) (entity.ModelDef, error) {
	path := "model." + name
	def := entity.ModelDef{Name: name}

	var err error
	if def.IDAttribute, err = optionalString(path, v, "id_attribute"); err != nil {
		return def, err
	}
	if def.JSONKey, err = optionalString(path, v, "json_key"); err != nil {
		return def, err
	}
	if def.URL, err = optionalString(path, v, "url"); err != nil {
		return def, err
	}
	return def, nil
}

func compileCollection(name string, v cue.Value) (entity.CollectionDef, error) {
	path := "collection." + name
	def := entity.CollectionDef{Name: name}

	var err error
	if def.Model, err = optionalString(path, v, "model"); err != nil {
		return def, err
	}
	if def.Model == "" {
		return def, &DefinitionError{Path: path + ".model", Message: "member model is required", Pos: v.Pos()}
	}
	if def.JSONKey, err = optionalString(path, v, "json_key"); err != nil {
		return def, err
	}
	if def.URL, err = optionalString(path, v, "url"); err != nil {
		return def, err
	}
	return def, nil
}

func optionalString(path string, v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(path+"."+field, err)
	}
	return s, nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(path string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &DefinitionError{Path: path, Message: err.Error()}
	}
	first := errs[0]
	de := &DefinitionError{Path: path, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		de.Pos = positions[0]
	}
	return de
}

// RegisterDefinitions registers every declared type with the base factories.
// Types already registered in code keep their factory.
func (r *Registry) RegisterDefinitions(defs *Definitions) error {
	for _, def := range defs.Models {
		factory := BaseModelFactory
		if existing, err := r.ModelConstructor(def.Name); err == nil {
			factory = existing.factory
		}
		if err := r.Register(def, factory); err != nil {
			return err
		}
	}
	for _, def := range defs.Collections {
		factory := BaseCollectionFactory
		r.mu.RLock()
		if existing, ok := r.collections[Underscorize(def.Name)]; ok {
			factory = existing.factory
		}
		r.mu.RUnlock()
		if err := r.RegisterCollection(def, factory); err != nil {
			return err
		}
	}
	return nil
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
