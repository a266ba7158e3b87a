// Package entity defines the typed-object contract the fetcher works with.
//
// A Model is a single entity holding an attribute bag; a Collection is an
// ordered sequence of models plus the params it was fetched with and the
// meta returned alongside it. Both carry a definition (ModelDef or
// CollectionDef) naming the registered type, its identifier attribute,
// response wrapping key, and remote URL template.
//
// BaseModel and BaseCollection implement the contracts and are meant to be
// embedded by concrete types that need custom parsing.
//
// Every entity can carry an opaque application reference (App/SetApp).
// The fetcher attaches it on hydration; nothing in this package inspects it.
package entity
