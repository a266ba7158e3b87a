// Package canonical provides deterministic JSON encoding for cache keys and
// stored attribute bags.
//
// The encoding follows RFC 8785 where it matters for key stability:
//   - Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//   - No HTML escaping (< > & are NOT escaped)
//   - Strings are NFC normalized
//   - Integral floats print as integers, so 9 and 9.0 produce the same key
//
// Unlike strict canonical JSON, null and non-integral floats are accepted:
// fetch params and attribute bags come from arbitrary JSON responses.
//
// Decoding (Unmarshal) restores integral numbers to int64 so that a bag
// written through any store backend reads back with the same Go types.
package canonical
