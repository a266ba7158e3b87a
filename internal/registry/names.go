package registry

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/fetchr/internal/entity"
)

// Underscorize converts a type identifier to its normalized form:
// "CustomListing" → "custom_listing", "Listing" → "listing".
// Hyphens and spaces become underscores. Already normalized names are
// returned unchanged.
func Underscorize(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)

	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '-' || unicode.IsSpace(r):
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			continue
		case unicode.IsUpper(r):
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Classify is the inverse of Underscorize: "custom_listing" → "CustomListing".
func Classify(name string) string {
	// A Caser is stateful and must not be shared between goroutines.
	titler := cases.Title(language.Und, cases.NoLower)
	parts := strings.Split(Underscorize(name), "_")
	for i, p := range parts {
		parts[i] = titler.String(p)
	}
	return strings.Join(parts, "")
}

// ModelName returns the normalized type name of an entity, the form used
// in summaries and store keys.
func ModelName(e entity.Entity) string {
	return Underscorize(e.TypeName())
}
