package naming

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// Pluralize returns the plural of the last word of a table name, e.g.
// "member" -> "members". Config overrides win over inflection rules.
func (n *Namer) Pluralize(word string) string {
	if v, ok := lookupFold(n.config.PluralOverrides, word); ok {
		return v
	}
	return inflection.Plural(word)
}

// Singularize is the inverse of Pluralize.
func (n *Namer) Singularize(word string) string {
	if v, ok := lookupFold(n.config.SingularOverrides, word); ok {
		return v
	}
	return inflection.Singular(word)
}

// lookupFold finds key in m ignoring case; viper lowercases map keys.
func lookupFold(m map[string]string, key string) (string, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}
