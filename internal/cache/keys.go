package cache

import "strings"

// defaultDiscriminator is the sentinel token used when a call site
// passes an empty discriminator value. A fixed token keeps a missing
// optional discriminator from colliding with the no-discriminator key.
const defaultDiscriminator = "default"

// keySeparator joins the key segments. Subject ids and discriminators
// are expected not to contain it.
const keySeparator = "-"

// DeriveKey maps a (kind, id, discriminators) triple to a stable cache
// key.
//
// The function is pure and total: equal inputs always produce
// byte-identical keys, and distinct discriminator tuples never collide
// for the same (kind, id). Discriminators are joined in argument
// order; empty values are replaced with a fixed sentinel so that
// "discriminator not supplied" and "discriminator empty" derive the
// same documented key.
//
// Examples:
//
//	DeriveKey(KindProduct, "P001", "2024-Q1")     // "product-P001-2024-Q1"
//	DeriveKey(KindIndicator, "ind007", "growth-15") // "indicator-ind007-growth-15"
//	DeriveKey(KindIndicator, "ind007")              // "indicator-ind007"
func DeriveKey(kind Kind, id string, discriminators ...string) string {
	segments := make([]string, 0, 2+len(discriminators))
	segments = append(segments, string(kind), id)
	for _, d := range discriminators {
		if d == "" {
			d = defaultDiscriminator
		}
		segments = append(segments, d)
	}
	return strings.Join(segments, keySeparator)
}
