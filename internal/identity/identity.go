// Package identity normalizes business identifiers into the single join key
// used across the CSV and campaign sources. Every id comparison in the hub
// goes through NormalizeID; no other code path may massage ids.
package identity

import (
	"fmt"
	"regexp"
	"strings"
)

// Trailing suffix tags like "_C" or "_AB" mark source-file variants, not
// distinct businesses.
var suffixTag = regexp.MustCompile(`(?:_[A-Z]+)+$`)

// NormalizeID canonicalizes a raw business id: trims whitespace, strips all
// leading zeros, then strips a trailing underscore-uppercase suffix tag.
// "00321_C" normalizes to "321". An id consisting entirely of zeros
// normalizes to the empty string; callers must treat "" as unmatched and
// exclude the record rather than joining on it.
func NormalizeID(raw string) string {
	id := strings.TrimSpace(raw)
	id = strings.TrimLeft(id, "0")
	id = strings.TrimSpace(id)
	return suffixTag.ReplaceAllString(id, "")
}

// NormalizeIDAny accepts the id however the source encoded it (string in CSV,
// number in campaign JSON) and normalizes the stringified form.
func NormalizeIDAny(raw any) string {
	switch v := raw.(type) {
	case string:
		return NormalizeID(v)
	case float64:
		// JSON numbers decode as float64; ids are integral.
		return NormalizeID(fmt.Sprintf("%.0f", v))
	case int:
		return NormalizeID(fmt.Sprintf("%d", v))
	case int64:
		return NormalizeID(fmt.Sprintf("%d", v))
	case nil:
		return ""
	default:
		return NormalizeID(fmt.Sprintf("%v", v))
	}
}
