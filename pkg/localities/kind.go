// Package localities is a thin client for the Woosmap Localities API.
package localities

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Kind selects the Localities endpoint and therefore the request and response shape.
type Kind string

const (
	KindAutocomplete Kind = "autocomplete"
	KindSearch       Kind = "search"
	KindGeocode      Kind = "geocode"
	KindDetails      Kind = "details"
)

// Kinds lists every supported endpoint kind.
var Kinds = []Kind{KindAutocomplete, KindSearch, KindGeocode, KindDetails}

// ParseKind maps a selector value onto a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", eris.Errorf("localities: unknown endpoint %q", s)
}

// ParseSearchKind is ParseKind restricted to the endpoints that return result lists.
func ParseSearchKind(s string) (Kind, error) {
	k, err := ParseKind(s)
	if err != nil {
		return "", err
	}
	if k == KindDetails {
		return "", eris.New("localities: details is not a search endpoint")
	}
	return k, nil
}

// Segment is the URL path segment appended to an environment base URL.
func (k Kind) Segment() string {
	return string(k)
}

func (k Kind) String() string {
	return string(k)
}
