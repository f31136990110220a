package localities

import (
	"net/url"
	"strconv"
	"strings"
)

// Param is a single query string entry.
type Param struct {
	Key   string
	Value string
}

// Params is an insertion-ordered query string with unique keys. url.Values sorts keys on
// Encode, which would reorder the request compared to how it was built.
type Params []Param

// Set replaces the value of an existing key or appends a new one.
func (p *Params) Set(key, value string) {
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Param{Key: key, Value: value})
}

// Get returns the value for key and whether it was present.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Map returns the params as a plain map. Ordering is lost.
func (p Params) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, kv := range p {
		m[kv.Key] = kv.Value
	}
	return m
}

// Encode serializes the params in insertion order.
func (p Params) Encode() string {
	parts := make([]string, 0, len(p))
	for _, kv := range p {
		parts = append(parts, url.QueryEscape(kv.Key)+"="+url.QueryEscape(kv.Value))
	}
	return strings.Join(parts, "&")
}

// BuildParams turns a search request into the query parameters for the given endpoint.
func BuildParams(kind Kind, req SearchRequest) Params {
	lang := req.Language
	if lang == "" {
		lang = DefaultLanguage
	}

	var p Params
	p.Set("input", req.Input)
	p.Set("language", lang)
	p.Set("data", "advanced")

	if req.Extended {
		p.Set("extended", "postal_code")
	}

	switch kind {
	case KindSearch:
		p.Set("location", "0,0")
	case KindGeocode:
		p.Set("address", req.Input)
	}

	if req.Bias != nil {
		p.Set("location", req.Bias.Center.String())
		p.Set("radius", strconv.Itoa(req.Bias.RadiusMeters))
	}

	if c := Components(req.Countries); c != "" {
		p.Set("components", c)
	}
	if len(req.Types) > 0 {
		p.Set("types", strings.Join(req.Types, "|"))
	}

	return p
}

// DetailsParams builds the query for a details lookup.
func DetailsParams(req DetailsRequest) Params {
	lang := req.Language
	if lang == "" {
		lang = DefaultLanguage
	}

	var p Params
	p.Set("language", lang)
	p.Set("public_id", req.PublicID)
	if len(req.Fields) > 0 {
		p.Set("fields", strings.Join(req.Fields, "|"))
	}
	return p
}

// ReverseParams builds the query for a reverse geocode of a clicked point.
func ReverseParams(req ReverseRequest) Params {
	var p Params
	p.Set("latlng", req.Location.String())
	if c := Components(req.Countries); c != "" {
		p.Set("components", c)
	}
	if len(req.Types) > 0 {
		p.Set("types", strings.Join(req.Types, "|"))
	}
	return p
}

// Components serializes country restrictions as "country:FR|country:DE".
func Components(countries []string) string {
	if len(countries) == 0 {
		return ""
	}
	parts := make([]string, 0, len(countries))
	for _, c := range countries {
		parts = append(parts, "country:"+c)
	}
	return strings.Join(parts, "|")
}

// BuildURL assembles "{baseURL}{segment}/?key=...&..." with the key first.
func BuildURL(baseURL, segment, key string, params Params) string {
	all := make(Params, 0, len(params)+1)
	all.Set("key", key)
	for _, kv := range params {
		all.Set(kv.Key, kv.Value)
	}
	return baseURL + segment + "/?" + all.Encode()
}
