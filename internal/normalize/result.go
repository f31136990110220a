// Package normalize turns the per-endpoint shapes of Localities responses into one
// renderable summary, and location records into detail panel rows.
package normalize

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/sells-group/localities-compare/pkg/localities"
)

// TypeClass says whether a result's type label came from its categories or its types.
type TypeClass string

// Type label sources.
const (
	ClassCategory TypeClass = "category"
	ClassType     TypeClass = "type"
)

// Result is one entry of a result list, ready for display.
type Result struct {
	ID             string
	Name           []Span
	PostalCodes    []string
	Subtitle       string
	TypeLabel      string
	TypeClass      TypeClass
	FromProduction bool
}

// NameHTML renders the display name with highlighted matches and any postal codes.
func (r Result) NameHTML() string {
	out := SpansHTML(r.Name)
	if len(r.PostalCodes) > 0 {
		escaped := make([]string, len(r.PostalCodes))
		for i, pc := range r.PostalCodes {
			escaped[i] = html.EscapeString(pc)
		}
		out += " (" + strings.Join(escaped, ", ") + ")"
	}
	return out
}

// NameText is the display name as plain text, postal codes included.
func (r Result) NameText() string {
	out := SpansText(r.Name)
	if len(r.PostalCodes) > 0 {
		out += " (" + strings.Join(r.PostalCodes, ", ") + ")"
	}
	return out
}

// Label is the text written back into the search box when the result is picked.
func (r Result) Label() string {
	if r.Subtitle == "" {
		return r.NameText()
	}
	return r.NameText() + ", " + r.Subtitle
}

// MarshalJSON includes the rendered forms next to the raw fields. Plain fields
// are text; every *_html field is already escaped markup.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID             string    `json:"id"`
		Name           []Span    `json:"name"`
		NameHTML       string    `json:"name_html"`
		Label          string    `json:"label"`
		PostalCodes    []string  `json:"postal_codes,omitempty"`
		Subtitle       string    `json:"subtitle,omitempty"`
		SubtitleHTML   string    `json:"subtitle_html,omitempty"`
		TypeLabel      string    `json:"type_label"`
		TypeLabelHTML  string    `json:"type_label_html"`
		TypeClass      TypeClass `json:"type_class"`
		FromProduction bool      `json:"from_production"`
	}{
		ID:             r.ID,
		Name:           r.Name,
		NameHTML:       r.NameHTML(),
		Label:          r.Label(),
		PostalCodes:    r.PostalCodes,
		Subtitle:       r.Subtitle,
		SubtitleHTML:   html.EscapeString(r.Subtitle),
		TypeLabel:      r.TypeLabel,
		TypeLabelHTML:  html.EscapeString(r.TypeLabel),
		TypeClass:      r.TypeClass,
		FromProduction: r.FromProduction,
	})
}

// Normalize maps one decoded item to a Result.
func Normalize(item localities.Item, prod bool) Result {
	var r Result
	switch it := item.(type) {
	case localities.SearchItem:
		r = fromCommon(it.Common)
		r.Name = plain(it.Title)
		r.Subtitle = it.Description
	case localities.GeocodeItem:
		r = fromCommon(it.Common)
		r.Name = plain(it.FormattedAddress)
	case localities.AutocompleteItem:
		r = fromCommon(it.Common)
		if it.MatchedSubstrings != nil && len(it.MatchedSubstrings.Description) > 0 {
			r.Name = Highlight(it.Description, it.MatchedSubstrings.Description)
		} else {
			r.Name = plain(it.Description)
		}
	}
	r.FromProduction = prod
	return r
}

// NormalizeAll maps a result list, keeping order.
func NormalizeAll(items []localities.Item, prod bool) []Result {
	out := make([]Result, 0, len(items))
	for _, it := range items {
		out = append(out, Normalize(it, prod))
	}
	return out
}

func fromCommon(c localities.Common) Result {
	r := Result{ID: c.PublicID, PostalCodes: c.PostalCodes}
	if len(c.Categories) > 0 {
		r.TypeLabel, r.TypeClass = c.Categories[0], ClassCategory
	} else {
		r.TypeLabel, r.TypeClass = strings.Join(c.Types, " | "), ClassType
	}
	return r
}
