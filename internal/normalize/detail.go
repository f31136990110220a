package normalize

import (
	"html"
	"strconv"
	"strings"

	"github.com/sells-group/localities-compare/pkg/localities"
)

// Detail is a location record prepared for the detail panel and the map.
type Detail struct {
	ID                string                        `json:"id,omitempty"`
	FormattedAddress  string                        `json:"formatted_address,omitempty"`
	Title             string                        `json:"title,omitempty"`
	Name              string                        `json:"name,omitempty"`
	Description       string                        `json:"description,omitempty"`
	Types             []string                      `json:"types,omitempty"`
	Categories        []string                      `json:"categories,omitempty"`
	Accuracy          string                        `json:"accuracy,omitempty"`
	Location          *localities.LatLng            `json:"location,omitempty"`
	Viewport          *localities.Viewport          `json:"viewport,omitempty"`
	AddressComponents []localities.AddressComponent `json:"address_components,omitempty"`
}

// NewDetail flattens an API location record.
func NewDetail(d *localities.Detail) Detail {
	if d == nil {
		return Detail{}
	}
	out := Detail{
		ID:                d.PublicID,
		FormattedAddress:  d.FormattedAddress,
		Title:             d.Title,
		Name:              d.Name,
		Description:       d.Description,
		Types:             d.Types,
		Categories:        d.Categories,
		AddressComponents: d.AddressComponents,
	}
	if g := d.Geometry; g != nil {
		loc := g.Location
		out.Location = &loc
		out.Viewport = g.Viewport
		out.Accuracy = g.Accuracy
	}
	return out
}

// PrimaryType is the first type, or "" when there is none.
func (d Detail) PrimaryType() string {
	if len(d.Types) == 0 {
		return ""
	}
	return d.Types[0]
}

// Field is one labelled row of the detail panel. Values are plain text.
type Field struct {
	Label    string  `json:"label"`
	Value    string  `json:"value,omitempty"`
	Children []Field `json:"children,omitempty"`
}

// HTML returns the escaped value.
func (f Field) HTML() string {
	return html.EscapeString(f.Value)
}

// Fields lists the panel rows present on d. Coordinates and address components
// only appear when the record has a geometry.
func (d Detail) Fields() []Field {
	var rows []Field
	add := func(label, value string) {
		if value != "" {
			rows = append(rows, Field{Label: label, Value: value})
		}
	}

	add("Public ID", d.ID)
	add("Formatted Address", d.FormattedAddress)
	add("Title", d.Title)
	add("Name", d.Name)
	add("Description", d.Description)
	if len(d.Types) > 0 {
		add("Type", humanize(d.Types[0]))
	}
	if len(d.Categories) > 0 {
		add("Category", humanize(d.Categories[0]))
	}

	if d.Location == nil {
		return rows
	}
	add("Location Type", strings.ToLower(humanize(d.Accuracy)))
	rows = append(rows, Field{Label: "Coordinates", Children: []Field{
		{Label: "Latitude", Value: strconv.FormatFloat(d.Location.Lat, 'f', -1, 64)},
		{Label: "Longitude", Value: strconv.FormatFloat(d.Location.Lng, 'f', -1, 64)},
	}})

	if len(d.AddressComponents) > 0 {
		comps := make([]Field, 0, len(d.AddressComponents))
		for _, c := range d.AddressComponents {
			label := ""
			if len(c.Types) > 0 {
				label = c.Types[0]
			}
			comps = append(comps, Field{Label: label, Value: c.LongName})
		}
		rows = append(rows, Field{Label: "Address Components", Children: comps})
	}
	return rows
}

// humanize replaces the first underscore with a space.
func humanize(s string) string {
	return strings.Replace(s, "_", " ", 1)
}
