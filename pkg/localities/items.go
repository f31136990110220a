package localities

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Item is one entry of a result list. The concrete type depends on the endpoint that
// produced it and is fixed when the response is decoded.
type Item interface {
	ID() string
	item()
}

// Common holds the fields every list item shares.
type Common struct {
	PublicID    string   `json:"public_id"`
	Types       []string `json:"types"`
	Categories  []string `json:"categories"`
	PostalCodes []string `json:"postal_codes"`
}

// ID returns the public id.
func (c Common) ID() string { return c.PublicID }

func (Common) item() {}

// Substring is a server-reported match span in UTF-16 code units.
type Substring struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// MatchedSubstrings groups match spans by the field they refer to.
type MatchedSubstrings struct {
	Description []Substring `json:"description"`
}

// AutocompleteItem is an entry of the autocomplete "localities" array.
type AutocompleteItem struct {
	Common
	Description       string             `json:"description"`
	MatchedSubstrings *MatchedSubstrings `json:"matched_substrings"`
}

// SearchItem is an entry of the search "results" array.
type SearchItem struct {
	Common
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GeocodeItem is an entry of the geocode "results" array.
type GeocodeItem struct {
	Common
	FormattedAddress string `json:"formatted_address"`
}

// DecodeItems decodes the raw list entries into the variant matching kind.
func DecodeItems(kind Kind, raw []json.RawMessage) ([]Item, error) {
	items := make([]Item, 0, len(raw))
	for i, r := range raw {
		var (
			it  Item
			err error
		)
		switch kind {
		case KindSearch:
			var v SearchItem
			err = json.Unmarshal(r, &v)
			it = v
		case KindGeocode:
			var v GeocodeItem
			err = json.Unmarshal(r, &v)
			it = v
		case KindAutocomplete:
			var v AutocompleteItem
			err = json.Unmarshal(r, &v)
			it = v
		default:
			return nil, eris.Errorf("localities: %s responses carry no item list", kind)
		}
		if err != nil {
			return nil, eris.Wrapf(err, "localities: decode %s item %d", kind, i)
		}
		items = append(items, it)
	}
	return items, nil
}

// Viewport is the bounding box of a location.
type Viewport struct {
	Northeast LatLng `json:"northeast"`
	Southwest LatLng `json:"southwest"`
}

// Geometry is the point, optional viewport and accuracy of a location.
type Geometry struct {
	Location LatLng    `json:"location"`
	Viewport *Viewport `json:"viewport"`
	Accuracy string    `json:"accuracy"`
}

// AddressComponent is one structured piece of an address.
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// Detail is a full location record, as returned by details and reverse geocoding.
type Detail struct {
	PublicID          string             `json:"public_id"`
	FormattedAddress  string             `json:"formatted_address"`
	Title             string             `json:"title"`
	Name              string             `json:"name"`
	Description       string             `json:"description"`
	Types             []string           `json:"types"`
	Categories        []string           `json:"categories"`
	Geometry          *Geometry          `json:"geometry"`
	AddressComponents []AddressComponent `json:"address_components"`
}
