package localities

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// DefaultLanguage is used when a request carries no language.
const DefaultLanguage = "fr"

// Target is a resolved backend environment: where to send requests and with which key.
type Target struct {
	Name    string
	Key     string
	BaseURL string
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" yaml:"lng" validate:"gte=-180,lte=180"`
}

// String formats the pair the way the API expects it: "lat,lng".
func (p LatLng) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// Bias nudges ranking toward results near Center.
type Bias struct {
	Center       LatLng
	RadiusMeters int `validate:"gt=0"`
}

// SearchRequest is one logical query. It is built per search and not mutated afterwards.
type SearchRequest struct {
	Input     string
	Language  string
	Countries []string `validate:"dive,iso3166_1_alpha2"`
	Types     []string `validate:"dive,required"`
	Extended  bool
	Bias      *Bias
}

// DetailsRequest looks up a single locality by public id.
type DetailsRequest struct {
	PublicID string `validate:"required"`
	Language string
	Fields   []string
}

// ReverseRequest resolves a clicked coordinate to the nearest address.
type ReverseRequest struct {
	Location  LatLng
	Countries []string `validate:"dive,iso3166_1_alpha2"`
	Types     []string
}

var validate = validator.New()

// Validate checks the request against its struct tags.
func (r SearchRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return eris.Wrap(err, "localities: invalid search request")
	}
	return nil
}

// Validate checks the request against its struct tags.
func (r DetailsRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return eris.Wrap(err, "localities: invalid details request")
	}
	return nil
}

// Validate checks the request against its struct tags.
func (r ReverseRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return eris.Wrap(err, "localities: invalid reverse request")
	}
	return nil
}
