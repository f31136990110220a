package mapview

import "github.com/sells-group/localities-compare/pkg/localities"

// StyleRule is one map style entry.
type StyleRule struct {
	FeatureType string              `json:"featureType"`
	ElementType string              `json:"elementType"`
	Stylers     []map[string]string `json:"stylers"`
}

// MarkerIcon is the image drawn for the selected location.
type MarkerIcon struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// PolygonStyle is the stroke and fill of a viewport outline.
type PolygonStyle struct {
	StrokeColor   string  `json:"strokeColor"`
	StrokeOpacity float64 `json:"strokeOpacity"`
	StrokeWeight  int     `json:"strokeWeight"`
	FillColor     string  `json:"fillColor"`
	FillOpacity   float64 `json:"fillOpacity"`
}

// ZoomLevels maps a location type to a zoom when there is no viewport to fit.
type ZoomLevels struct {
	Locality   int `json:"locality"`
	PostalCode int `json:"postalCode"`
	Address    int `json:"address"`
}

// For returns the zoom for a location type.
func (z ZoomLevels) For(locationType string) int {
	switch locationType {
	case "locality":
		return z.Locality
	case "postal_code":
		return z.PostalCode
	default:
		return z.Address
	}
}

// Options are the widget construction options plus marker and outline styling.
type Options struct {
	Center           localities.LatLng `json:"center"`
	Zoom             int               `json:"zoom"`
	GestureHandling  string            `json:"gestureHandling"`
	DisableDefaultUI bool              `json:"disableDefaultUI"`
	Styles           []StyleRule       `json:"styles"`
	Marker           MarkerIcon        `json:"marker"`
	Polygon          PolygonStyle      `json:"polygon"`
	ZoomLevels       ZoomLevels        `json:"zoomLevels"`
}

// DefaultOptions centers on Paris with points of interest visible.
func DefaultOptions() Options {
	return Options{
		Center:           localities.LatLng{Lat: 48.8534, Lng: 2.3488},
		Zoom:             5,
		GestureHandling:  "greedy",
		DisableDefaultUI: true,
		Styles: []StyleRule{{
			FeatureType: "point_of_interest",
			ElementType: "all",
			Stylers:     []map[string]string{{"visibility": "on"}},
		}},
		Marker: MarkerIcon{URL: "https://images.woosmap.com/dot-marker.png", Width: 46, Height: 64},
		Polygon: PolygonStyle{
			StrokeColor:   "#b71c1c",
			StrokeOpacity: 0.8,
			StrokeWeight:  2,
			FillColor:     "#b71c1c",
			FillOpacity:   0.5,
		},
		ZoomLevels: ZoomLevels{Locality: 8, PostalCode: 6, Address: 16},
	}
}
