// Package mapview drives a map widget from selected locations.
package mapview

import (
	"sync"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/localities-compare/internal/normalize"
	"github.com/sells-group/localities-compare/pkg/localities"
)

// Marker is a placed marker.
type Marker interface {
	Remove()
}

// Overlay is a drawn shape.
type Overlay interface {
	Remove()
}

// MarkerSpec describes a marker to place.
type MarkerSpec struct {
	Position localities.LatLng `json:"position"`
	Icon     MarkerIcon        `json:"icon"`
}

// PolygonSpec describes an outline to draw.
type PolygonSpec struct {
	Shape *geom.Polygon
	Style PolygonStyle
}

// Path returns the outer ring as lat/lng pairs.
func (p PolygonSpec) Path() []localities.LatLng {
	if p.Shape == nil || p.Shape.NumLinearRings() == 0 {
		return nil
	}
	ring := p.Shape.LinearRing(0)
	out := make([]localities.LatLng, 0, ring.NumCoords())
	for i := 0; i < ring.NumCoords(); i++ {
		c := ring.Coord(i)
		out = append(out, localities.LatLng{Lat: c.Y(), Lng: c.X()})
	}
	return out
}

// Widget is the map the adapter draws on.
type Widget interface {
	PanTo(p localities.LatLng)
	SetZoom(zoom int)
	AddMarker(spec MarkerSpec) Marker
	AddPolygon(spec PolygonSpec) Overlay
}

// Adapter shows one selected location at a time. It owns the current marker and
// outline and nothing else.
type Adapter struct {
	widget Widget
	opts   Options

	mu      sync.Mutex
	marker  Marker
	outline Overlay
}

// NewAdapter wraps w.
func NewAdapter(w Widget, opts Options) *Adapter {
	return &Adapter{widget: w, opts: opts}
}

// Show replaces whatever was shown with d: clear the previous outline and marker,
// pan to the point, then either outline the viewport or zoom by location type, then
// place the marker. Records without a location are ignored and Show returns false.
func (a *Adapter) Show(d normalize.Detail) bool {
	if d.Location == nil {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.outline != nil {
		a.outline.Remove()
		a.outline = nil
	}
	if a.marker != nil {
		a.marker.Remove()
		a.marker = nil
	}

	a.widget.PanTo(*d.Location)

	if d.Viewport != nil {
		shape, err := ViewportPolygon(*d.Viewport)
		if err != nil {
			zap.L().Warn("mapview: bad viewport, zooming by type instead", zap.Error(err))
			a.widget.SetZoom(a.opts.ZoomLevels.For(d.PrimaryType()))
		} else {
			a.outline = a.widget.AddPolygon(PolygonSpec{Shape: shape, Style: a.opts.Polygon})
		}
	} else {
		a.widget.SetZoom(a.opts.ZoomLevels.For(d.PrimaryType()))
	}

	a.marker = a.widget.AddMarker(MarkerSpec{Position: *d.Location, Icon: a.opts.Marker})
	return true
}

// Clear removes the current marker and outline.
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.outline != nil {
		a.outline.Remove()
		a.outline = nil
	}
	if a.marker != nil {
		a.marker.Remove()
		a.marker = nil
	}
}

// ViewportPolygon builds the closed rectangle NE, SE, SW, NW, NE. Coordinates are
// X=lng, Y=lat.
func ViewportPolygon(vp localities.Viewport) (*geom.Polygon, error) {
	ne, sw := vp.Northeast, vp.Southwest
	ring := []geom.Coord{
		{ne.Lng, ne.Lat},
		{ne.Lng, sw.Lat},
		{sw.Lng, sw.Lat},
		{sw.Lng, ne.Lat},
		{ne.Lng, ne.Lat},
	}
	p, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{ring})
	if err != nil {
		return nil, eris.Wrap(err, "mapview: build viewport polygon")
	}
	return p, nil
}
