package mapview

import (
	"fmt"
	"sync"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/localities-compare/pkg/localities"
)

// Op is one recorded widget call.
type Op struct {
	Name   string `json:"op"`
	Detail string `json:"detail,omitempty"`
}

// State is what the map currently shows.
type State struct {
	Center  localities.LatLng   `json:"center"`
	Zoom    int                 `json:"zoom"`
	Marker  *MarkerSpec         `json:"marker,omitempty"`
	Outline *geojson.Geometry   `json:"outline,omitempty"`
	Path    []localities.LatLng `json:"path,omitempty"`
}

// Recorder is a headless Widget. It logs every call and tracks the resulting map
// state, for the CLI, the HTTP server and tests.
type Recorder struct {
	mu      sync.Mutex
	ops     []Op
	state   State
	outline *PolygonSpec
}

// NewRecorder starts at the configured center and zoom.
func NewRecorder(opts Options) *Recorder {
	return &Recorder{state: State{Center: opts.Center, Zoom: opts.Zoom}}
}

func (r *Recorder) record(name, detail string) {
	r.ops = append(r.ops, Op{Name: name, Detail: detail})
}

// PanTo implements Widget.
func (r *Recorder) PanTo(p localities.LatLng) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Center = p
	r.record("pan", p.String())
}

// SetZoom implements Widget.
func (r *Recorder) SetZoom(zoom int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Zoom = zoom
	r.record("zoom", fmt.Sprint(zoom))
}

// AddMarker implements Widget.
func (r *Recorder) AddMarker(spec MarkerSpec) Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Marker = &spec
	r.record("marker", spec.Position.String())
	return &recordedShape{r: r, remove: func() {
		if r.state.Marker == &spec {
			r.state.Marker = nil
		}
		r.record("remove-marker", "")
	}}
}

// AddPolygon implements Widget.
func (r *Recorder) AddPolygon(spec PolygonSpec) Overlay {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outline = &spec
	r.record("polygon", fmt.Sprintf("%d points", len(spec.Path())))
	return &recordedShape{r: r, remove: func() {
		if r.outline == &spec {
			r.outline = nil
		}
		r.record("remove-polygon", "")
	}}
}

// Ops returns the calls recorded so far.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// OpNames returns just the call names.
func (r *Recorder) OpNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.ops))
	for i, op := range r.ops {
		names[i] = op.Name
	}
	return names
}

// Reset forgets recorded calls but keeps the map state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}

// State returns the current map state, with the outline as GeoJSON.
func (r *Recorder) State() (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state
	if r.outline != nil && r.outline.Shape != nil {
		g, err := geojson.Encode(r.outline.Shape)
		if err != nil {
			return State{}, err
		}
		st.Outline = g
		st.Path = r.outline.Path()
	}
	return st, nil
}

type recordedShape struct {
	r       *Recorder
	remove  func()
	removed bool
}

func (s *recordedShape) Remove() {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if s.removed {
		return
	}
	s.removed = true
	s.remove()
}
