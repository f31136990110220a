package main

import (
	"html/template"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/sells-group/localities-compare/internal/compare"
	"github.com/sells-group/localities-compare/internal/environment"
	"github.com/sells-group/localities-compare/internal/mapview"
	"github.com/sells-group/localities-compare/internal/normalize"
	"github.com/sells-group/localities-compare/pkg/localities"
)

type pageData struct {
	Query      url.Values
	Input      string
	Env        string
	Kind       string
	Envs       []string
	Kinds      []localities.Kind
	PRID       string
	Comparison *compare.Comparison
	Detail     *normalize.Detail
	DetailEnv  string
	Error      string
	Map        mapview.State
	MapOptions mapview.Options
	MapsAPIKey string
	MapsSDKURL string
}

// sidePage is one result column. Only target results link to their details;
// production results are shown for reference.
type sidePage struct {
	Side       compare.Side
	Query      url.Values
	Production bool
}

var pageFuncs = template.FuncMap{
	// Result names are escaped span by span before the <b> tags go in.
	"nameHTML": func(r normalize.Result) template.HTML {
		return template.HTML(r.NameHTML()) //nolint:gosec
	},
	"sidePage": func(side compare.Side, q url.Values, production bool) sidePage {
		return sidePage{Side: side, Query: q, Production: production}
	},
	"detailLink": func(q url.Values, id string) string {
		out := url.Values{}
		for k, v := range q {
			out[k] = v
		}
		out.Del("side")
		out.Set("public_id", id)
		return "/?" + out.Encode()
	},
}

var pageTmpl = template.Must(template.New("page").Funcs(pageFuncs).Parse(pageHTML))

// handlePage renders the comparison form, both result lists and, when a result
// was picked, its detail panel and map.
func (s *server) handlePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := pageData{
		Query:      q,
		Input:      q.Get("input"),
		Env:        valueOr(q.Get("env"), environment.Dev),
		Kind:       valueOr(q.Get("kind"), localities.KindAutocomplete.String()),
		Envs:       s.env.Registry.Names(),
		Kinds:      []localities.Kind{localities.KindAutocomplete, localities.KindSearch, localities.KindGeocode},
		PRID:       s.env.Registry.PRID(),
		MapOptions: s.mapCfg.Options(),
		MapsAPIKey: s.mapCfg.MapsAPIKey,
		MapsSDKURL: s.mapCfg.MapsSDKURL,
	}

	recorder := mapview.NewRecorder(data.MapOptions)
	adapter := mapview.NewAdapter(recorder, data.MapOptions)

	if data.Input != "" {
		if err := s.pageSearch(r, &data); err != nil {
			data.Error = err.Error()
		}
	}

	if id := q.Get("public_id"); id != "" {
		req := localities.DetailsRequest{PublicID: id, Language: valueOr(q.Get("lang"), s.defaults.Language), Fields: s.defaults.Fields}
		env, d, err := s.lookupDetails(r.Context(), data.Env, q.Get("side"), req)
		switch {
		case err != nil:
			data.Error = err.Error()
		case d != nil:
			data.Detail, data.DetailEnv = d, env
			adapter.Show(*d)
		}
	}

	st, err := recorder.State()
	if err != nil {
		zap.L().Warn("serve: map state", zap.Error(err))
	}
	data.Map = st

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, data); err != nil {
		zap.L().Error("serve: render page", zap.Error(err))
	}
}

func (s *server) pageSearch(r *http.Request, data *pageData) error {
	kind, err := localities.ParseSearchKind(data.Kind)
	if err != nil {
		return err
	}
	req, err := s.searchRequest(r)
	if err != nil {
		return err
	}
	cmp, err := s.env.Orchestrator.CompareSearch(r.Context(), data.Env, kind, req)
	if err != nil {
		return err
	}
	if !cmp.Empty() || cmp.Target.Err != nil || cmp.Production.Err != nil {
		data.Comparison = &cmp
	}
	return nil
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Localities compare</title>
<style>
body { font-family: sans-serif; margin: 1rem; }
.columns { display: flex; gap: 2rem; }
.column { flex: 1; }
.column ul { list-style: none; padding: 0; }
.column li { padding: .3rem 0; border-bottom: 1px solid #eee; }
.type { color: #666; font-size: .8em; }
.type.category { color: #1565c0; }
.subtitle { color: #444; font-size: .9em; }
.disabled { opacity: .6; }
.error { color: #b71c1c; white-space: pre; }
#map { height: 400px; margin-top: 1rem; }
table.detail td { padding: .1rem .6rem; vertical-align: top; }
</style>
</head>
<body>
<form method="get" action="/">
  <input type="text" name="input" value="{{.Input}}" placeholder="Search a locality" autofocus>
  <select name="env">{{range .Envs}}<option value="{{.}}"{{if eq . $.Env}} selected{{end}}>{{.}}</option>{{end}}</select>
  <select name="kind">{{range .Kinds}}<option value="{{.}}"{{if eq .String $.Kind}} selected{{end}}>{{.}}</option>{{end}}</select>
  <label><input type="checkbox" name="extended" value="true"{{if eq (.Query.Get "extended") "true"}} checked{{end}}> extended</label>
  <label><input type="checkbox" name="bias" value="true"{{if eq (.Query.Get "bias") "true"}} checked{{end}}> bias</label>
  <button type="submit">Compare</button>
  {{if .PRID}}<span>PR {{.PRID}}</span>{{end}}
</form>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{with .Comparison}}
<div class="columns">
  {{template "side" (sidePage .Target $.Query false)}}
  {{template "side" (sidePage .Production $.Query true)}}
</div>
{{end}}
{{with .Detail}}
<h2>{{$.DetailEnv}}</h2>
<table class="detail">
{{range .Fields}}<tr><td>{{.Label}}</td><td>{{.Value}}{{if .Children}}<table>{{range .Children}}<tr><td>{{.Label}}</td><td>{{.Value}}</td></tr>{{end}}</table>{{end}}</td></tr>
{{end}}</table>
{{end}}
<div id="map"></div>
{{if .MapsAPIKey}}
<script src="{{.MapsSDKURL}}?key={{.MapsAPIKey}}"></script>
<script>
const options = {{.MapOptions}};
const state = {{.Map}};
const map = new woosmap.map.Map(document.getElementById("map"), {
  center: state.center, zoom: state.zoom,
  gestureHandling: options.gestureHandling, disableDefaultUI: options.disableDefaultUI,
  styles: options.styles,
});
if (state.outline) {
  new woosmap.map.Polygon(Object.assign({paths: state.path, map: map}, options.polygon));
  const bounds = new woosmap.map.LatLngBounds();
  state.path.forEach(p => bounds.extend(p));
  map.fitBounds(bounds);
}
if (state.marker) {
  new woosmap.map.Marker({position: state.marker.position, icon: {url: state.marker.icon.url,
    scaledSize: {height: state.marker.icon.height, width: state.marker.icon.width}}, map: map});
}
map.addListener("click", e => {
  const q = new URLSearchParams({lat: e.latlng.lat, lng: e.latlng.lng, env: {{.Env}}});
  fetch("/api/reverse?" + q).then(r => r.json()).then(d => {
    if (d.detail) { alert(d.detail.formatted_address || d.detail.name || ""); }
  });
});
</script>
{{end}}
</body>
</html>
{{define "side"}}
{{if or .Side.Results .Side.Err}}
<div class="column">
  <h2>{{.Side.Env}}</h2>
  {{if .Side.Err}}<p class="error">{{.Side.Error}}</p>{{end}}
  <ul>
  {{range .Side.Results}}
    {{if $.Production}}<li class="disabled">{{nameHTML .}}{{else}}<li><a href="{{detailLink $.Query .ID}}">{{nameHTML .}}</a>{{end}}
      {{if .Subtitle}}<div class="subtitle">{{.Subtitle}}</div>{{end}}
      <span class="type {{.TypeClass}}">{{.TypeLabel}}</span></li>
  {{end}}
  </ul>
</div>
{{end}}
{{end}}
`
