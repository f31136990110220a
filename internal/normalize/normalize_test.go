package normalize

import (
	"encoding/json"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/localities-compare/pkg/localities"
)

func TestNormalize_SearchExample(t *testing.T) {
	raw := []byte(`{"results":[{"title":"Paris","description":"France","types":["locality"]}]}`)
	var resp localities.Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	resp.StatusCode = 200

	items, err := resp.Items(localities.KindSearch)
	require.NoError(t, err)
	results := NormalizeAll(items, false)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "Paris", r.NameHTML())
	assert.Equal(t, "France", r.Subtitle)
	assert.Equal(t, "locality", r.TypeLabel)
	assert.Equal(t, ClassType, r.TypeClass)
	assert.Equal(t, "Paris, France", r.Label())
	assert.False(t, r.FromProduction)
}

func TestNormalize_Geocode(t *testing.T) {
	r := Normalize(localities.GeocodeItem{
		Common:           localities.Common{PublicID: "g1", Types: []string{"address", "route"}},
		FormattedAddress: "10 Rue de Rivoli, Paris",
	}, true)

	assert.Equal(t, "g1", r.ID)
	assert.Equal(t, "10 Rue de Rivoli, Paris", r.NameHTML())
	assert.Empty(t, r.Subtitle)
	assert.Equal(t, "address | route", r.TypeLabel)
	assert.True(t, r.FromProduction)
}

func TestNormalize_AutocompleteHighlight(t *testing.T) {
	r := Normalize(localities.AutocompleteItem{
		Common:      localities.Common{Types: []string{"locality"}, Categories: []string{"city"}},
		Description: "Paris, Île-de-France, France",
		MatchedSubstrings: &localities.MatchedSubstrings{
			Description: []localities.Substring{{Offset: 0, Length: 4}},
		},
	}, false)

	assert.Equal(t, "<b>Pari</b>s, Île-de-France, France", r.NameHTML())
	assert.Equal(t, "city", r.TypeLabel)
	assert.Equal(t, ClassCategory, r.TypeClass)
}

func TestNormalize_AutocompleteWithoutMatches(t *testing.T) {
	r := Normalize(localities.AutocompleteItem{Description: "Lyon & <Rhône>"}, false)
	assert.Equal(t, "Lyon &amp; &lt;Rhône&gt;", r.NameHTML())
}

func TestNormalize_PostalCodesEscaped(t *testing.T) {
	r := Normalize(localities.SearchItem{
		Common: localities.Common{PostalCodes: []string{"75001", "<75002>"}},
		Title:  "Paris",
	}, false)

	assert.Equal(t, "Paris (75001, &lt;75002&gt;)", r.NameHTML())
	assert.Equal(t, "Paris (75001, <75002>)", r.Label())
}

func TestHighlight_UTF16Offsets(t *testing.T) {
	// "🇫🇷" is four UTF-16 code units.
	s := "🇫🇷 Évry"
	spans := Highlight(s, []localities.Substring{{Offset: 5, Length: 4}})

	assert.Equal(t, []Span{{Text: "🇫🇷 "}, {Text: "Évry", Matched: true}}, spans)
}

func TestHighlight_ClampsAndClipsOverlaps(t *testing.T) {
	spans := Highlight("abcdef", []localities.Substring{
		{Offset: 4, Length: 10},
		{Offset: 1, Length: 2},
		{Offset: 2, Length: 3},
		{Offset: 40, Length: 1},
	})

	assert.Equal(t, []Span{
		{Text: "a"},
		{Text: "bc", Matched: true},
		{Text: "de", Matched: true},
		{Text: "f", Matched: true},
	}, spans)
	assert.Equal(t, "abcdef", SpansText(spans))
}

func TestHighlight_OrderIndependent(t *testing.T) {
	s := "Saint-Paul-lès-Dax, Landes, France"
	subs := []localities.Substring{
		{Offset: 0, Length: 5}, {Offset: 6, Length: 4}, {Offset: 20, Length: 6}, {Offset: 28, Length: 3},
		{Offset: 6, Length: 2},
	}
	want := SpansHTML(Highlight(s, subs))

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		shuffled := append([]localities.Substring(nil), subs...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, SpansHTML(Highlight(s, shuffled)))
	}
}

func TestNameHTML_NoUnescapedMarkup(t *testing.T) {
	inputs := []string{
		`<script>alert("x")</script>`,
		`Tom & Jerry's "place"`,
		`a<b>c</b>d`,
		`>>><<<&&&"""`,
	}
	rng := rand.New(rand.NewSource(7))

	for _, s := range inputs {
		n := len(s)
		subs := []localities.Substring{
			{Offset: rng.Intn(n), Length: rng.Intn(n)},
			{Offset: rng.Intn(n), Length: rng.Intn(n)},
		}
		items := []localities.Item{
			localities.SearchItem{Title: s, Description: s, Common: localities.Common{PostalCodes: []string{s}}},
			localities.GeocodeItem{FormattedAddress: s},
			localities.AutocompleteItem{Description: s, MatchedSubstrings: &localities.MatchedSubstrings{Description: subs}},
		}
		for _, it := range items {
			out := Normalize(it, false).NameHTML()
			stripped := strings.NewReplacer("<b>", "", "</b>", "").Replace(out)
			assert.NotContains(t, stripped, "<", "input %q", s)
			assert.NotContains(t, stripped, ">", "input %q", s)
			assert.NotContains(t, stripped, `"`, "input %q", s)
			assert.NotContains(t, strings.ReplaceAll(stripped, "&amp;", ""), "& ", "input %q", s)
		}
	}
}

func TestResult_MarshalJSON(t *testing.T) {
	r := Result{ID: "x", Name: []Span{{Text: "a<b"}}, TypeLabel: "locality", TypeClass: ClassType}
	b, err := json.Marshal(r)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "a&lt;b", got["name_html"])
	assert.Equal(t, "a<b", got["label"])
	assert.Equal(t, "type", got["type_class"])
}

func TestResult_MarshalJSONEscapesMarkupFields(t *testing.T) {
	r := Result{
		ID:        "x",
		Name:      []Span{{Text: "Paris"}},
		Subtitle:  `<img src=x onerror="alert(1)">`,
		TypeLabel: "a & <b>",
	}
	b, err := json.Marshal(r)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, `<img src=x onerror="alert(1)">`, got["subtitle"])
	assert.Equal(t, "&lt;img src=x onerror=&#34;alert(1)&#34;&gt;", got["subtitle_html"])
	assert.Equal(t, "a & <b>", got["type_label"])
	assert.Equal(t, "a &amp; &lt;b&gt;", got["type_label_html"])
}

func TestDetail_Fields(t *testing.T) {
	d := NewDetail(&localities.Detail{
		PublicID:         "pid",
		FormattedAddress: "Paris, France",
		Types:            []string{"postal_code", "locality"},
		Categories:       []string{"admin_level_8"},
		Geometry: &localities.Geometry{
			Location: localities.LatLng{Lat: 48.8566, Lng: 2.3522},
			Accuracy: "GEOMETRIC_CENTER",
		},
		AddressComponents: []localities.AddressComponent{
			{LongName: "France", Types: []string{"country", "political"}},
		},
	})

	rows := d.Fields()
	labels := make([]string, len(rows))
	for i, f := range rows {
		labels[i] = f.Label
	}
	assert.Equal(t, []string{"Public ID", "Formatted Address", "Type", "Category", "Location Type", "Coordinates", "Address Components"}, labels)

	assert.Equal(t, "postal code", rows[2].Value)
	assert.Equal(t, "admin level_8", rows[3].Value)
	assert.Equal(t, "geometric center", rows[4].Value)
	assert.Equal(t, []Field{{Label: "Latitude", Value: "48.8566"}, {Label: "Longitude", Value: "2.3522"}}, rows[5].Children)
	assert.Equal(t, []Field{{Label: "country", Value: "France"}}, rows[6].Children)
	assert.Equal(t, "postal_code", d.PrimaryType())
}

func TestDetail_FieldsWithoutGeometry(t *testing.T) {
	d := NewDetail(&localities.Detail{
		Title:             "Tom & Jerry",
		AddressComponents: []localities.AddressComponent{{LongName: "x", Types: []string{"route"}}},
	})

	rows := d.Fields()
	require.Len(t, rows, 1)
	assert.Equal(t, "Title", rows[0].Label)
	assert.Equal(t, "Tom &amp; Jerry", rows[0].HTML())
	assert.Nil(t, d.Location)
	assert.Empty(t, NewDetail(nil).Fields())
}
