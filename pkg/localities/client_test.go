package localities

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu      sync.Mutex
	reports []ErrorReport
}

func (r *recordingReporter) Report(_ context.Context, rep ErrorReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []int
	labels   []string
}

func (o *recordingObserver) ObserveRequest(env, endpoint string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
	o.labels = append(o.labels, env+"/"+endpoint)
}

func TestQuery_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/localities/search/", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "dev-key", q.Get("key"))
		assert.Equal(t, "Pari", q.Get("input"))
		assert.Equal(t, "fr", q.Get("language"))
		assert.Equal(t, "advanced", q.Get("data"))
		assert.Equal(t, "0,0", q.Get("location"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"public_id":"p1","title":"Paris","description":"France","types":["locality"]}]}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	client := NewClient(WithObserver(obs), WithRateLimit(0))
	target := Target{Name: "dev", Key: "dev-key", BaseURL: srv.URL + "/localities/"}

	resp, err := client.Query(context.Background(), target, KindSearch, SearchRequest{Input: "Pari", Language: "fr"}, FetchOptions{})
	require.NoError(t, err)
	require.True(t, resp.OK())

	items, err := resp.Items(KindSearch)
	require.NoError(t, err)
	require.Len(t, items, 1)
	item, ok := items[0].(SearchItem)
	require.True(t, ok)
	assert.Equal(t, "Paris", item.Title)
	assert.Equal(t, "France", item.Description)
	assert.Equal(t, "p1", item.ID())

	assert.Equal(t, []int{http.StatusOK}, obs.statuses)
	assert.Equal(t, []string{"dev/search"}, obs.labels)
}

func TestQuery_AutocompleteDecodesLocalities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/autocomplete/", r.URL.Path)
		_, _ = w.Write([]byte(`{"localities":[{"public_id":"a","description":"Paris, France","types":["locality"],
			"matched_substrings":{"description":[{"offset":0,"length":4}]}}]}`))
	}))
	defer srv.Close()

	client := NewClient(WithRateLimit(0))
	resp, err := client.Query(context.Background(), Target{BaseURL: srv.URL + "/"}, KindAutocomplete, SearchRequest{Input: "Pari"}, FetchOptions{})
	require.NoError(t, err)

	items, err := resp.Items(KindAutocomplete)
	require.NoError(t, err)
	require.Len(t, items, 1)
	ac := items[0].(AutocompleteItem)
	require.NotNil(t, ac.MatchedSubstrings)
	assert.Equal(t, []Substring{{Offset: 0, Length: 4}}, ac.MatchedSubstrings.Description)
}

func TestFetch_NonOKStillReturnsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"details":{"input":["This field is required."]}}`))
	}))
	defer srv.Close()

	rep := &recordingReporter{}
	client := NewClient(WithReporter(rep), WithRateLimit(0))

	resp, err := client.Fetch(context.Background(), srv.URL, FetchOptions{ReportErrors: true})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.False(t, resp.OK())

	var apiErr *APIError
	require.True(t, errors.As(resp.Err(), &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	require.Len(t, rep.reports, 1)
	assert.True(t, rep.reports[0].Preformatted)
	assert.Equal(t, "{\n  \"input\": [\n    \"This field is required.\"\n  ]\n}", rep.reports[0].Message)
}

func TestFetch_NonOKWithoutDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden"}`))
	}))
	defer srv.Close()

	rep := &recordingReporter{}
	client := NewClient(WithReporter(rep), WithRateLimit(0))

	resp, err := client.Fetch(context.Background(), srv.URL, FetchOptions{ReportErrors: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Len(t, rep.reports, 1)
	assert.Equal(t, "Unknown API error.", rep.reports[0].Message)
	assert.False(t, rep.reports[0].Preformatted)
}

func TestFetch_NoReportWhenNotRequested(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	rep := &recordingReporter{}
	client := NewClient(WithReporter(rep), WithRateLimit(0))

	resp, err := client.Fetch(context.Background(), srv.URL, FetchOptions{})
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Empty(t, rep.reports)
}

func TestFetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	rep := &recordingReporter{}
	client := NewClient(WithReporter(rep), WithRateLimit(0))

	resp, err := client.Fetch(context.Background(), srv.URL, FetchOptions{ReportErrors: true})
	assert.Nil(t, resp)

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Contains(t, netErr.Message, "malformed response body")
	require.Len(t, rep.reports, 1)
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close()

	obs := &recordingObserver{}
	client := NewClient(WithObserver(obs), WithRateLimit(0))

	_, err := client.Fetch(context.Background(), url, FetchOptions{Env: "prod", Endpoint: "search"})
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, []int{0}, obs.statuses)
}

func TestFetch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient(WithRateLimit(0))
	_, err := client.Fetch(ctx, srv.URL, FetchOptions{})
	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/details/", r.URL.Path)
		assert.Equal(t, "pid", r.URL.Query().Get("public_id"))
		assert.Equal(t, "geometry", r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(`{"result":{"public_id":"pid","formatted_address":"Paris","types":["locality"],
			"geometry":{"location":{"lat":48.85,"lng":2.35},"accuracy":"APPROXIMATE",
			"viewport":{"northeast":{"lat":49,"lng":2.5},"southwest":{"lat":48.8,"lng":2.2}}}}}`))
	}))
	defer srv.Close()

	client := NewClient(WithRateLimit(0))
	resp, err := client.Details(context.Background(), Target{BaseURL: srv.URL + "/"},
		DetailsRequest{PublicID: "pid", Fields: []string{"geometry"}}, FetchOptions{})
	require.NoError(t, err)

	d, err := resp.Detail()
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "Paris", d.FormattedAddress)
	require.NotNil(t, d.Geometry)
	require.NotNil(t, d.Geometry.Viewport)
	assert.InDelta(t, 49.0, d.Geometry.Viewport.Northeast.Lat, 0.0001)
}

func TestDetails_RequiresPublicID(t *testing.T) {
	client := NewClient()
	_, err := client.Details(context.Background(), Target{}, DetailsRequest{}, FetchOptions{})
	assert.Error(t, err)
}

func TestReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/", r.URL.Path)
		assert.Equal(t, "43.3,5.4", r.URL.Query().Get("latlng"))
		assert.Empty(t, r.URL.Query().Get("address"))
		_, _ = w.Write([]byte(`{"results":[{"formatted_address":"Marseille"},{"formatted_address":"Other"}]}`))
	}))
	defer srv.Close()

	client := NewClient(WithRateLimit(0))
	resp, err := client.Reverse(context.Background(), Target{BaseURL: srv.URL + "/"},
		ReverseRequest{Location: LatLng{Lat: 43.3, Lng: 5.4}}, FetchOptions{})
	require.NoError(t, err)

	d, err := resp.FirstResult()
	require.NoError(t, err)
	assert.Equal(t, "Marseille", d.FormattedAddress)
}

func TestResponse_EmptyResults(t *testing.T) {
	resp := &Response{StatusCode: http.StatusOK}
	items, err := resp.Items(KindGeocode)
	require.NoError(t, err)
	assert.Empty(t, items)

	d, err := resp.Detail()
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = resp.Items(KindDetails)
	assert.Error(t, err)
}

func TestReportFor(t *testing.T) {
	r := ReportFor(&NetworkError{})
	assert.Equal(t, "A network error occurred.", r.Message)

	r = ReportFor(&APIError{StatusCode: 500, Details: []byte("null")})
	assert.Equal(t, "Unknown API error.", r.Message)

	r = ReportFor(nil)
	assert.Empty(t, r.Message)
}
