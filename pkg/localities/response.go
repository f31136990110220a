package localities

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Response is a parsed API reply. Non-2xx replies are still returned as a Response;
// callers branch on OK.
type Response struct {
	StatusCode int             `json:"-"`
	Body       json.RawMessage `json:"-"`

	Localities []json.RawMessage `json:"localities"`
	Results    []json.RawMessage `json:"results"`
	Result     json.RawMessage   `json:"result"`
	Details    json.RawMessage   `json:"details"`
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns an *APIError for non-2xx replies and nil otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &APIError{StatusCode: r.StatusCode, Details: r.Details}
}

// Items decodes the result list for kind. Autocomplete lists live under "localities",
// search and geocode lists under "results".
func (r *Response) Items(kind Kind) ([]Item, error) {
	switch kind {
	case KindAutocomplete:
		return DecodeItems(kind, r.Localities)
	case KindSearch, KindGeocode:
		return DecodeItems(kind, r.Results)
	default:
		return nil, eris.Errorf("localities: %s responses carry no item list", kind)
	}
}

// Detail decodes the single "result" of a details reply. It returns nil when the
// reply has none.
func (r *Response) Detail() (*Detail, error) {
	if len(r.Result) == 0 || string(r.Result) == "null" {
		return nil, nil
	}
	var d Detail
	if err := json.Unmarshal(r.Result, &d); err != nil {
		return nil, eris.Wrap(err, "localities: decode details result")
	}
	return &d, nil
}

// FirstResult decodes results[0] of a geocode reply as a Detail, or nil when empty.
func (r *Response) FirstResult() (*Detail, error) {
	if len(r.Results) == 0 {
		return nil, nil
	}
	var d Detail
	if err := json.Unmarshal(r.Results[0], &d); err != nil {
		return nil, eris.Wrap(err, "localities: decode geocode result")
	}
	return &d, nil
}
