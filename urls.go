package fetchkit

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

// Params holds query parameters for a request. Slice and array values are
// serialized as repeated parameters (key=v1&key=v2) preserving element
// order; every other value is serialized once with fmt formatting. []byte
// counts as a scalar.
type Params map[string]any

// Values converts the parameters to url.Values with percent-encoding left
// to the url package.
func (p Params) Values() url.Values {
	if len(p) == 0 {
		return nil
	}
	q := make(url.Values, len(p))
	for key, value := range p {
		if b, ok := value.([]byte); ok {
			q.Add(key, string(b))
			continue
		}
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				q.Add(key, fmt.Sprint(rv.Index(i).Interface()))
			}
		default:
			q.Add(key, fmt.Sprint(value))
		}
	}
	return q
}

// parseBaseURL validates that raw is a non-empty absolute http(s) URL.
func parseBaseURL(raw string) (*url.URL, *ClientError) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &ClientError{
			Type:    ErrorTypeConfiguration,
			Message: "base URL must not be empty",
		}
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, &ClientError{
			Type:    ErrorTypeConfiguration,
			Message: fmt.Sprintf("invalid base URL %q", raw),
			Cause:   err,
		}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &ClientError{
			Type:    ErrorTypeConfiguration,
			Message: fmt.Sprintf("base URL %q must be absolute http(s)", raw),
		}
	}
	return u, nil
}

// buildURL resolves path against the base URL per standard URL resolution
// and merges params into the query string. Absolute paths pass through
// untouched apart from query merging.
func (c *Client) buildURL(path string, params Params) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(path))
	if err != nil {
		return nil, err
	}
	u := ref
	if !ref.IsAbs() {
		u = c.baseURL.ResolveReference(ref)
	}
	if q := params.Values(); q != nil {
		merged := u.Query()
		for key, values := range q {
			for _, v := range values {
				merged.Add(key, v)
			}
		}
		u.RawQuery = merged.Encode()
	}
	return u, nil
}
