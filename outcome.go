package fetchkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

const (
	resultOK  = "ok"
	resultNok = "nok"
)

// Outcome is the settled result of a request. Every verb method returns one;
// failures (network, timeout, non-2xx status, cancellation) are carried as a
// nok outcome rather than an error return, so callers never need
// failure-specific unwrapping to get a result.
type Outcome struct {
	// Result is "ok" or "nok".
	Result string

	// Message is empty on success and a human-readable failure summary
	// otherwise.
	Message string

	// Status and Header describe the HTTP response when one was received.
	Status int
	Header http.Header

	// ContentType is the parsed media type of a successful response.
	ContentType string

	// Value holds the decoded body for application/json responses.
	Value any

	// Text holds the body for text/* responses.
	Text string

	// Bytes holds the raw body for binary responses, and the raw JSON for
	// JSON responses so Decode can re-decode into a caller struct.
	Bytes []byte

	failure *ClientError
}

// OK reports whether the request settled successfully.
func (o *Outcome) OK() bool {
	return o != nil && o.Result == resultOK
}

// Err returns the typed failure, or nil on success.
func (o *Outcome) Err() error {
	if o == nil || o.failure == nil {
		return nil
	}
	return o.failure
}

// Failure returns the underlying *ClientError, or nil on success.
func (o *Outcome) Failure() *ClientError {
	if o == nil {
		return nil
	}
	return o.failure
}

// Decode unmarshals a successful JSON body into dst.
func (o *Outcome) Decode(dst any) error {
	if !o.OK() {
		if err := o.Err(); err != nil {
			return err
		}
		return errors.New("fetchkit: cannot decode failed outcome")
	}
	if !isJSONMediaType(o.ContentType) {
		return fmt.Errorf("fetchkit: response content type %q is not JSON", o.ContentType)
	}
	return json.Unmarshal(o.Bytes, dst)
}

func failureOutcome(err *ClientError) *Outcome {
	return &Outcome{
		Result:  resultNok,
		Message: err.Message,
		Status:  err.StatusCode,
		Header:  err.Header,
		failure: err,
	}
}

// decodeBody builds a success outcome, selecting the decoding strategy from
// the response content type: JSON for application/json (and +json suffix
// types), Text for text/*, Bytes otherwise.
func decodeBody(resp *http.Response, raw []byte) (*Outcome, error) {
	mediaType := responseMediaType(resp)
	out := &Outcome{
		Result:      resultOK,
		Status:      resp.StatusCode,
		Header:      resp.Header,
		ContentType: mediaType,
		Bytes:       raw,
	}
	switch {
	case isJSONMediaType(mediaType):
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &out.Value); err != nil {
				return nil, fmt.Errorf("decode %s body: %w", mediaType, err)
			}
		}
	case strings.HasPrefix(mediaType, "text/"):
		out.Text = string(raw)
	}
	return out, nil
}

func responseMediaType(resp *http.Response) string {
	header := resp.Header.Get("Content-Type")
	if header == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(header))
	}
	return mediaType
}

func isJSONMediaType(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
