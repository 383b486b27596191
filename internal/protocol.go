package internal

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/elliotchance/orderedmap/v3"
	"golang.org/x/xerrors"
)

// ProtocolVersion is sent by Runner in every request.
const ProtocolVersion = "1.0"

var ErrMissingSecrets = errors.New(`missing "secrets" field`)

type Request struct {
	Version string   `json:"version,omitempty"`
	Secrets []string `json:"secrets"`
}

// DecodeRequest parses a single request object. A missing or null secrets
// field is an error. Keys are matched exactly, so "Secrets" does not count.
func DecodeRequest(data []byte) (*Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, xerrors.Errorf("failed to parse request: %w", err)
	}
	rawSecrets, ok := fields["secrets"]
	if !ok {
		return nil, ErrMissingSecrets
	}
	var secrets *[]string
	if err := json.Unmarshal(rawSecrets, &secrets); err != nil {
		return nil, xerrors.Errorf("failed to parse secrets: %w", err)
	}
	if secrets == nil {
		return nil, ErrMissingSecrets
	}

	req := &Request{Secrets: *secrets}
	// version is informational only; a non-string value is ignored.
	if rawVersion, ok := fields["version"]; ok {
		_ = json.Unmarshal(rawVersion, &req.Version)
	}
	return req, nil
}

// Record is the per-handle result on the wire.
type Record struct {
	Value string `json:"value"`
	Error string `json:"error,omitempty"`
}

func (r Record) Failed() bool { return r.Error != "" }

// Response maps handles to records, keeping the order in which handles were
// first set. The zero value is an empty response.
type Response struct {
	records *orderedmap.OrderedMap[string, Record]
}

func NewResponse() *Response {
	return &Response{records: orderedmap.NewOrderedMap[string, Record]()}
}

func (r *Response) init() {
	if r.records == nil {
		r.records = orderedmap.NewOrderedMap[string, Record]()
	}
}

// Set stores rec for handle. An existing handle keeps its position.
func (r *Response) Set(handle string, rec Record) {
	r.init()
	r.records.Set(handle, rec)
}

func (r *Response) Get(handle string) (Record, bool) {
	if r.records == nil {
		return Record{}, false
	}
	return r.records.Get(handle)
}

func (r *Response) Len() int {
	if r.records == nil {
		return 0
	}
	return r.records.Len()
}

// Handles returns the handles in insertion order.
func (r *Response) Handles() []string {
	if r.records == nil {
		return nil
	}
	handles := make([]string, 0, r.records.Len())
	for el := r.records.Front(); el != nil; el = el.Next() {
		handles = append(handles, el.Key)
	}
	return handles
}

func (r *Response) each(fn func(handle string, rec Record)) {
	if r.records == nil {
		return
	}
	for el := r.records.Front(); el != nil; el = el.Next() {
		fn(el.Key, el.Value)
	}
}

// AsObject returns the response as a generic JSON object, suitable as gojq
// input.
func (r *Response) AsObject() map[string]any {
	obj := make(map[string]any, r.Len())
	r.each(func(handle string, rec Record) {
		m := map[string]any{"value": rec.Value}
		if rec.Failed() {
			m["error"] = rec.Error
		}
		obj[handle] = m
	})
	return obj
}

func (r *Response) MarshalJSON() ([]byte, error) {
	return r.AppendJSON(nil, CompactStyle), nil
}

// UnmarshalJSON decodes a JSON object of records, keeping key order.
func (r *Response) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return xerrors.Errorf("failed to parse response: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return xerrors.Errorf("response is not a JSON object: %v", tok)
	}
	records := orderedmap.NewOrderedMap[string, Record]()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return xerrors.Errorf("failed to parse response: %w", err)
		}
		handle := tok.(string)
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return xerrors.Errorf("failed to parse record for %q: %w", handle, err)
		}
		records.Set(handle, rec)
	}
	if _, err := dec.Token(); err != nil {
		return xerrors.Errorf("failed to parse response: %w", err)
	}
	r.records = records
	return nil
}
