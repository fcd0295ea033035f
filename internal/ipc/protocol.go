package ipc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Request is sent from the client to the daemon. The daemon sees the end of
// the request only when the client half-closes its write side.
type Request struct {
	Package  string   `json:"package"`  // invoked component, e.g. "dojutsu-agent"
	Function string   `json:"function"` // daemon function, e.g. "run"
	Args     []string `json:"args"`     // positional, meaning defined by Function
}

// NewRequest builds a request. Args are copied so the built request is not
// affected by later changes to the caller's slice.
func NewRequest(pkg, function string, args []string) (*Request, error) {
	if pkg == "" {
		return nil, errors.New("request package is empty")
	}
	if function == "" {
		return nil, errors.New("request function is empty")
	}
	copied := make([]string, len(args))
	for i, arg := range args {
		if !utf8.ValidString(arg) {
			return nil, fmt.Errorf("request arg %d is not valid UTF-8", i)
		}
		copied[i] = arg
	}
	return &Request{Package: pkg, Function: function, Args: copied}, nil
}

// Encode returns the wire form of the request: a single JSON object with no
// trailing delimiter.
func (r *Request) Encode() ([]byte, error) {
	out := *r
	if out.Args == nil {
		out.Args = []string{}
	}
	return json.Marshal(&out)
}

// Result is the daemon's response. Every field is optional; the daemon omits
// what it has no data for. Error is authoritative: when it is non-empty the
// call failed no matter what else is set.
type Result struct {
	Byakugan   *string            `json:"byakugan,omitempty"`
	ModeSage   *string            `json:"mode_sage,omitempty"`
	Jougan     *string            `json:"jougan,omitempty"`
	Execution  *string            `json:"execution,omitempty"`
	SkillsUsed []string           `json:"skills_used,omitempty"`
	Timing     map[string]float64 `json:"timing,omitempty"`
	TotalTime  *float64           `json:"total_time,omitempty"`
	Error      *string            `json:"error,omitempty"`

	raw json.RawMessage
}

// StageNames lists the pipeline stages the runner reports, in pipeline order.
var StageNames = []string{"byakugan", "mode_sage", "jougan"}

// ParseResult decodes a response document. Anything other than a single
// JSON object is rejected, as is a known field holding the wrong type.
// Unknown fields are ignored.
func ParseResult(data []byte) (*Result, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response")
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("response is not a JSON object: %s", preview(trimmed))
	}

	var res Result
	if err := json.Unmarshal(trimmed, &res); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	res.raw = append(json.RawMessage(nil), trimmed...)
	return &res, nil
}

// Failed reports whether the daemon set a non-empty error.
func (r *Result) Failed() bool {
	return r != nil && r.Error != nil && *r.Error != ""
}

// Raw returns the response document exactly as the daemon sent it.
func (r *Result) Raw() json.RawMessage {
	if r == nil {
		return nil
	}
	return r.raw
}

// Stage returns a string field of the response by name. Stage names are
// daemon-defined, so this reads the raw document rather than the typed
// fields.
func (r *Result) Stage(name string) (string, bool) {
	if r == nil || len(r.raw) == 0 {
		return "", false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(r.raw, &fields); err != nil {
		return "", false
	}
	v, ok := fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

// Decode unmarshals the raw response into v, for functions whose payload is
// not the pipeline shape (skills_count, version, ...).
func (r *Result) Decode(v any) error {
	if r == nil || len(r.raw) == 0 {
		return errors.New("no response document")
	}
	return json.Unmarshal(r.raw, v)
}

func preview(data []byte) string {
	const max = 200
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
