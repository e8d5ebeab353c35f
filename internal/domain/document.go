package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type DocumentKind uint8

const (
	DocNull DocumentKind = iota
	DocArray
	DocObject
)

// maxSafeInt is the largest integer a JSON consumer using doubles represents exactly.
const maxSafeInt = 1<<53 - 1

// Document is a semi-structured JSON value passed through without shape checks.
// Only arrays and objects are kept; anything else reads as null.
type Document struct {
	kind DocumentKind
	raw  json.RawMessage
}

var emptyArray = Document{kind: DocArray, raw: json.RawMessage("[]")}

func ParseDocument(b []byte) Document {
	t := bytes.TrimSpace(b)
	if len(t) == 0 || !json.Valid(t) {
		return Document{}
	}
	switch t[0] {
	case '[':
		return Document{kind: DocArray, raw: append(json.RawMessage(nil), t...)}
	case '{':
		return Document{kind: DocObject, raw: append(json.RawMessage(nil), t...)}
	}
	return Document{}
}

func (d Document) Kind() DocumentKind { return d.kind }
func (d Document) IsNull() bool       { return d.kind == DocNull }
func (d Document) Raw() []byte        { return d.raw }

// OrEmptyArray replaces a null document with [].
func (d Document) OrEmptyArray() Document {
	if d.IsNull() {
		return emptyArray
	}
	return d
}

// MarshalJSON emits the raw document, rewriting integers outside the
// double-safe range as decimal strings at any depth.
func (d Document) MarshalJSON() ([]byte, error) {
	if d.IsNull() {
		return []byte("null"), nil
	}
	dec := json.NewDecoder(bytes.NewReader(d.raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	out, changed := stringifyUnsafeInts(v)
	if !changed {
		return d.raw, nil
	}
	return json.Marshal(out)
}

func (d *Document) UnmarshalJSON(b []byte) error {
	*d = ParseDocument(b)
	return nil
}

func stringifyUnsafeInts(v any) (any, bool) {
	switch t := v.(type) {
	case json.Number:
		if unsafeInt(t) {
			return t.String(), true
		}
		return t, false
	case []any:
		changed := false
		for i, e := range t {
			n, c := stringifyUnsafeInts(e)
			t[i] = n
			changed = changed || c
		}
		return t, changed
	case map[string]any:
		changed := false
		for k, e := range t {
			n, c := stringifyUnsafeInts(e)
			t[k] = n
			changed = changed || c
		}
		return t, changed
	}
	return v, false
}

func unsafeInt(n json.Number) bool {
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		return false
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// beyond int64 entirely
		return true
	}
	return i > maxSafeInt || i < -maxSafeInt
}
