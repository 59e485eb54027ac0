package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is a JSON encoded value. The store never inspects its shape.
type Document []byte

// Empty is the sentinel returned for documents that do not exist (or could not be read)
var Empty = Document("{}")

// NewDocument encodes v as a compact Document. Raw JSON values (Document,
// json.RawMessage, []byte) are validated instead of being marshalled again.
func NewDocument(v any) (Document, error) {
	var raw []byte
	switch val := v.(type) {
	case Document:
		raw = val
	case json.RawMessage:
		raw = val
	case []byte:
		raw = val
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, &Error{Code: RetCInvalidDocument, Msg: "failed to encode document", Err: err}
		}
		return b, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, &Error{Code: RetCInvalidDocument, Msg: "document is not valid json", Err: err}
	}
	return buf.Bytes(), nil
}

// Decode unmarshals the document into v
func (d Document) Decode(v any) error {
	if len(d) == 0 {
		return json.Unmarshal(Empty, v)
	}
	return json.Unmarshal(d, v)
}

// IsEmpty reports whether the document carries no data ({}, [], null or nothing)
func (d Document) IsEmpty() bool {
	trimmed := bytes.TrimSpace(d)
	if len(trimmed) == 0 {
		return true
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err == nil {
		trimmed = buf.Bytes()
	}
	switch string(trimmed) {
	case "{}", "[]", "null":
		return true
	}
	return false
}

// Size returns the length in bytes of the compact encoding
func (d Document) Size() int {
	return len(d.Compact())
}

// Compact returns the document without insignificant whitespace.
// Invalid documents are returned unchanged.
func (d Document) Compact() Document {
	var buf bytes.Buffer
	if err := json.Compact(&buf, d); err != nil {
		return d
	}
	return buf.Bytes()
}

// Indent returns the document in the human readable form used for the local mirror
func (d Document) Indent() Document {
	var buf bytes.Buffer
	if err := json.Indent(&buf, d, "", "  "); err != nil {
		return d
	}
	return buf.Bytes()
}

// Clone returns a copy that does not share memory with d
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	c := make(Document, len(d))
	copy(c, d)
	return c
}

// String implements fmt.Stringer
func (d Document) String() string {
	return string(d)
}

// Fields decodes an object document into its top level fields.
func (d Document) Fields() (map[string]Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(d, &fields); err != nil {
		return nil, fmt.Errorf("document is not an object: %w", err)
	}
	out := make(map[string]Document, len(fields))
	for k, v := range fields {
		out[k] = Document(v)
	}
	return out, nil
}
