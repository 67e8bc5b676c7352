package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by UnwrapRecord when a collection response does not
// contain the requested id.
var ErrNotFound = errors.New("record not found")

// maxEnvelopeDepth bounds how many string or body layers are peeled off.
const maxEnvelopeDepth = 4

// UnwrapCollection extracts the records of a collection response. The ads API
// answers with a bare array, a JSON string holding an array, an object whose
// "body" field holds either, or an object with an "items" array. A null or
// empty payload is an empty collection.
func UnwrapCollection(data []byte) ([]json.RawMessage, error) {
	return unwrapCollection(data, 0)
}

func unwrapCollection(data []byte, depth int) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		return []json.RawMessage{}, nil
	}
	if depth > maxEnvelopeDepth {
		return nil, &DecodeError{Index: -1, Reason: "envelope nested too deeply"}
	}

	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, &DecodeError{Index: -1, Reason: fmt.Sprintf("invalid array: %v", err)}
		}
		if items == nil {
			items = []json.RawMessage{}
		}
		return items, nil

	case '"':
		inner, err := unquote(data)
		if err != nil {
			return nil, err
		}
		return unwrapCollection(inner, depth+1)

	case '{':
		var env map[string]json.RawMessage
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, &DecodeError{Index: -1, Reason: fmt.Sprintf("invalid object: %v", err)}
		}
		if body, ok := env["body"]; ok {
			return unwrapCollection(body, depth+1)
		}
		if items, ok := env["items"]; ok {
			items = bytes.TrimSpace(items)
			if len(items) == 0 || items[0] != '[' {
				return nil, &DecodeError{Index: -1, Field: "items", Reason: "items is not an array"}
			}
			return unwrapCollection(items, depth+1)
		}
		return nil, &DecodeError{Index: -1, Reason: "object has neither body nor items"}
	}

	return nil, &DecodeError{Index: -1, Reason: "unexpected collection payload"}
}

// UnwrapRecord extracts a single record from a detail response. The record may
// itself be wrapped in a string or a "body" field; when the payload turns out
// to be a collection, the element whose id matches is returned.
func UnwrapRecord(data []byte, id string) (json.RawMessage, error) {
	return unwrapRecord(data, id, 0)
}

func unwrapRecord(data []byte, id string, depth int) (json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		return nil, fmt.Errorf("%w: empty response for id %s", ErrNotFound, id)
	}
	if depth > maxEnvelopeDepth {
		return nil, &DecodeError{Index: -1, Reason: "envelope nested too deeply"}
	}

	switch data[0] {
	case '"':
		inner, err := unquote(data)
		if err != nil {
			return nil, err
		}
		return unwrapRecord(inner, id, depth+1)

	case '[':
		items, err := unwrapCollection(data, depth)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			rec, err := parseRecord(item)
			if err != nil {
				continue
			}
			if got, ok := rec.id(listingIDKeys...); ok && got == id {
				return item, nil
			}
		}
		return nil, fmt.Errorf("%w: property with ID %s", ErrNotFound, id)

	case '{':
		var env map[string]json.RawMessage
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, &DecodeError{Index: -1, Reason: fmt.Sprintf("invalid object: %v", err)}
		}
		if body, ok := env["body"]; ok {
			body = bytes.TrimSpace(body)
			if len(body) > 0 && (body[0] == '"' || body[0] == '[' || body[0] == '{') {
				return unwrapRecord(body, id, depth+1)
			}
		}
		return data, nil
	}

	return nil, &DecodeError{Index: -1, Reason: "unexpected record payload"}
}

func unquote(data []byte) ([]byte, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &DecodeError{Index: -1, Reason: fmt.Sprintf("invalid string body: %v", err)}
	}
	return []byte(s), nil
}

func isNull(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}
