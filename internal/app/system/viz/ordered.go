// internal/app/system/viz/ordered.go
package viz

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry is one key/value pair of an Ordered map.
type Entry[V any] struct {
	Key   string
	Value V
}

// Ordered is a string-keyed map that keeps insertion order and serializes
// as a JSON object in that order. The zero value is ready to use.
type Ordered[V any] struct {
	entries []Entry[V]
}

// NewOrdered builds an Ordered from entries. Later duplicates replace
// earlier values in place.
func NewOrdered[V any](entries ...Entry[V]) Ordered[V] {
	var o Ordered[V]
	for _, e := range entries {
		o.Set(e.Key, e.Value)
	}
	return o
}

// Set adds key or replaces its value without moving it.
func (o *Ordered[V]) Set(key string, v V) {
	for i := range o.entries {
		if o.entries[i].Key == key {
			o.entries[i].Value = v
			return
		}
	}
	o.entries = append(o.entries, Entry[V]{Key: key, Value: v})
}

// Get returns the value for key.
func (o Ordered[V]) Get(key string) (V, bool) {
	for _, e := range o.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	var zero V
	return zero, false
}

// Has reports whether key is present.
func (o Ordered[V]) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Len returns the number of entries.
func (o Ordered[V]) Len() int { return len(o.entries) }

// Keys returns the keys in order.
func (o Ordered[V]) Keys() []string {
	keys := make([]string, len(o.entries))
	for i, e := range o.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the entries in order.
func (o Ordered[V]) Entries() []Entry[V] {
	out := make([]Entry[V], len(o.entries))
	copy(out, o.entries)
	return out
}

// MarshalJSON writes the entries as a JSON object in insertion order.
func (o Ordered[V]) MarshalJSON() ([]byte, error) {
	return marshalEntries(o.entries, func(v V) ([]byte, error) { return json.Marshal(v) })
}

// UnmarshalJSON reads a JSON object keeping its key order.
func (o *Ordered[V]) UnmarshalJSON(data []byte) error {
	o.entries = nil
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		var v V
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		o.Set(key, v)
		return nil
	})
}

func marshalEntries[V any](entries []Entry[V], enc func(V) ([]byte, error)) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := enc(e.Value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", e.Key, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeObject walks a JSON object in document order. A JSON null or an
// empty array is treated as an empty object, since loosely typed producers
// emit [] for empty maps.
func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("[]")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
