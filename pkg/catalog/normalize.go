// Package catalog holds the catalog data compiled into the binary (the
// fallback product list and the filter-control surface) and the decoder that
// normalizes every accepted catalog document shape.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HerbHall/byggekatalog/pkg/models"
)

var (
	// ErrNoProducts is returned when a document contains no product array.
	ErrNoProducts = errors.New("no product array in document")
	// ErrNoValidRecords reports a non-empty product array in which no record
	// decodes.
	ErrNoValidRecords = errors.New("no product record decodes")
)

// RecordError describes a product record that could not be decoded.
type RecordError struct {
	Index int
	Err   error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("product record %d: %v", e.Index, e.Err)
}

func (e RecordError) Unwrap() error { return e.Err }

// Decoded is a decoded catalog document. Skipped lists the records that
// were left out; the remaining products keep their document order.
type Decoded struct {
	Products []models.Product
	Skipped  []RecordError
}

// Decode decodes a catalog document record by record. Accepted shapes, in
// order: a bare array of products; an object with a "products" array; an
// object whose first array-valued field (in document order) holds the
// products. A record that does not decode is skipped rather than failing
// the document.
func Decode(data []byte) (*Decoded, error) {
	raw, err := ProductArray(data)
	if err != nil {
		return nil, err
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	out := &Decoded{Products: make([]models.Product, 0, len(records))}
	for i, rec := range records {
		var p models.Product
		if err := json.Unmarshal(rec, &p); err != nil {
			out.Skipped = append(out.Skipped, RecordError{Index: i, Err: err})
			continue
		}
		out.Products = append(out.Products, p)
	}
	return out, nil
}

// AllSkipped reports whether the array had records and none of them decoded.
func (d *Decoded) AllSkipped() bool {
	return len(d.Products) == 0 && len(d.Skipped) > 0
}

// Normalize is Decode without the skipped-record report.
func Normalize(data []byte) ([]models.Product, error) {
	d, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return d.Products, nil
}

// ProductArray locates the raw JSON array holding the products without
// decoding the individual records.
func ProductArray(data []byte) (json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoProducts
	}

	switch data[0] {
	case '[':
		if !json.Valid(data) {
			return nil, fmt.Errorf("decode catalog: invalid JSON array")
		}
		return json.RawMessage(data), nil
	case '{':
		return objectProductArray(data)
	default:
		return nil, fmt.Errorf("decode catalog: unexpected document start %q", data[0])
	}
}

func objectProductArray(data []byte) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	var firstArray json.RawMessage
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode catalog field %q: %w", key, err)
		}
		isArray := len(raw) > 0 && raw[0] == '['
		if key == "products" && isArray {
			return raw, nil
		}
		if isArray && firstArray == nil {
			firstArray = raw
		}
	}

	if firstArray == nil {
		return nil, ErrNoProducts
	}
	return firstArray, nil
}
