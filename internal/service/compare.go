package service

import (
	"bytes"
	"encoding/json"

	"github.com/google/go-cmp/cmp"

	"shadow-proxy-go/internal/config"
)

// Comparator decides whether a shadow body matches the primary's and renders
// a human-readable diff when it does not.
type Comparator interface {
	Equal(primary, shadow []byte) bool
	Diff(primary, shadow []byte) string
}

// NewComparator returns the comparator selected by compare.mode.
func NewComparator(cfg *config.Config) Comparator {
	if cfg.Compare.Mode == config.CompareJSON {
		return JSONComparator{}
	}
	return BytesComparator{}
}

// BytesComparator requires byte-identical bodies.
type BytesComparator struct{}

func (BytesComparator) Equal(primary, shadow []byte) bool {
	return bytes.Equal(primary, shadow)
}

func (BytesComparator) Diff(primary, shadow []byte) string {
	return cmp.Diff(string(primary), string(shadow))
}

// JSONComparator compares decoded JSON values, so key order and whitespace
// do not count as differences. Bodies that are not both valid JSON are
// compared byte for byte.
type JSONComparator struct{}

func (JSONComparator) Equal(primary, shadow []byte) bool {
	a, b, ok := decodeBoth(primary, shadow)
	if !ok {
		return bytes.Equal(primary, shadow)
	}
	return cmp.Equal(a, b)
}

func (JSONComparator) Diff(primary, shadow []byte) string {
	a, b, ok := decodeBoth(primary, shadow)
	if !ok {
		return BytesComparator{}.Diff(primary, shadow)
	}
	return cmp.Diff(a, b)
}

func decodeBoth(primary, shadow []byte) (any, any, bool) {
	var a, b any
	if err := json.Unmarshal(primary, &a); err != nil {
		return nil, nil, false
	}
	if err := json.Unmarshal(shadow, &b); err != nil {
		return nil, nil, false
	}
	return a, b, true
}
