package model

import (
	"encoding/json"
	"strings"
)

// LegacyPhotoKind tags the detected shape of an order's legacy photo field.
type LegacyPhotoKind int

const (
	// LegacyPhotoEmpty - field absent or blank.
	LegacyPhotoEmpty LegacyPhotoKind = iota
	// LegacyPhotoSingleURL - a bare URL, or a JSON-encoded single string.
	LegacyPhotoSingleURL
	// LegacyPhotoURLList - a JSON array; only non-empty string elements count.
	LegacyPhotoURLList
	// LegacyPhotoUnparseable - looked like JSON but did not parse. The raw
	// value is kept and treated as one literal URL.
	LegacyPhotoUnparseable
)

// LegacyPhotoField is the tagged-variant view of orders.photo_url. The field
// has accumulated three encodings over the schema generations, so reads sniff
// the shape instead of trusting it. Parsing never fails: malformed input
// degrades to the Unparseable variant.
type LegacyPhotoField struct {
	Kind LegacyPhotoKind
	Raw  string
	urls []string
}

// ParseLegacyPhotoField normalizes a raw legacy photo value. A nil or blank
// value is Empty. Values with a JSON-looking prefix are parsed: arrays keep
// their non-empty string elements, a quoted string becomes one URL, any other
// valid JSON yields an empty list, and a parse error falls back to treating
// the whole raw value as a single literal URL. Values without a JSON prefix
// are a single literal URL.
func ParseLegacyPhotoField(raw *string) LegacyPhotoField {
	if raw == nil {
		return LegacyPhotoField{Kind: LegacyPhotoEmpty}
	}
	value := *raw
	if strings.TrimSpace(value) == "" {
		return LegacyPhotoField{Kind: LegacyPhotoEmpty, Raw: value}
	}

	if !strings.HasPrefix(value, "[") && !strings.HasPrefix(value, "{") {
		return LegacyPhotoField{Kind: LegacyPhotoSingleURL, Raw: value, urls: []string{value}}
	}

	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		return LegacyPhotoField{Kind: LegacyPhotoUnparseable, Raw: value, urls: []string{value}}
	}

	switch v := parsed.(type) {
	case []any:
		urls := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && len(s) > 0 {
				urls = append(urls, s)
			}
		}
		return LegacyPhotoField{Kind: LegacyPhotoURLList, Raw: value, urls: urls}
	case string:
		return LegacyPhotoField{Kind: LegacyPhotoSingleURL, Raw: value, urls: []string{v}}
	default:
		// Valid JSON of some other shape carries no usable evidence.
		return LegacyPhotoField{Kind: LegacyPhotoURLList, Raw: value}
	}
}

// URLs returns the flat ordered URL list for the variant. Never nil-panics,
// never errors; Empty yields nothing, Unparseable yields the raw value.
func (f LegacyPhotoField) URLs() []string {
	return f.urls
}

// ParseFailurePhotos decodes the delivery_failures.photos JSON array. Any
// parse failure or non-array shape yields an empty list.
func ParseFailurePhotos(photosJSON string) []string {
	var parsed []any
	if err := json.Unmarshal([]byte(photosJSON), &parsed); err != nil {
		return nil
	}
	urls := make([]string, 0, len(parsed))
	for _, item := range parsed {
		if s, ok := item.(string); ok && len(s) > 0 {
			urls = append(urls, s)
		}
	}
	return urls
}
