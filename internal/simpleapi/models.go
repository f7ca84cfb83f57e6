// Package simpleapi is a client for the PEP 503/691 "simple" package
// index protocol: per-project artifact listings, PEP 658 separate
// metadata fetch, and a central-directory range-request fallback for
// indexes that don't advertise separate metadata.
package simpleapi

import (
	"encoding/json"
	"fmt"
)

// ProjectPage is one project's listing from the simple index.
type ProjectPage struct {
	Name  string `json:"name"`
	Files []File `json:"files"`
}

// File is one artifact entry in a ProjectPage.
type File struct {
	Filename         string            `json:"filename"`
	URL              string            `json:"url"`
	Hashes           map[string]string `json:"hashes"`
	RequiresPython   string            `json:"requires-python"`
	Size             int64             `json:"size"`
	UploadTime       string            `json:"upload-time"`
	Yanked           Yanked            `json:"yanked"`
	DistInfoMetadata MetadataFlag      `json:"dist-info-metadata"`
}

// Yanked is the PEP 691 "yanked" field, which is either a bool or a
// string reason; we collapse both into one type so callers don't need to
// juggle a raw json.RawMessage.
type Yanked struct {
	Yanked bool
	Reason string
}

func (y *Yanked) UnmarshalJSON(data []byte) error {
	var asBool bool
	if err := json.Unmarshal(data, &asBool); err == nil {
		y.Yanked = asBool

		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		y.Yanked = true
		y.Reason = asString

		return nil
	}

	return fmt.Errorf("simpleapi: yanked field is neither bool nor string: %s", data)
}

// MarshalJSON writes the same wire shape back: the reason string when
// one is set, the bool otherwise.
func (y Yanked) MarshalJSON() ([]byte, error) {
	if y.Yanked && y.Reason != "" {
		return json.Marshal(y.Reason)
	}

	return json.Marshal(y.Yanked)
}

// MetadataFlag is the PEP 658 "dist-info-metadata" field: a bool, a hash
// map, or absent.
type MetadataFlag struct {
	Available bool
	Hashes    map[string]string
}

func (f *MetadataFlag) UnmarshalJSON(data []byte) error {
	var asBool bool
	if err := json.Unmarshal(data, &asBool); err == nil {
		f.Available = asBool

		return nil
	}

	var asMap map[string]string
	if err := json.Unmarshal(data, &asMap); err == nil {
		f.Available = true
		f.Hashes = asMap

		return nil
	}

	return fmt.Errorf("simpleapi: dist-info-metadata field has unexpected shape: %s", data)
}

// MarshalJSON writes the hash map when one is set, the bool otherwise.
func (f MetadataFlag) MarshalJSON() ([]byte, error) {
	if f.Available && len(f.Hashes) > 0 {
		return json.Marshal(f.Hashes)
	}

	return json.Marshal(f.Available)
}
