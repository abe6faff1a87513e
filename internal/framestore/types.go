// Package framestore caches finished frames in an SQLite database keyed by a
// parameter fingerprint, so re-renders with unchanged parameters skip the
// noise evaluation.
package framestore

// Metadata describes the store. It is written to the metadata table on Open.
type Metadata struct {
	Name        string // Human-readable store name
	Description string
	Version     string // Writer version
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Version != "" {
		result["version"] = m.Version
	}

	return result
}

// FrameEntry represents a single frame waiting to be written.
type FrameEntry struct {
	Fingerprint string
	Index       int
	Data        []byte // raw RGBA (gzip-compressed before storage)
}

type frameKey struct {
	fingerprint string
	index       int
}
