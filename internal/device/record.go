// Package device models the reMarkable's on-device document store.
//
// The device keeps every document and folder as a flat set of files under a
// single directory, keyed by an opaque identifier. Each identifier owns one
// .metadata JSON file describing the entry, plus zero or more payload files
// (the rendered document, annotation state, thumbnails) that share the
// identifier as their filename stem.
package device

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Entry type strings used by the device's metadata format.
const (
	KindFolder   = "CollectionType"
	KindDocument = "DocumentType"
)

// ParentTrash is the sentinel parent the device UI assigns when a document is
// moved to the trash. Entries under it are pending a cloud purge handshake
// that may never happen offline.
const ParentTrash = "trash"

// Metadata is the JSON metadata unit stored per identifier.
// Fields the tool never interprets are carried through unchanged so a
// replace does not strip device-written state.
type Metadata struct {
	VisibleName      string `json:"visibleName"`
	Parent           string `json:"parent"`
	LastModified     int64  `json:"lastModified"`
	LastOpenedPage   *int   `json:"lastOpenedPage,omitempty"`
	MetadataModified bool   `json:"metadatamodified"`
	Modified         bool   `json:"modified"`
	Pinned           bool   `json:"pinned"`
	Synced           bool   `json:"synced"`
	Type             string `json:"type"`
	Version          int    `json:"version"`
	Deleted          bool   `json:"deleted"`
}

// IsFolder reports whether the metadata describes a folder.
func (m *Metadata) IsFolder() bool {
	return m.Type == KindFolder
}

// SoftDeleted reports whether the entry is flagged for deletion, either
// through the deleted flag or by being parented under the trash sentinel.
func (m *Metadata) SoftDeleted() bool {
	return m.Deleted || m.Parent == ParentTrash
}

// Record is one unit of remote state: an identifier, its parsed metadata
// (nil if the metadata file was missing or unparseable), and the payload
// filenames sharing the identifier stem.
type Record struct {
	// ID is the opaque identifier, immutable once created.
	ID string

	// Meta is the parsed metadata, or nil if missing/unreadable.
	Meta *Metadata

	// Payloads is the list of remote filenames whose stem is ID,
	// excluding the metadata file itself.
	Payloads []string
}

// NewID generates a fresh document identifier.
func NewID() string {
	return uuid.NewString()
}

// ParseMetadata decodes a metadata JSON blob.
func ParseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &m, nil
}

// NewMetadata constructs the metadata unit for a freshly pushed entry.
// kind must be KindFolder or KindDocument; parent is the containing folder's
// identifier, or empty for the top level.
func NewMetadata(kind, visibleName, parent string, lastModified int64) *Metadata {
	m := &Metadata{
		VisibleName:  visibleName,
		Parent:       parent,
		LastModified: lastModified,
		Type:         kind,
	}
	// The device writes an explicit page position for documents only.
	if kind == KindDocument {
		page := 0
		m.LastOpenedPage = &page
	}
	return m
}

// EncodeMetadata serializes metadata in the indented form the device's own
// software writes.
func EncodeMetadata(m *Metadata) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return append(data, '\n'), nil
}

// Stem returns the identifier stem of a remote filename, i.e. the part
// before the first dot. Directory-shaped payloads (the page directory,
// "<id>.thumbnails") reduce to the same stem as their sibling files.
func Stem(filename string) string {
	if i := strings.IndexByte(filename, '.'); i >= 0 {
		return filename[:i]
	}
	return filename
}

// MetadataFile returns the metadata filename for an identifier.
func MetadataFile(id string) string {
	return id + ".metadata"
}

// ContentFile returns the content filename for an identifier.
func ContentFile(id string) string {
	return id + ".content"
}
