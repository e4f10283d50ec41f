// Package store reads the device's flat document store into an in-memory
// snapshot.
//
// One invocation reads the store exactly once; all planning and cleanup
// operate on that immutable snapshot.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/danieljhkim/remsync/internal/device"
	"github.com/danieljhkim/remsync/internal/transport"
)

// Snapshot is the full remote record set as read in this invocation.
type Snapshot struct {
	// Records holds one Record per identifier stem found in the store,
	// including stems that have payload files but no metadata.
	Records []*device.Record

	// Files is the raw directory listing the records were derived from.
	Files []string
}

// Reader enumerates the remote store over a Transport.
type Reader struct {
	transport transport.Transport
	docDir    string
}

// NewReader creates a Reader for the given remote document directory.
func NewReader(t transport.Transport, docDir string) *Reader {
	return &Reader{transport: t, docDir: docDir}
}

// Read lists the remote document directory and loads the metadata unit for
// every identifier that has one. Stems without a metadata file become
// records with nil metadata; stems whose metadata fails to parse do too.
// Both are classified as orphans by the tree builder.
func (r *Reader) Read(ctx context.Context) (*Snapshot, error) {
	out, err := r.transport.Run(ctx, fmt.Sprintf("ls -1 %s", r.docDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list document store: %w", err)
	}

	var files []string
	if out != "" {
		files = strings.Split(out, "\n")
	}

	byStem := make(map[string][]string)
	for _, f := range files {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		stem := device.Stem(f)
		byStem[stem] = append(byStem[stem], f)
	}

	stems := make([]string, 0, len(byStem))
	for stem := range byStem {
		stems = append(stems, stem)
	}
	sort.Strings(stems)

	snapshot := &Snapshot{Files: files}
	for _, stem := range stems {
		rec := &device.Record{ID: stem}
		for _, f := range byStem[stem] {
			if f == device.MetadataFile(stem) {
				continue
			}
			rec.Payloads = append(rec.Payloads, f)
		}

		if hasMetadata(byStem[stem], stem) {
			raw, err := r.transport.Run(ctx, fmt.Sprintf("cat %s/%s", r.docDir, device.MetadataFile(stem)))
			if err != nil {
				// Connectivity loss is global and fatal; a vanished
				// metadata file mid-read is not distinguishable from it
				// here, so surface the transport error.
				return nil, fmt.Errorf("failed to read metadata for %s: %w", stem, err)
			}
			if meta, err := device.ParseMetadata([]byte(raw)); err == nil {
				rec.Meta = meta
			}
		}

		snapshot.Records = append(snapshot.Records, rec)
	}

	return snapshot, nil
}

func hasMetadata(files []string, stem string) bool {
	for _, f := range files {
		if f == device.MetadataFile(stem) {
			return true
		}
	}
	return false
}
