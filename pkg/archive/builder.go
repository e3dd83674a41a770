// Package archive bundles a submission's uploaded documents into a single
// zip, renaming each entry to its canonical filename while preserving the
// original extension.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// DocumentKey identifies one of the required clearance documents.
type DocumentKey string

const (
	DocApprovalSheet DocumentKey = "approvalSheet"
	DocFullPaper     DocumentKey = "fullPaper"
	DocLongAbstract  DocumentKey = "longAbstract"
	DocJournalFormat DocumentKey = "journalFormat"
)

// RequiredDocuments lists every document the intake form collects, in the
// order entries appear inside the bundle.
var RequiredDocuments = []DocumentKey{
	DocApprovalSheet,
	DocFullPaper,
	DocLongAbstract,
	DocJournalFormat,
}

var canonicalNames = map[DocumentKey]string{
	DocApprovalSheet: "approval_sheet",
	DocFullPaper:     "full_paper",
	DocLongAbstract:  "long_abstract",
	DocJournalFormat: "journal_format",
}

// File is one uploaded payload: the original filename (for its extension)
// and a reader over its content.
type File struct {
	Name    string
	Content io.Reader
}

type entry struct {
	name string
	data []byte
}

type readResult struct {
	entry entry
	err   error
}

// EntryName returns the canonical in-archive filename for a document,
// carrying over the original upload's extension.
func EntryName(key DocumentKey, originalName string) string {
	base, ok := canonicalNames[key]
	if !ok {
		base = string(key)
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	return base + ext
}

// Build packages the present payloads into one in-memory zip. Payload reads
// run concurrently; any single failure aborts the whole build and no partial
// archive is returned. Callers enforce document presence before invoking.
func Build(ctx context.Context, docs map[DocumentKey]File) ([]byte, error) {
	results := make(chan readResult, len(docs))
	count := 0
	for key, file := range docs {
		if file.Content == nil {
			continue
		}
		count++
		go func(key DocumentKey, file File) {
			data, err := io.ReadAll(file.Content)
			if err != nil {
				results <- readResult{err: fmt.Errorf("read %s: %w", key, err)}
				return
			}
			results <- readResult{entry: entry{name: EntryName(key, file.Name), data: data}}
		}(key, file)
	}

	entries := make([]entry, 0, count)
	var firstErr error
	for i := 0; i < count; i++ {
		select {
		case res := <-results:
			if res.err != nil && firstErr == nil {
				firstErr = res.err
				continue
			}
			if res.err == nil {
				entries = append(entries, res.entry)
			}
		case <-ctx.Done():
			if firstErr == nil {
				firstErr = ctx.Err()
			}
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	// Channel receive order is scheduling-dependent; fix entry order so the
	// produced bundle is deterministic.
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("create zip entry %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("write zip entry %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize zip: %w", err)
	}
	return buf.Bytes(), nil
}
