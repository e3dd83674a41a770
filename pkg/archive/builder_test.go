package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("conversion failed")
}

func entryNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func TestBuildCanonicalEntries(t *testing.T) {
	docs := map[DocumentKey]File{
		DocApprovalSheet: {Name: "scan-final.PDF", Content: strings.NewReader("approval")},
		DocFullPaper:     {Name: "thesis v3.docx", Content: strings.NewReader("paper")},
		DocLongAbstract:  {Name: "abstract.docx", Content: strings.NewReader("abstract")},
		DocJournalFormat: {Name: "journal.docx", Content: strings.NewReader("journal")},
	}

	data, err := Build(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"approval_sheet.pdf",
		"full_paper.docx",
		"journal_format.docx",
		"long_abstract.docx",
	}, entryNames(t, data))
}

func TestBuildOmitsAbsentDocuments(t *testing.T) {
	docs := map[DocumentKey]File{
		DocApprovalSheet: {Name: "a.pdf", Content: strings.NewReader("approval")},
		DocFullPaper:     {Name: "p.docx"},
	}

	data, err := Build(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, []string{"approval_sheet.pdf"}, entryNames(t, data))
}

func TestBuildAllOrNothing(t *testing.T) {
	docs := map[DocumentKey]File{
		DocApprovalSheet: {Name: "a.pdf", Content: strings.NewReader("approval")},
		DocFullPaper:     {Name: "p.docx", Content: failingReader{}},
		DocLongAbstract:  {Name: "l.docx", Content: strings.NewReader("abstract")},
	}

	data, err := Build(context.Background(), docs)
	require.Error(t, err)
	assert.Nil(t, data)
}

func TestBuildPreservesContent(t *testing.T) {
	docs := map[DocumentKey]File{
		DocFullPaper: {Name: "paper.docx", Content: strings.NewReader("the full paper body")},
	}

	data, err := Build(context.Background(), docs)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "the full paper body", string(body))
}

func TestEntryNameKeepsExtension(t *testing.T) {
	assert.Equal(t, "approval_sheet.pdf", EntryName(DocApprovalSheet, "Signed Copy.PDF"))
	assert.Equal(t, "full_paper", EntryName(DocFullPaper, "noextension"))
}

func TestNamers(t *testing.T) {
	assert.Equal(t, "SPUP_Clearance_2025_ABC123.zip", IDNamer("SPUP_Clearance_2025_ABC123", "Juan Dela Cruz"))
	assert.Equal(t, "Juan_Dela_Cruz_SPUP_Clearance_2025_ABC123.zip", NameIDNamer("SPUP_Clearance_2025_ABC123", "Juan Dela Cruz"))
	assert.Equal(t, "SPUP_Clearance_2025_ABC123.zip", NameIDNamer("SPUP_Clearance_2025_ABC123", "!!!"))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Maria_Clara", SanitizeName("  Maria   Clara  "))
	assert.Equal(t, "Jos_P_Rizal", SanitizeName("José P. Rizal"))
	assert.Equal(t, "", SanitizeName("@#$%"))
}
