package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildPDF writes a minimal but well-formed PDF with the given number of
// blank pages, including a correct xref table.
func buildPDF(t *testing.T, pages int) []byte {
	t.Helper()

	var buf bytes.Buffer
	var offsets []int
	buf.WriteString("%PDF-1.4\n")

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	writeObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]string, pages)
	for i := 0; i < pages; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	writeObj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), pages))

	for i := 0; i < pages; i++ {
		writeObj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n", i+3))
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xrefOffset)

	return buf.Bytes()
}

func TestPageCount(t *testing.T) {
	slicer := NewSlicer()

	count, err := slicer.PageCount(buildPDF(t, 10))
	require.NoError(t, err)
	require.Equal(t, 10, count)

	count, err = slicer.PageCount(buildPDF(t, 1))
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestPageCountRejectsGarbage(t *testing.T) {
	slicer := NewSlicer()

	_, err := slicer.PageCount([]byte("this is not a pdf"))
	require.ErrorIs(t, err, ErrCorruptDocument)

	_, err = slicer.PageCount(nil)
	require.ErrorIs(t, err, ErrCorruptDocument)
}

func TestSliceMiddleRange(t *testing.T) {
	slicer := NewSlicer()
	doc := buildPDF(t, 10)

	sliced, err := slicer.Slice(doc, 3, 5)
	require.NoError(t, err)

	count, err := slicer.PageCount(sliced)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestSliceFullRange(t *testing.T) {
	slicer := NewSlicer()
	doc := buildPDF(t, 4)

	sliced, err := slicer.Slice(doc, 1, 4)
	require.NoError(t, err)

	count, err := slicer.PageCount(sliced)
	require.NoError(t, err)
	require.Equal(t, 4, count)
}

func TestSliceSinglePage(t *testing.T) {
	slicer := NewSlicer()
	doc := buildPDF(t, 10)

	sliced, err := slicer.Slice(doc, 7, 7)
	require.NoError(t, err)

	count, err := slicer.PageCount(sliced)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestSliceRejectsOutOfRange(t *testing.T) {
	slicer := NewSlicer()
	doc := buildPDF(t, 10)

	cases := []struct {
		name     string
		from, to int
	}{
		{"from below one", 0, 5},
		{"inverted range", 5, 3},
		{"to past the end", 1, 11},
		{"unresolved open end", 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := slicer.Slice(doc, tc.from, tc.to)
			require.ErrorIs(t, err, ErrPageOutOfRange)
		})
	}
}

func TestSliceRejectsGarbage(t *testing.T) {
	slicer := NewSlicer()

	_, err := slicer.Slice([]byte("nope"), 1, 1)
	require.ErrorIs(t, err, ErrCorruptDocument)
}
