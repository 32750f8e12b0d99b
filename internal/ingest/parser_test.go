package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserWindows1252(t *testing.T) {
	// "Conceição" encoded in windows-1252
	content := []byte("Numero_Carta,Nome,fileFace\n1,Concei\xe7\xe3o,QUFB\n")
	path := filepath.Join(t.TempDir(), "latin.csv")
	require.NoError(t, os.WriteFile(path, content, 0644))

	p, err := NewParser(path, CSVOptions{Encoding: "windows-1252"})
	require.NoError(t, err)
	defer p.Close()

	row, err := p.ReadRow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Conceição", row[1])
	assert.Equal(t, int64(1), p.RowNo())

	_, err = p.ReadRow(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestParserStripsUTF8BOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.csv")
	require.NoError(t, os.WriteFile(path, []byte("\xef\xbb\xbfNumero_Carta,fileFace\n1,QUFB\n"), 0644))

	p, err := NewParser(path, CSVOptions{})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "Numero_Carta", p.Header()[0])
}

func TestParserRaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2\n1,2,3,4\n"), 0644))

	p, err := NewParser(path, CSVOptions{})
	require.NoError(t, err)
	defer p.Close()

	row, err := p.ReadRow(context.Background())
	require.NoError(t, err)
	assert.Len(t, row, 2)

	row, err = p.ReadRow(context.Background())
	require.NoError(t, err)
	assert.Len(t, row, 4)
}

func TestValidateCSVOptions(t *testing.T) {
	assert.NoError(t, ValidateCSVOptions(CSVOptions{}))
	assert.NoError(t, ValidateCSVOptions(CSVOptions{Encoding: "ISO-8859-1", Delimiter: ";"}))
	assert.Error(t, ValidateCSVOptions(CSVOptions{Encoding: "utf-16"}))
	assert.Error(t, ValidateCSVOptions(CSVOptions{Delimiter: "|"}))
}

func TestWarningLogNilIsNoop(t *testing.T) {
	var l *WarningLog
	assert.NoError(t, l.Write(RowWarning{RowNo: 1, Message: "x"}))
	assert.NoError(t, l.Close())
}

func TestTimingsString(t *testing.T) {
	var nilTimings *Timings
	nilTimings.ObserveHTTP(1)
	assert.Equal(t, "No timings recorded", nilTimings.String())

	timings := NewTimings()
	assert.Equal(t, "No timings recorded", timings.String())

	timings.ObserveEncode(4, 1024)
	timings.ObserveHTTP(10)
	s := timings.String()
	assert.Contains(t, s, "File encode: total=4ns count=1")
	assert.Contains(t, s, "Encoded bytes: 1024")
	assert.Contains(t, s, "HTTP: total=10ns count=1")
}
