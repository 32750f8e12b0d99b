package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryabkov82/biometric-sender/internal/ingest"
)

func sampleReport() RunReport {
	r := New(7, 3, []ingest.RowWarning{{RowNo: 4, Message: "empty driver identifier (Numero_Carta)"}})
	r = r.Add(Detail{
		Driver: 1, NumeroCarta: "A", Status: StatusSuccess,
		FilesCreated: []string{"fileFace", "fileSign"}, DriverCreated: true, CSVRows: 2,
	})
	r = r.Add(Detail{
		Driver: 2, NumeroCarta: "B", Status: StatusFailed,
		Error: "endpoint not found (HTTP 404)", CSVRows: 1,
	})
	r = r.Add(Detail{
		Driver: 3, NumeroCarta: "C", Status: StatusSkipped,
		FilesMissing: []string{"filesFinger1"}, Error: "No biometric data available", CSVRows: 1,
	})
	return r
}

func TestAddUpdatesCounters(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, 1, r.Success)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, 3, r.Processed())
	assert.Equal(t, 1, r.FilesNotFound())

	// nil slices are normalized so JSON always carries arrays
	assert.NotNil(t, r.Details[1].FilesCreated)
	assert.NotNil(t, r.Details[1].FilesMissing)
}

func TestAddDoesNotMutateReceiver(t *testing.T) {
	base := New(1, 2, nil)
	first := base.Add(Detail{Driver: 1, NumeroCarta: "A", Status: StatusSuccess})
	second := first.Add(Detail{Driver: 2, NumeroCarta: "B", Status: StatusFailed})
	other := first.Add(Detail{Driver: 2, NumeroCarta: "X", Status: StatusSkipped})

	assert.Empty(t, base.Details)
	assert.Len(t, first.Details, 1)
	assert.Equal(t, "B", second.Details[1].NumeroCarta)
	assert.Equal(t, "X", other.Details[1].NumeroCarta)
	assert.Zero(t, first.Failed)
}

func TestJSONRoundTrip(t *testing.T) {
	r := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, r))
	assert.Contains(t, buf.String(), `"total_csv_rows": 7`)
	assert.Contains(t, buf.String(), `"files_updated": []`)

	back, err := Decode(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(r, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONOmitsEmptyError(t *testing.T) {
	r := New(1, 1, nil).Add(Detail{Driver: 1, NumeroCarta: "A", Status: StatusSuccess})
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, r))
	assert.NotContains(t, buf.String(), `"error"`)
	assert.NotContains(t, buf.String(), `"warnings"`)
}

func TestSaveAndLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload_report.json")
	r := sampleReport()
	require.NoError(t, SaveJSON(path, r))

	back, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, r.Details, back.Details)

	_, err = LoadJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestRenderHTML(t *testing.T) {
	r := sampleReport()
	r = r.Add(Detail{Driver: 4, NumeroCarta: "<script>x</script>", Status: StatusFailed, Error: "a & b"})

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, r, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	page := buf.String()

	assert.Contains(t, page, "Generated 2026-01-02 03:04:05")
	assert.Contains(t, page, `data-status="success"`)
	assert.Contains(t, page, `data-filter="skipped"`)
	assert.Contains(t, page, "created: fileFace")
	assert.Contains(t, page, "missing: filesFinger1")
	assert.Contains(t, page, "New driver created")
	assert.Contains(t, page, "endpoint not found (HTTP 404)")
	assert.Contains(t, page, "Total CSV rows: 7")
	assert.Contains(t, page, "empty driver identifier")
	assert.Contains(t, page, "&lt;script&gt;x&lt;/script&gt;")
	assert.Contains(t, page, "a &amp; b")
	assert.NotContains(t, page, "<script>x</script>")
}

func TestHTMLPathFor(t *testing.T) {
	assert.Equal(t, "out/upload_report.html", HTMLPathFor("out/upload_report.json"))
	assert.Equal(t, "out/drivers_report.html", HTMLPathFor("out/drivers.json"))
	assert.Equal(t, "run_report.html", HTMLPathFor("run"))
}
