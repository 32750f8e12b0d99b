package ingest

import (
	"strings"
)

// Is_Active values that exclude a row. Anything else, including blank and
// unrecognized values such as "2", keeps the row.
var inactiveValues = map[string]bool{
	"0":     true,
	"false": true,
	"no":    true,
	"n":     true,
}

// Normalizer converts CSV records into canonical entries for a detected layout
type Normalizer struct {
	layout Layout
}

// NewNormalizer creates a normalizer for the given layout
func NewNormalizer(layout Layout) *Normalizer {
	return &Normalizer{layout: layout}
}

// Layout returns the layout the normalizer was built for
func (n *Normalizer) Layout() Layout {
	return n.layout
}

// Normalize converts one CSV record. A *RowError means the row is dropped;
// the caller records it as a warning and continues.
func (n *Normalizer) Normalize(rowNo int64, row []string) (NormalizedRow, error) {
	driverID := cell(row, n.layout.DriverCol)
	if driverID == "" {
		return NormalizedRow{}, &RowError{RowNo: rowNo, Message: "empty driver identifier (" + n.layout.DriverName + ")"}
	}

	switch n.layout.Schema {
	case SchemaPathBased:
		return n.normalizePathRow(rowNo, driverID, row)
	case SchemaInline:
		return n.normalizeInlineRow(rowNo, driverID, row), nil
	default:
		return NormalizedRow{}, &RowError{RowNo: rowNo, DriverID: driverID, Message: "unknown schema"}
	}
}

func (n *Normalizer) normalizePathRow(rowNo int64, driverID string, row []string) (NormalizedRow, error) {
	if active := strings.ToLower(cell(row, n.layout.ActiveCol)); inactiveValues[active] {
		return NormalizedRow{}, &RowError{RowNo: rowNo, DriverID: driverID, Message: "inactive record (Is_Active=" + cell(row, n.layout.ActiveCol) + ")"}
	}

	code := cell(row, n.layout.TypeCol)
	slot, ok := SlotFromTypeCode(code)
	if !ok {
		return NormalizedRow{}, &RowError{RowNo: rowNo, DriverID: driverID, Message: "unrecognized Tipo_Biometria " + quote(code)}
	}

	path := cell(row, n.layout.PathCol)
	if path == "" {
		msg := "blank Caminho_Completo for " + slot.Field()
		if name := cell(row, n.layout.FileNameCol); name != "" {
			msg += " (" + name + ")"
		}
		return NormalizedRow{}, &RowError{RowNo: rowNo, DriverID: driverID, Message: msg}
	}

	return NormalizedRow{
		DriverID: driverID,
		Entries: []Entry{{
			DriverID: driverID,
			Slot:     slot,
			Path:     path,
			RowNo:    rowNo,
		}},
	}, nil
}

// Inline rows always register the driver, even with no usable columns,
// so the driver shows up as skipped in the report.
func (n *Normalizer) normalizeInlineRow(rowNo int64, driverID string, row []string) NormalizedRow {
	out := NormalizedRow{DriverID: driverID}
	for _, slot := range AllSlots {
		idx, ok := n.layout.InlineCols[slot]
		if !ok {
			continue
		}
		value := cell(row, idx)
		if value == "" {
			continue
		}
		out.Entries = append(out.Entries, Entry{
			DriverID: driverID,
			Slot:     slot,
			Inline:   value,
			RowNo:    rowNo,
		})
	}
	return out
}

// cell returns the trimmed value at idx, or "" when the column is absent
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func quote(s string) string {
	if s == "" {
		return "(blank)"
	}
	return "'" + s + "'"
}

// isEmptyRow reports whether every cell is blank
func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
