package ingest

import (
	"fmt"
	"strings"
)

// Schema is the detected CSV layout variant
type Schema int

const (
	SchemaUnknown Schema = iota
	// SchemaPathBased: one row per file reference (Caminho_Completo + Tipo_Biometria)
	SchemaPathBased
	// SchemaInline: one row per driver with base64 columns
	SchemaInline
)

func (s Schema) String() string {
	switch s {
	case SchemaPathBased:
		return "path-based"
	case SchemaInline:
		return "inline"
	default:
		return "unknown"
	}
}

// Header names, lower case
const (
	colTypeCode = "tipo_biometria"
	colPath     = "caminho_completo"
	colActive   = "is_active"
	colFileName = "nome_ficheiro"
)

// Driver identifier aliases in priority order
var driverIDAliases = []string{"numero_carta", "license_number", "license", "carta", "id"}

// Inline column aliases per slot, first match wins
var inlineAliases = map[Slot][]string{
	SlotFace:         {"fileface", "face_img", "face", "faceimage"},
	SlotSignature:    {"filesign", "signature", "sign", "signimage"},
	SlotFingerprint1: {"filesfinger1", "fingerprint1", "finger1", "fp1"},
	SlotFingerprint2: {"filesfinger2", "fingerprint2", "finger2", "fp2"},
}

// SchemaError reports a header that matches neither accepted layout
type SchemaError struct {
	Header []string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unrecognized CSV schema: %s (header: %s)", e.Reason, strings.Join(e.Header, ","))
}

// Layout holds the detected schema and resolved column indexes.
// Missing optional columns have index -1.
type Layout struct {
	Schema      Schema
	DriverCol   int
	DriverName  string // header name used for the driver identifier
	PathCol     int
	TypeCol     int
	ActiveCol   int
	FileNameCol int
	InlineCols  map[Slot]int
}

// NormalizeColumnName trims and lower-cases a header cell
func NormalizeColumnName(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}

// DetectSchema inspects the header once and picks one of the two layouts.
// It never guesses: anything else is a *SchemaError.
func DetectSchema(header []string) (Layout, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		n := NormalizeColumnName(name)
		if n == "" {
			continue
		}
		if _, dup := index[n]; !dup {
			index[n] = i
		}
	}
	lookup := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		return -1
	}

	layout := Layout{
		Schema:      SchemaUnknown,
		DriverCol:   -1,
		PathCol:     lookup(colPath),
		TypeCol:     lookup(colTypeCode),
		ActiveCol:   lookup(colActive),
		FileNameCol: lookup(colFileName),
		InlineCols:  make(map[Slot]int),
	}
	for _, alias := range driverIDAliases {
		if i := lookup(alias); i >= 0 {
			layout.DriverCol = i
			layout.DriverName = strings.TrimSpace(header[i])
			break
		}
	}
	for _, slot := range AllSlots {
		for _, alias := range inlineAliases[slot] {
			if i := lookup(alias); i >= 0 {
				layout.InlineCols[slot] = i
				break
			}
		}
	}

	fail := func(reason string) (Layout, error) {
		return Layout{Schema: SchemaUnknown}, &SchemaError{Header: header, Reason: reason}
	}

	if layout.DriverCol < 0 {
		return fail("no driver identifier column (" + strings.Join(driverIDAliases, ", ") + ")")
	}

	if layout.TypeCol >= 0 {
		if len(layout.InlineCols) > 0 {
			return fail("ambiguous schema: both " + colTypeCode + " and inline biometric columns present")
		}
		if layout.PathCol < 0 {
			return fail(colTypeCode + " present but " + colPath + " column missing")
		}
		layout.Schema = SchemaPathBased
		return layout, nil
	}

	if len(layout.InlineCols) == 0 {
		return fail("neither " + colTypeCode + " nor any inline biometric column present")
	}
	layout.Schema = SchemaInline
	return layout, nil
}
