package ingest

import "fmt"

// Slot identifies one of the four biometric categories a driver can carry
type Slot int

const (
	SlotFace Slot = iota
	SlotSignature
	SlotFingerprint1
	SlotFingerprint2
)

// AllSlots lists every slot in payload order
var AllSlots = []Slot{SlotFace, SlotSignature, SlotFingerprint1, SlotFingerprint2}

var slotCodes = [...]string{"face", "signature", "fingerprint1", "fingerprint2"}

var slotFields = [...]string{"fileFace", "fileSign", "filesFinger1", "filesFinger2"}

// Tipo_Biometria codes
var typeCodes = map[string]Slot{
	"1": SlotFace,
	"2": SlotSignature,
	"3": SlotFingerprint1,
	"4": SlotFingerprint2,
}

// Code returns the slot code (face, signature, fingerprint1, fingerprint2)
func (s Slot) Code() string {
	if s < 0 || int(s) >= len(slotCodes) {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	return slotCodes[s]
}

// Field returns the API payload field name for the slot
func (s Slot) Field() string {
	if s < 0 || int(s) >= len(slotFields) {
		return ""
	}
	return slotFields[s]
}

func (s Slot) String() string {
	return s.Code()
}

// SlotFromTypeCode maps a Tipo_Biometria value (1-4) to a slot
func SlotFromTypeCode(code string) (Slot, bool) {
	s, ok := typeCodes[code]
	return s, ok
}

// SlotFromField maps an API field name (fileFace, ...) back to a slot
func SlotFromField(field string) (Slot, bool) {
	for i, f := range slotFields {
		if f == field {
			return Slot(i), true
		}
	}
	return 0, false
}

// Entry is one normalized biometric reference for a driver.
// Exactly one of Path and Inline is set.
type Entry struct {
	DriverID string
	Slot     Slot
	Path     string
	Inline   string
	RowNo    int64
}

// IsInline reports whether the entry carries base64 content directly
func (e Entry) IsInline() bool {
	return e.Inline != ""
}

// DriverGroup is the upload unit for one driver
type DriverGroup struct {
	DriverID string
	Entries  map[Slot]Entry
	Rows     int // accepted CSV rows for this driver
}

// Slots returns the slots present in the group, in payload order
func (g DriverGroup) Slots() []Slot {
	out := make([]Slot, 0, len(g.Entries))
	for _, s := range AllSlots {
		if _, ok := g.Entries[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// NormalizedRow is the result of normalizing one CSV record
type NormalizedRow struct {
	DriverID string
	Entries  []Entry
}

// RowWarning describes a CSV row that was dropped during normalization
type RowWarning struct {
	RowNo    int64  `json:"row"`
	DriverID string `json:"numero_carta,omitempty"`
	Message  string `json:"message"`
}

// RowError is returned by the normalizer for a row that must be dropped
type RowError struct {
	RowNo    int64
	DriverID string
	Message  string
}

func (e *RowError) Error() string {
	if e.DriverID != "" {
		return fmt.Sprintf("row %d (%s): %s", e.RowNo, e.DriverID, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.RowNo, e.Message)
}

// Warning converts the error to a report warning
func (e *RowError) Warning() RowWarning {
	return RowWarning{RowNo: e.RowNo, DriverID: e.DriverID, Message: e.Message}
}
