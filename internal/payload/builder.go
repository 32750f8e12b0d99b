package payload

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/ryabkov82/biometric-sender/internal/ingest"
)

// Payload is the JSON body sent for one driver. Unresolved slots are omitted.
type Payload struct {
	Face    string `json:"fileFace,omitempty"`
	Sign    string `json:"fileSign,omitempty"`
	Finger1 string `json:"filesFinger1,omitempty"`
	Finger2 string `json:"filesFinger2,omitempty"`
}

// Set stores the base64 value for a slot
func (p *Payload) Set(slot ingest.Slot, value string) {
	switch slot {
	case ingest.SlotFace:
		p.Face = value
	case ingest.SlotSignature:
		p.Sign = value
	case ingest.SlotFingerprint1:
		p.Finger1 = value
	case ingest.SlotFingerprint2:
		p.Finger2 = value
	}
}

// Get returns the base64 value for a slot, or "" when absent
func (p Payload) Get(slot ingest.Slot) string {
	switch slot {
	case ingest.SlotFace:
		return p.Face
	case ingest.SlotSignature:
		return p.Sign
	case ingest.SlotFingerprint1:
		return p.Finger1
	case ingest.SlotFingerprint2:
		return p.Finger2
	}
	return ""
}

// Slots returns the resolved slots in payload order
func (p Payload) Slots() []ingest.Slot {
	var out []ingest.Slot
	for _, s := range ingest.AllSlots {
		if p.Get(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of resolved slots
func (p Payload) Len() int {
	return len(p.Slots())
}

// Options controls how file references are resolved
type Options struct {
	BaseDir    string   // relative paths are joined onto it
	Restrict   bool     // paths escaping BaseDir count as missing
	AcceptMIME []string // MIME prefixes; empty accepts anything
}

// Result is the outcome of building one driver's payload
type Result struct {
	Payload Payload
	Missing []ingest.Slot // slots whose file could not be resolved, in payload order
}

// MissingFields returns Missing as API field names
func (r Result) MissingFields() []string {
	out := make([]string, 0, len(r.Missing))
	for _, s := range r.Missing {
		out = append(out, s.Field())
	}
	return out
}

// Builder turns driver groups into payloads
type Builder struct {
	opts    Options
	logger  *zap.Logger
	timings *ingest.Timings
}

// NewBuilder creates a Builder. logger and timings may be nil.
func NewBuilder(opts Options, logger *zap.Logger, timings *ingest.Timings) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{opts: opts, logger: logger, timings: timings}
}

// Build resolves every entry of g. A file that cannot be read never fails the
// driver: the slot is left out of the payload and reported as missing.
func (b *Builder) Build(g ingest.DriverGroup) Result {
	var res Result
	for _, slot := range g.Slots() {
		entry := g.Entries[slot]
		if entry.IsInline() {
			res.Payload.Set(slot, entry.Inline)
			continue
		}

		encoded, err := b.encodeFile(entry.Path)
		if err != nil {
			b.logger.Warn("Biometric file unavailable",
				zap.String("driver", g.DriverID),
				zap.String("slot", slot.Field()),
				zap.String("path", entry.Path),
				zap.Int64("row", entry.RowNo),
				zap.Error(err))
			res.Missing = append(res.Missing, slot)
			continue
		}
		res.Payload.Set(slot, encoded)
	}
	return res
}

func (b *Builder) encodeFile(path string) (string, error) {
	start := time.Now()

	resolved := ingest.ResolveFilePath(path, b.opts.BaseDir)
	if b.opts.Restrict && b.opts.BaseDir != "" {
		checked, err := ingest.ValidatePath(resolved, b.opts.BaseDir)
		if err != nil {
			return "", err
		}
		resolved = checked
	}

	data, err := readFile(resolved)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("file is empty: %s", resolved)
	}

	if len(b.opts.AcceptMIME) > 0 {
		mtype := mimetype.Detect(data)
		if !acceptMIME(mtype, b.opts.AcceptMIME) {
			return "", fmt.Errorf("content type %s not accepted", mtype.String())
		}
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	b.timings.ObserveEncode(time.Since(start), len(data))
	return encoded, nil
}

func readFile(path string) ([]byte, error) {
	if err := ingest.ValidatePathExists(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func acceptMIME(mtype *mimetype.MIME, accepted []string) bool {
	for m := mtype; m != nil; m = m.Parent() {
		for _, prefix := range accepted {
			if strings.HasPrefix(m.String(), prefix) {
				return true
			}
		}
	}
	return false
}
