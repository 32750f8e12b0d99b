package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectSchemaPathBased(t *testing.T) {
	header := []string{"ID", "Numero_Carta", "Nome_Ficheiro", "Caminho_Completo", "Is_Active", "Tipo_Biometria"}

	layout, err := DetectSchema(header)
	require.NoError(t, err)

	assert.Equal(t, SchemaPathBased, layout.Schema)
	assert.Equal(t, 1, layout.DriverCol, "numero_carta takes priority over id")
	assert.Equal(t, "Numero_Carta", layout.DriverName)
	assert.Equal(t, 3, layout.PathCol)
	assert.Equal(t, 4, layout.ActiveCol)
	assert.Equal(t, 5, layout.TypeCol)
	assert.Equal(t, 2, layout.FileNameCol)
	assert.Empty(t, layout.InlineCols)
}

func TestDetectSchemaCaseInsensitiveAndBOM(t *testing.T) {
	header := []string{"\ufeffnumero_carta", " CAMINHO_COMPLETO ", "tipo_biometria"}

	layout, err := DetectSchema(header)
	require.NoError(t, err)
	assert.Equal(t, SchemaPathBased, layout.Schema)
	assert.Equal(t, 0, layout.DriverCol)
	assert.Equal(t, -1, layout.ActiveCol, "Is_Active is optional")
}

func TestDetectSchemaInline(t *testing.T) {
	tests := []struct {
		name       string
		header     []string
		driverCol  int
		inlineCols map[Slot]int
	}{
		{
			name:      "canonical names",
			header:    []string{"numero_carta", "fileFace", "fileSign", "filesFinger1", "filesFinger2"},
			driverCol: 0,
			inlineCols: map[Slot]int{
				SlotFace: 1, SlotSignature: 2, SlotFingerprint1: 3, SlotFingerprint2: 4,
			},
		},
		{
			name:       "license_number alias and legacy columns",
			header:     []string{"license_number", "face_img", "fp2"},
			driverCol:  0,
			inlineCols: map[Slot]int{SlotFace: 1, SlotFingerprint2: 2},
		},
		{
			name:       "Numero_Carta upper case",
			header:     []string{"Nome", "Numero_Carta", "signature"},
			driverCol:  1,
			inlineCols: map[Slot]int{SlotSignature: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := DetectSchema(tt.header)
			require.NoError(t, err)
			assert.Equal(t, SchemaInline, layout.Schema)
			assert.Equal(t, tt.driverCol, layout.DriverCol)
			assert.Equal(t, tt.inlineCols, layout.InlineCols)
		})
	}
}

func TestDetectSchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		header []string
	}{
		{"no driver column", []string{"Caminho_Completo", "Tipo_Biometria"}},
		{"type without path", []string{"Numero_Carta", "Tipo_Biometria"}},
		{"nothing usable", []string{"Numero_Carta", "Nome"}},
		{"ambiguous", []string{"Numero_Carta", "Caminho_Completo", "Tipo_Biometria", "fileFace"}},
		{"empty header", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := DetectSchema(tt.header)
			require.Error(t, err)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr), "expected *SchemaError, got %T", err)
			assert.Equal(t, SchemaUnknown, layout.Schema)
		})
	}
}

func TestSlotMappings(t *testing.T) {
	want := map[string]string{
		"1": "fileFace",
		"2": "fileSign",
		"3": "filesFinger1",
		"4": "filesFinger2",
	}
	for code, field := range want {
		slot, ok := SlotFromTypeCode(code)
		require.True(t, ok, code)
		assert.Equal(t, field, slot.Field())

		back, ok := SlotFromField(field)
		require.True(t, ok)
		assert.Equal(t, slot, back)
	}

	_, ok := SlotFromTypeCode("5")
	assert.False(t, ok)
	assert.Equal(t, "fingerprint1", SlotFingerprint1.String())
}
