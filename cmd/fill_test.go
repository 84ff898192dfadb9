//go:build !integration

package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formworks/formfill-cli/internal/model"
)

// restoreFillFlags resets the fill command's flag variables after the test.
func restoreFillFlags(t *testing.T) {
	t.Helper()
	schema, docs, dry, ftp := fillSchemaPath, fillDocsDir, fillDryRun, fillFTP
	t.Cleanup(func() {
		fillSchemaPath, fillDocsDir, fillDryRun, fillFTP = schema, docs, dry, ftp
	})
}

func TestLoadFillSchema_DryRunFallsBackToDemo(t *testing.T) {
	restoreFillFlags(t)
	fillSchemaPath = ""
	fillDryRun = true

	form, err := loadFillSchema()
	require.NoError(t, err)
	assert.Equal(t, "demo-antrag", form.Name)
	assert.NotEmpty(t, form.Fields)
}

func TestLoadFillSchema_PathRequired(t *testing.T) {
	restoreFillFlags(t)
	fillSchemaPath = ""
	fillDryRun = false

	_, err := loadFillSchema()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--schema is required")
}

func TestLoadFillSchema_UnsupportedExtension(t *testing.T) {
	restoreFillFlags(t)
	fillSchemaPath = "form.docx"

	_, err := loadFillSchema()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema format")
}

func TestLoadFillSchema_YAML(t *testing.T) {
	restoreFillFlags(t)
	path := filepath.Join(t.TempDir(), "form.yaml")
	def := `form: arbeitsaufnahme
fields:
  - id: arbeitgeber
    label: Arbeitgeber
    type: text
    required: true
  - id: eintrittsdatum
    label: Eintrittsdatum
    type: date
    format: DD.MM.YYYY
`
	require.NoError(t, os.WriteFile(path, []byte(def), 0o644))
	fillSchemaPath = path

	form, err := loadFillSchema()
	require.NoError(t, err)
	assert.Equal(t, "arbeitsaufnahme", form.Name)
	require.Len(t, form.Fields, 2)
	assert.Equal(t, model.FieldTypeDate, form.Fields[1].ExpectedType)
}

func TestLoadFillCorpus_DryRunFallsBackToDemo(t *testing.T) {
	restoreFillFlags(t)
	fillDocsDir = ""
	fillDryRun = true

	docs, err := loadFillCorpus(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestLoadFillCorpus_DirRequired(t *testing.T) {
	restoreFillFlags(t)
	fillDocsDir = ""
	fillDryRun = false

	_, err := loadFillCorpus(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--docs is required")
}

func TestWriteResultJSON_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	value := "Lichtblick Solartechnik GmbH"
	result := &model.RunResult{
		FormName: "arbeitsaufnahme",
		Results: []model.MappingResult{
			{FieldID: "arbeitgeber", AcceptedValue: &value, Status: model.StatusFilled},
		},
	}

	require.NoError(t, writeResultJSON(path, result))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded model.RunResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "arbeitsaufnahme", decoded.FormName)
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, "Lichtblick Solartechnik GmbH", decoded.Results[0].Value())
}
