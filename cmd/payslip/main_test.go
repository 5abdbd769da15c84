package main

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

var header = []any{"S/N", "Name", "Rank", "From", "To", "Day on Board", "Basic Salary", "Net Salary", "Remarks"}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DB_PATH", filepath.Join(dir, "app.db"))
	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "out"))
	t.Setenv("TEMPLATE_PATH", "")
	t.Setenv("TEMPLATE_LABELS_PATH", "")
	t.Setenv("LOG_LEVEL", "error")

	in := filepath.Join(dir, "march.xlsx")
	writeWorkbook(t, in, [][]any{
		{"Vessel Name: ALPHA"},
		header,
		{1, "Tony Tan", "Master", "2024-03-01", "2024-03-31", 31, 5000, 5000, "-"},
		{"Vessel Name: BETA"},
		header,
		{1, "Wei Ming", "Chief Engineer", "2024-03-05", "2024-03-31", 27, 4200, 4200, ""},
	})
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	templatePath, labelsPath, outputPath = "", "", ""
	out := bytes.NewBuffer(nil)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGenerateCommand(t *testing.T) {
	dir := setupEnv(t)
	zipPath := filepath.Join(dir, "out", "march.zip")

	out, err := execute(t, "generate", "--input", filepath.Join(dir, "march.xlsx"), "--out", zipPath)
	require.NoError(t, err)
	assert.Contains(t, out, "generated 2 pay slips from 2 vessel blocks")

	data, err := os.ReadFile(zipPath)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"ALPHA/Tony Tan.docx", "BETA/Wei Ming.docx"}, names)

	out, err = execute(t, "runs", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "source=cli")
	assert.Contains(t, out, "status=ok")
}

func TestInspectCommand(t *testing.T) {
	dir := setupEnv(t)
	review := filepath.Join(dir, "review.xlsx")

	out, err := execute(t, "inspect", "--input", filepath.Join(dir, "march.xlsx"), "--out", review)
	require.NoError(t, err)
	assert.Contains(t, out, `block 1 vessel="ALPHA" header_row=2 rows=1`)
	assert.Contains(t, out, `block 2 vessel="BETA" header_row=5 rows=1`)
	assert.Contains(t, out, "blocks=2 employees=2")
	assert.FileExists(t, review)
}

func TestGenerateCommandNothingToExport(t *testing.T) {
	dir := setupEnv(t)
	empty := filepath.Join(dir, "empty.xlsx")
	writeWorkbook(t, empty, [][]any{{"Vessel Name: ALPHA"}, header})

	_, err := execute(t, "generate", "--input", empty, "--out", filepath.Join(dir, "empty.zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no employee rows")
	assert.NoFileExists(t, filepath.Join(dir, "empty.zip"))
}
