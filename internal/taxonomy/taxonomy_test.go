package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	tax := Default()
	require.NoError(t, tax.Validate())
	assert.Equal(t, []string{"Mamografia", "Ultrasonido", "PET", "Imagenes Histopatologicas", "MRI"}, tax.Modalities)
	assert.Equal(t, []string{"Machine Learning", "Deep Learning"}, tax.Techniques)
}

func TestAll_NoDuplicates(t *testing.T) {
	all := Default().All()

	seen := map[string]bool{}
	for _, l := range all {
		assert.False(t, seen[l], "duplicate label %q", l)
		seen[l] = true
	}
	assert.Contains(t, all, "MRI")
	assert.Contains(t, all, "No especifica base de datos")
	assert.Equal(t, "Predice respuesta al tratamiento", all[0])
}

func TestContains(t *testing.T) {
	tax := Default()
	assert.True(t, tax.Contains("Deep Learning"))
	assert.False(t, tax.Contains("Genomics"))
}

func TestLoad_OverridesKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yml")
	content := "modalities:\n  - CT\n  - MRI\nclinical: Clinical data\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	tax, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"CT", "MRI"}, tax.Modalities)
	assert.Equal(t, "Clinical data", tax.Clinical)
	assert.Equal(t, "No datos clinicos", tax.NoClinical)
	assert.Equal(t, []string{"Machine Learning", "Deep Learning"}, tax.Techniques)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"empty tag", "radiomics: \"\"\n"},
		{"empty modality list", "modalities: []\n"},
		{"not yaml", "modalities: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadOrDefault_EmptyPath(t *testing.T) {
	tax, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), tax)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
