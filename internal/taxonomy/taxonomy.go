// Package taxonomy defines the label vocabulary applied during screening.
package taxonomy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category groups labels for the summary report.
type Category struct {
	Name   string   `yaml:"name" json:"name"`
	Labels []string `yaml:"labels" json:"labels"`
}

// Taxonomy names every label the classifiers look for.
// A positive tag and its explicit negative form a binary dimension.
type Taxonomy struct {
	Predicts    string `yaml:"predicts" json:"predicts"`
	NotPredicts string `yaml:"not_predicts" json:"not_predicts"`

	PCR   string `yaml:"pcr" json:"pcr"`
	NoPCR string `yaml:"no_pcr" json:"no_pcr"`

	Imaging   string `yaml:"imaging" json:"imaging"`
	NoImaging string `yaml:"no_imaging" json:"no_imaging"`

	Clinical   string `yaml:"clinical" json:"clinical"`
	NoClinical string `yaml:"no_clinical" json:"no_clinical"`

	PublicDatabase      string `yaml:"public_database" json:"public_database"`
	PrivateDatabase     string `yaml:"private_database" json:"private_database"`
	UnspecifiedDatabase string `yaml:"unspecified_database" json:"unspecified_database"`

	Radiomics   string `yaml:"radiomics" json:"radiomics"`
	NoRadiomics string `yaml:"no_radiomics" json:"no_radiomics"`

	Modalities []string   `yaml:"modalities" json:"modalities"`
	Techniques []string   `yaml:"techniques" json:"techniques"`
	Categories []Category `yaml:"categories" json:"categories"`
}

// Default returns the taxonomy of the breast-cancer treatment-response review.
func Default() *Taxonomy {
	modalities := []string{"Mamografia", "Ultrasonido", "PET", "Imagenes Histopatologicas", "MRI"}
	techniques := []string{"Machine Learning", "Deep Learning"}

	return &Taxonomy{
		Predicts:            "Predice respuesta al tratamiento",
		NotPredicts:         "No predice respuesta al tratamiento",
		PCR:                 "pCR",
		NoPCR:               "No pCR",
		Imaging:             "Imagenes medicas",
		NoImaging:           "No imagenes medicas",
		Clinical:            "Datos clinicos",
		NoClinical:          "No datos clinicos",
		PublicDatabase:      "Bases de datos publica",
		PrivateDatabase:     "Base de datos privada",
		UnspecifiedDatabase: "No especifica base de datos",
		Radiomics:           "Radiomics",
		NoRadiomics:         "No Radiomics",
		Modalities:          modalities,
		Techniques:          techniques,
		Categories: []Category{
			{Name: "Técnicas de ML", Labels: append([]string(nil), techniques...)},
			{Name: "Imágenes Médicas", Labels: append([]string(nil), modalities...)},
		},
	}
}

// Load reads a YAML taxonomy. Keys missing from the file keep their
// default values.
func Load(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy: %w", err)
	}

	t := Default()
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parsing taxonomy %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid taxonomy %s: %w", path, err)
	}
	return t, nil
}

// LoadOrDefault loads path, or returns Default when path is empty.
func LoadOrDefault(path string) (*Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks that every tag is set and the multi-label lists are non-empty.
func (t *Taxonomy) Validate() error {
	var errs []error
	for name, tag := range t.tags() {
		if strings.TrimSpace(tag) == "" {
			errs = append(errs, fmt.Errorf("%s: label must not be empty", name))
		}
	}
	if len(t.Modalities) == 0 {
		errs = append(errs, errors.New("modalities: at least one label required"))
	}
	if len(t.Techniques) == 0 {
		errs = append(errs, errors.New("techniques: at least one label required"))
	}
	for _, l := range append(append([]string(nil), t.Modalities...), t.Techniques...) {
		if strings.TrimSpace(l) == "" {
			errs = append(errs, errors.New("modalities/techniques: empty label"))
			break
		}
	}
	return errors.Join(errs...)
}

// All returns every label the taxonomy knows, without duplicates, in
// declaration order.
func (t *Taxonomy) All() []string {
	ordered := []string{
		t.Predicts, t.NotPredicts, t.PCR, t.NoPCR,
		t.Imaging, t.NoImaging, t.Clinical, t.NoClinical,
		t.PublicDatabase, t.PrivateDatabase, t.UnspecifiedDatabase,
		t.Radiomics, t.NoRadiomics,
	}
	ordered = append(ordered, t.Modalities...)
	ordered = append(ordered, t.Techniques...)
	for _, c := range t.Categories {
		ordered = append(ordered, c.Labels...)
	}

	seen := make(map[string]bool, len(ordered))
	labels := make([]string, 0, len(ordered))
	for _, l := range ordered {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		labels = append(labels, l)
	}
	return labels
}

// Contains reports whether label belongs to the taxonomy.
func (t *Taxonomy) Contains(label string) bool {
	for _, l := range t.All() {
		if l == label {
			return true
		}
	}
	return false
}

func (t *Taxonomy) tags() map[string]string {
	return map[string]string{
		"predicts":             t.Predicts,
		"not_predicts":         t.NotPredicts,
		"pcr":                  t.PCR,
		"no_pcr":               t.NoPCR,
		"imaging":              t.Imaging,
		"no_imaging":           t.NoImaging,
		"clinical":             t.Clinical,
		"no_clinical":          t.NoClinical,
		"public_database":      t.PublicDatabase,
		"private_database":     t.PrivateDatabase,
		"unspecified_database": t.UnspecifiedDatabase,
		"radiomics":            t.Radiomics,
		"no_radiomics":         t.NoRadiomics,
	}
}
