// Package aggregate computes the label-based frequency tables reported over
// a collection of screened articles. Every function is a read-only scan.
package aggregate

import (
	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/taxonomy"
)

// Response is the treatment-response dimension.
type Response int

const (
	NotPredicts Response = iota // Default when neither tag is present
	Predicts
)

func (r Response) String() string {
	if r == Predicts {
		return "predicts"
	}
	return "not_predicts"
}

// PCRStatus is the pathological complete response dimension.
type PCRStatus int

const (
	PCRUnreported PCRStatus = iota
	PCR
	NoPCR
)

func (p PCRStatus) String() string {
	switch p {
	case PCR:
		return "pcr"
	case NoPCR:
		return "no_pcr"
	default:
		return "unreported"
	}
}

// Binary is a yes/no dimension with an explicit negative label.
// Records carrying neither label fall in the negative bucket.
type Binary int

const (
	Negative Binary = iota
	Positive
)

// DatabaseSources is the set of database buckets a record contributes to.
type DatabaseSources struct {
	Public      bool
	Private     bool
	Unspecified bool
}

// Classifier evaluates records against a taxonomy.
type Classifier struct {
	tax *taxonomy.Taxonomy
}

// NewClassifier returns a classifier for tax, or for the default taxonomy
// when tax is nil.
func NewClassifier(tax *taxonomy.Taxonomy) *Classifier {
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &Classifier{tax: tax}
}

// Taxonomy returns the labels the classifier uses.
func (c *Classifier) Taxonomy() *taxonomy.Taxonomy {
	return c.tax
}

// Response classifies treatment-response prediction.
func (c *Classifier) Response(labels article.LabelSet) Response {
	if labels.Has(c.tax.Predicts) {
		return Predicts
	}
	return NotPredicts
}

// PCR classifies the reported pCR outcome. pCR wins when both are present.
func (c *Classifier) PCR(labels article.LabelSet) PCRStatus {
	switch {
	case labels.Has(c.tax.PCR):
		return PCR
	case labels.Has(c.tax.NoPCR):
		return NoPCR
	default:
		return PCRUnreported
	}
}

// Imaging classifies medical image use.
func (c *Classifier) Imaging(labels article.LabelSet) Binary {
	return c.binary(labels, c.tax.Imaging)
}

// Clinical classifies clinical data use. No label means non-clinical.
func (c *Classifier) Clinical(labels article.LabelSet) Binary {
	return c.binary(labels, c.tax.Clinical)
}

// Radiomics classifies radiomics use. No label means non-radiomics.
func (c *Classifier) Radiomics(labels article.LabelSet) Binary {
	return c.binary(labels, c.tax.Radiomics)
}

// Database classifies data provenance. Public and private are independent;
// unspecified is set when neither is marked or when its own label is present.
func (c *Classifier) Database(labels article.LabelSet) DatabaseSources {
	d := DatabaseSources{
		Public:  labels.Has(c.tax.PublicDatabase),
		Private: labels.Has(c.tax.PrivateDatabase),
	}
	d.Unspecified = (!d.Public && !d.Private) || labels.Has(c.tax.UnspecifiedDatabase)
	return d
}

// Modalities returns the imaging modalities present, in taxonomy order.
func (c *Classifier) Modalities(labels article.LabelSet) []string {
	return present(labels, c.tax.Modalities)
}

// Techniques returns the techniques present, in taxonomy order.
func (c *Classifier) Techniques(labels article.LabelSet) []string {
	return present(labels, c.tax.Techniques)
}

// InCohort reports whether the record predicts treatment response using
// medical images, the population most tables are computed over.
func (c *Classifier) InCohort(labels article.LabelSet) bool {
	return c.Response(labels) == Predicts && c.Imaging(labels) == Positive
}

func (c *Classifier) binary(labels article.LabelSet, positive string) Binary {
	if labels.Has(positive) {
		return Positive
	}
	return Negative
}

// present returns the members of candidates found in labels. A repeated
// candidate is reported once.
func present(labels article.LabelSet, candidates []string) []string {
	var out []string
	seen := make(map[string]bool, len(candidates))
	for _, l := range candidates {
		if labels.Has(l) && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
