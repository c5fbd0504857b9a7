package aggregate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/taxonomy"
)

// ErrInvalidRange is returned for a reversed, implausible or too wide year range.
var ErrInvalidRange = errors.New("invalid year range")

// Trend years are four-digit years and a table spans at most MaxTrendSpan years.
const (
	MinTrendYear = 1000
	MaxTrendYear = 9999
	MaxTrendSpan = 200
)

// ValidateRange checks an inclusive trend range.
func ValidateRange(from, to int) error {
	switch {
	case from < MinTrendYear || to > MaxTrendYear:
		return fmt.Errorf("%w: years must be between %d and %d (got %d-%d)", ErrInvalidRange, MinTrendYear, MaxTrendYear, from, to)
	case from > to:
		return fmt.Errorf("%w: %d > %d", ErrInvalidRange, from, to)
	case to-from+1 > MaxTrendSpan:
		return fmt.Errorf("%w: %d-%d spans more than %d years", ErrInvalidRange, from, to, MaxTrendSpan)
	}
	return nil
}

// Bucket is one named count.
type Bucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Engine computes report tables with a fixed taxonomy.
type Engine struct {
	c *Classifier
}

// New returns an engine for tax (the default taxonomy when nil).
func New(tax *taxonomy.Taxonomy) *Engine {
	return &Engine{c: NewClassifier(tax)}
}

// Classifier returns the engine's classifier.
func (e *Engine) Classifier() *Classifier {
	return e.c
}

// LabelFrequencies counts how many records carry each label, sorted by
// count descending. Ties keep the order in which labels were first seen.
// A label repeated within one record counts once.
func LabelFrequencies(records []article.Record) []Bucket {
	index := make(map[string]int)
	var buckets []Bucket

	for _, r := range records {
		for _, l := range article.DedupeLabels(r.Labels) {
			i, ok := index[l]
			if !ok {
				i = len(buckets)
				index[l] = i
				buckets = append(buckets, Bucket{Name: l})
			}
			buckets[i].Count++
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Count > buckets[j].Count
	})
	return buckets
}

// TreatmentResponseTable splits records by treatment-response prediction,
// and predicting records by reported pCR.
type TreatmentResponseTable struct {
	Predicts    int `json:"predicts"`
	NotPredicts int `json:"not_predicts"`
	PCR         int `json:"pcr"`
	NoPCR       int `json:"no_pcr"`
}

// TreatmentResponse counts records by response prediction. A record with
// neither response label counts as not predicting.
func (e *Engine) TreatmentResponse(records []article.Record) TreatmentResponseTable {
	var t TreatmentResponseTable
	for _, r := range records {
		labels := r.LabelSet()
		if e.c.Response(labels) != Predicts {
			t.NotPredicts++
			continue
		}
		t.Predicts++
		switch e.c.PCR(labels) {
		case PCR:
			t.PCR++
		case NoPCR:
			t.NoPCR++
		}
	}
	return t
}

// MedicalImagingTable splits predicting records by medical image use and
// counts modalities among those using images.
type MedicalImagingTable struct {
	Predicts   int      `json:"predicts"`
	UsesImages int      `json:"uses_images"`
	NoImages   int      `json:"no_images"`
	Modalities []Bucket `json:"modalities"`
}

// MedicalImaging counts image use among records that predict response.
// A record without an imaging label counts as not using images. A record
// contributes to every modality it carries.
func (e *Engine) MedicalImaging(records []article.Record) MedicalImagingTable {
	t := MedicalImagingTable{Modalities: newBuckets(e.c.tax.Modalities)}
	for _, r := range records {
		labels := r.LabelSet()
		if e.c.Response(labels) != Predicts {
			continue
		}
		t.Predicts++
		if e.c.Imaging(labels) != Positive {
			t.NoImages++
			continue
		}
		t.UsesImages++
		addAll(t.Modalities, e.c.Modalities(labels))
	}
	return t
}

// ModalityClinical is the clinical-data split for one modality.
type ModalityClinical struct {
	Modality    string `json:"modality"`
	Clinical    int    `json:"clinical"`
	NonClinical int    `json:"non_clinical"`
}

// ModalityByClinical splits each modality by clinical data use, over the
// cohort. Records without a clinical label count as non-clinical.
func (e *Engine) ModalityByClinical(records []article.Record) []ModalityClinical {
	rows := make([]ModalityClinical, len(e.c.tax.Modalities))
	index := make(map[string]int, len(rows))
	for i, m := range e.c.tax.Modalities {
		rows[i].Modality = m
		if _, ok := index[m]; !ok {
			index[m] = i
		}
	}

	for _, r := range records {
		labels := r.LabelSet()
		if !e.c.InCohort(labels) {
			continue
		}
		clinical := e.c.Clinical(labels) == Positive
		for _, m := range e.c.Modalities(labels) {
			row := &rows[index[m]]
			if clinical {
				row.Clinical++
			} else {
				row.NonClinical++
			}
		}
	}
	return rows
}

// DatabaseSourcesTable counts data provenance over the cohort. Public and
// private are multi-label; unspecified follows Classifier.Database.
type DatabaseSourcesTable struct {
	Cohort      int `json:"cohort"`
	Public      int `json:"public"`
	Private     int `json:"private"`
	Unspecified int `json:"unspecified"`
}

// DatabaseSources counts database provenance over the cohort.
func (e *Engine) DatabaseSources(records []article.Record) DatabaseSourcesTable {
	var t DatabaseSourcesTable
	for _, r := range records {
		labels := r.LabelSet()
		if !e.c.InCohort(labels) {
			continue
		}
		t.Cohort++
		d := e.c.Database(labels)
		if d.Public {
			t.Public++
		}
		if d.Private {
			t.Private++
		}
		if d.Unspecified {
			t.Unspecified++
		}
	}
	return t
}

// TechniqueCount is the usage and radiomics split of one technique.
type TechniqueCount struct {
	Technique   string `json:"technique"`
	Count       int    `json:"count"`
	Radiomics   int    `json:"radiomics"`
	NoRadiomics int    `json:"no_radiomics"`
}

// TechniqueRadiomicsTable counts techniques over the cohort.
type TechniqueRadiomicsTable struct {
	IncludedOnly bool             `json:"included_only"`
	Cohort       int              `json:"cohort"`
	Techniques   []TechniqueCount `json:"techniques"`
}

// TechniqueRadiomics counts each technique over the cohort and splits it by
// radiomics use. With includedOnly, only included records are scanned.
func (e *Engine) TechniqueRadiomics(records []article.Record, includedOnly bool) TechniqueRadiomicsTable {
	t := TechniqueRadiomicsTable{
		IncludedOnly: includedOnly,
		Techniques:   make([]TechniqueCount, len(e.c.tax.Techniques)),
	}
	index := make(map[string]int, len(t.Techniques))
	for i, name := range e.c.tax.Techniques {
		t.Techniques[i].Technique = name
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}

	for _, r := range records {
		if includedOnly && !r.IsIncluded() {
			continue
		}
		labels := r.LabelSet()
		if !e.c.InCohort(labels) {
			continue
		}
		t.Cohort++
		radiomics := e.c.Radiomics(labels) == Positive
		for _, name := range e.c.Techniques(labels) {
			tc := &t.Techniques[index[name]]
			tc.Count++
			if radiomics {
				tc.Radiomics++
			} else {
				tc.NoRadiomics++
			}
		}
	}
	return t
}

// YearTrend holds the per-year modality and technique counts.
type YearTrend struct {
	Year       int      `json:"year"`
	Articles   int      `json:"articles"`
	Modalities []Bucket `json:"modalities"`
	Techniques []Bucket `json:"techniques"`
}

// TrendTable is a year-bucketed trend over an inclusive year range.
type TrendTable struct {
	From  int         `json:"from"`
	To    int         `json:"to"`
	Years []YearTrend `json:"years"`
}

// YearTrends counts modalities and techniques per year over included cohort
// records with a year in [from, to]. Every year in the range is present.
func (e *Engine) YearTrends(records []article.Record, from, to int) (TrendTable, error) {
	if err := ValidateRange(from, to); err != nil {
		return TrendTable{}, err
	}

	t := TrendTable{From: from, To: to, Years: make([]YearTrend, 0, to-from+1)}
	for y := from; y <= to; y++ {
		t.Years = append(t.Years, YearTrend{
			Year:       y,
			Modalities: newBuckets(e.c.tax.Modalities),
			Techniques: newBuckets(e.c.tax.Techniques),
		})
	}

	for _, r := range records {
		if !r.IsIncluded() {
			continue
		}
		year, ok := r.YearValue()
		if !ok || year < from || year > to {
			continue
		}
		labels := r.LabelSet()
		if !e.c.InCohort(labels) {
			continue
		}
		yt := &t.Years[year-from]
		yt.Articles++
		addAll(yt.Modalities, e.c.Modalities(labels))
		addAll(yt.Techniques, e.c.Techniques(labels))
	}
	return t, nil
}

// StatusCountsTable counts records per screening status.
type StatusCountsTable struct {
	All      int `json:"all"`
	Pending  int `json:"pending"`
	Included int `json:"included"`
	Excluded int `json:"excluded"`
	Maybe    int `json:"maybe"`
	Other    int `json:"other,omitempty"`
}

// StatusCounts counts records per status. An empty status is pending and
// matching is case-insensitive.
func StatusCounts(records []article.Record) StatusCountsTable {
	var t StatusCountsTable
	for _, r := range records {
		t.All++
		switch r.Status() {
		case article.StatusPending:
			t.Pending++
		case article.StatusIncluded:
			t.Included++
		case article.StatusExcluded:
			t.Excluded++
		case article.StatusMaybe:
			t.Maybe++
		default:
			t.Other++
		}
	}
	return t
}

// LabelShare is a label's count and its share of all articles.
type LabelShare struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// SummaryTable is the overall label report.
type SummaryTable struct {
	Total      int          `json:"total"`
	Labels     []LabelShare `json:"labels"`
	Categories []Bucket     `json:"categories"`
}

// Summary reports label frequencies as shares of all articles, and total
// mentions per report category.
func (e *Engine) Summary(records []article.Record) SummaryTable {
	freqs := LabelFrequencies(records)
	counts := make(map[string]int, len(freqs))

	t := SummaryTable{Total: len(records), Labels: make([]LabelShare, 0, len(freqs))}
	for _, f := range freqs {
		counts[f.Name] = f.Count
		share := LabelShare{Label: f.Name, Count: f.Count}
		if t.Total > 0 {
			share.Percent = float64(f.Count) / float64(t.Total) * 100
		}
		t.Labels = append(t.Labels, share)
	}

	for _, c := range e.c.tax.Categories {
		b := Bucket{Name: c.Name}
		for _, l := range c.Labels {
			b.Count += counts[l]
		}
		t.Categories = append(t.Categories, b)
	}
	return t
}

// FilterByLabels returns the records carrying every given label, in order.
func FilterByLabels(records []article.Record, labels ...string) []article.Record {
	var out []article.Record
	for _, r := range records {
		if r.LabelSet().HasAll(labels...) {
			out = append(out, r)
		}
	}
	return out
}

// Report bundles every table.
type Report struct {
	Status                StatusCountsTable       `json:"status"`
	Summary               SummaryTable            `json:"summary"`
	TreatmentResponse     TreatmentResponseTable  `json:"treatment_response"`
	MedicalImaging        MedicalImagingTable     `json:"medical_imaging"`
	ModalityByClinical    []ModalityClinical      `json:"modality_by_clinical"`
	DatabaseSources       DatabaseSourcesTable    `json:"database_sources"`
	TechniqueRadiomics    TechniqueRadiomicsTable `json:"technique_radiomics"`
	TechniqueRadiomicsInc TechniqueRadiomicsTable `json:"technique_radiomics_included"`
	Trends                TrendTable              `json:"trends"`
}

// Full computes every table, with trends over [from, to].
func (e *Engine) Full(records []article.Record, from, to int) (Report, error) {
	trends, err := e.YearTrends(records, from, to)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Status:                StatusCounts(records),
		Summary:               e.Summary(records),
		TreatmentResponse:     e.TreatmentResponse(records),
		MedicalImaging:        e.MedicalImaging(records),
		ModalityByClinical:    e.ModalityByClinical(records),
		DatabaseSources:       e.DatabaseSources(records),
		TechniqueRadiomics:    e.TechniqueRadiomics(records, false),
		TechniqueRadiomicsInc: e.TechniqueRadiomics(records, true),
		Trends:                trends,
	}, nil
}

func newBuckets(names []string) []Bucket {
	buckets := make([]Bucket, len(names))
	for i, n := range names {
		buckets[i].Name = n
	}
	return buckets
}

// addAll increments the bucket of each name. Names are distinct, so a
// record adds at most one to any bucket.
func addAll(buckets []Bucket, names []string) {
	for _, n := range names {
		for i := range buckets {
			if buckets[i].Name == n {
				buckets[i].Count++
				break
			}
		}
	}
}
