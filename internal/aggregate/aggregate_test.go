package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/sysreview/internal/article"
)

const (
	predicts = "Predice respuesta al tratamiento"
	noPred   = "No predice respuesta al tratamiento"
	imaging  = "Imagenes medicas"
	noImg    = "No imagenes medicas"
	clinical = "Datos clinicos"
	public   = "Bases de datos publica"
	private  = "Base de datos privada"
	unspec   = "No especifica base de datos"
	rad      = "Radiomics"
	ml       = "Machine Learning"
	dl       = "Deep Learning"
)

func rec(key string, status string, year int, labels ...string) article.Record {
	r := article.Record{CitationKey: key, ScreeningStatus: status, Labels: labels}
	if year != 0 {
		r.Year = article.IntPtr(year)
	}
	return r
}

func bucketCount(t *testing.T, buckets []Bucket, name string) int {
	t.Helper()
	for _, b := range buckets {
		if b.Name == name {
			return b.Count
		}
	}
	t.Fatalf("no bucket %q in %v", name, buckets)
	return 0
}

func TestLabelFrequencies_SortedWithStableTies(t *testing.T) {
	records := []article.Record{
		rec("a", "", 0, "B", "A"),
		rec("b", "", 0, "C", "A"),
		rec("c", "", 0, "A", "A"),
		{CitationKey: "d"},
	}

	got := LabelFrequencies(records)
	want := []Bucket{{"A", 3}, {"B", 1}, {"C", 1}}
	assert.Equal(t, want, got)
}

func TestLabelFrequencies_Idempotent(t *testing.T) {
	records := []article.Record{
		rec("a", "", 0, "x", "y"),
		rec("b", "", 0, "y", "z"),
		rec("c", "", 0, "z", "x"),
	}
	snapshot := append([]article.Record(nil), records...)

	first := LabelFrequencies(records)
	second := LabelFrequencies(records)
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, records, "input must not be mutated")
}

func TestClassifier_MultiLabelModalities(t *testing.T) {
	c := NewClassifier(nil)
	labels := article.NewLabelSet([]string{"MRI", "PET", ml})

	assert.Equal(t, []string{"PET", "MRI"}, c.Modalities(labels))
	assert.Equal(t, []string{ml}, c.Techniques(labels))
}

func TestClassifier_DefaultNegative(t *testing.T) {
	c := NewClassifier(nil)
	labels := article.NewLabelSet([]string{predicts, imaging})

	assert.Equal(t, Negative, c.Clinical(labels))
	assert.Equal(t, Negative, c.Radiomics(labels))
	assert.Equal(t, Positive, c.Imaging(labels))
	assert.Equal(t, Predicts, c.Response(labels))
	assert.Equal(t, PCRUnreported, c.PCR(labels))
	assert.True(t, c.InCohort(labels))
	assert.Equal(t, NotPredicts, c.Response(article.NewLabelSet(nil)))
}

func TestClassifier_DatabaseOrPolicy(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name   string
		labels []string
		want   DatabaseSources
	}{
		{"none marked", nil, DatabaseSources{Unspecified: true}},
		{"explicit unspecified", []string{unspec}, DatabaseSources{Unspecified: true}},
		{"public", []string{public}, DatabaseSources{Public: true}},
		{"public and private", []string{public, private}, DatabaseSources{Public: true, Private: true}},
		{"private plus explicit unspecified", []string{private, unspec}, DatabaseSources{Private: true, Unspecified: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Database(article.NewLabelSet(tt.labels)))
		})
	}
}

func TestTreatmentResponse(t *testing.T) {
	e := New(nil)
	records := []article.Record{
		rec("a", "", 0, predicts, "pCR"),
		rec("b", "", 0, predicts, "No pCR"),
		rec("c", "", 0, predicts),
		rec("d", "", 0, noPred),
		rec("e", "", 0),
	}

	got := e.TreatmentResponse(records)
	assert.Equal(t, TreatmentResponseTable{Predicts: 3, NotPredicts: 2, PCR: 1, NoPCR: 1}, got)
}

func TestMedicalImaging(t *testing.T) {
	e := New(nil)
	records := []article.Record{
		rec("a", "", 0, predicts, imaging, "MRI", "PET"),
		rec("b", "", 0, predicts, imaging, "MRI"),
		rec("c", "", 0, predicts, noImg, "Mamografia"),
		rec("d", "", 0, predicts),
		rec("e", "", 0, imaging, "MRI"),
	}

	got := e.MedicalImaging(records)
	assert.Equal(t, 4, got.Predicts)
	assert.Equal(t, 2, got.UsesImages)
	assert.Equal(t, 2, got.NoImages, "no imaging label defaults to no images")
	assert.Equal(t, 2, bucketCount(t, got.Modalities, "MRI"))
	assert.Equal(t, 1, bucketCount(t, got.Modalities, "PET"))
	assert.Equal(t, 0, bucketCount(t, got.Modalities, "Mamografia"), "modalities only counted for image users")
}

func TestTables_MissingLabelsDefaultNegative(t *testing.T) {
	e := New(nil)

	response := e.TreatmentResponse([]article.Record{rec("a", "", 0, "MRI")})
	assert.Equal(t, TreatmentResponseTable{NotPredicts: 1}, response)

	images := e.MedicalImaging([]article.Record{rec("a", "", 0, predicts)})
	assert.Equal(t, 1, images.Predicts)
	assert.Equal(t, 0, images.UsesImages)
	assert.Equal(t, 1, images.NoImages)
}

func TestModalityByClinical(t *testing.T) {
	e := New(nil)
	records := []article.Record{
		rec("a", "", 0, predicts, imaging, "MRI", clinical),
		rec("b", "", 0, predicts, imaging, "MRI", "PET"),
		rec("c", "", 0, predicts, "MRI", clinical),
	}

	rows := e.ModalityByClinical(records)
	require.Len(t, rows, 5)

	byName := map[string]ModalityClinical{}
	for _, r := range rows {
		byName[r.Modality] = r
	}
	assert.Equal(t, ModalityClinical{Modality: "MRI", Clinical: 1, NonClinical: 1}, byName["MRI"])
	assert.Equal(t, ModalityClinical{Modality: "PET", NonClinical: 1}, byName["PET"])
	assert.Equal(t, "Mamografia", rows[0].Modality)
}

func TestDatabaseSources(t *testing.T) {
	e := New(nil)
	records := []article.Record{
		rec("a", "", 0, predicts, imaging, public),
		rec("b", "", 0, predicts, imaging, public, private),
		rec("c", "", 0, predicts, imaging),
		rec("d", "", 0, predicts, imaging, unspec),
		rec("e", "", 0, public),
	}

	got := e.DatabaseSources(records)
	assert.Equal(t, DatabaseSourcesTable{Cohort: 4, Public: 2, Private: 1, Unspecified: 2}, got)
}

func TestTechniqueRadiomics(t *testing.T) {
	e := New(nil)
	records := []article.Record{
		rec("a", "included", 0, predicts, imaging, ml, dl, rad),
		rec("b", "excluded", 0, predicts, imaging, ml),
		rec("c", "Included", 0, predicts, imaging, dl),
		rec("d", "included", 0, ml),
	}

	all := e.TechniqueRadiomics(records, false)
	assert.Equal(t, 3, all.Cohort)
	assert.Equal(t, []TechniqueCount{
		{Technique: ml, Count: 2, Radiomics: 1, NoRadiomics: 1},
		{Technique: dl, Count: 2, Radiomics: 1, NoRadiomics: 1},
	}, all.Techniques)

	inc := e.TechniqueRadiomics(records, true)
	assert.True(t, inc.IncludedOnly)
	assert.Equal(t, 2, inc.Cohort)
	assert.Equal(t, []TechniqueCount{
		{Technique: ml, Count: 1, Radiomics: 1},
		{Technique: dl, Count: 2, Radiomics: 1, NoRadiomics: 1},
	}, inc.Techniques)
}

func TestYearTrends(t *testing.T) {
	e := New(nil)
	records := []article.Record{
		rec("old", "included", 2019, predicts, imaging, "MRI", ml),
		rec("mixed", "Included", 2021, predicts, imaging, "MRI", "PET", ml),
		rec("pending", "pending", 2021, predicts, imaging, "MRI"),
		rec("noyear", "included", 0, predicts, imaging, "MRI"),
		rec("nocohort", "included", 2022, "MRI"),
		rec("dl", "included", 2025, predicts, imaging, dl),
	}

	got, err := e.YearTrends(records, 2020, 2025)
	require.NoError(t, err)
	require.Len(t, got.Years, 6)
	assert.Equal(t, 2020, got.Years[0].Year)
	assert.Equal(t, 2025, got.Years[5].Year)

	y2020 := got.Years[0]
	assert.Equal(t, 0, y2020.Articles)
	assert.Equal(t, 0, bucketCount(t, y2020.Modalities, "MRI"), "2019 record must be excluded")

	y2021 := got.Years[1]
	assert.Equal(t, 1, y2021.Articles)
	assert.Equal(t, 1, bucketCount(t, y2021.Modalities, "MRI"))
	assert.Equal(t, 1, bucketCount(t, y2021.Modalities, "PET"))
	assert.Equal(t, 1, bucketCount(t, y2021.Techniques, ml))

	assert.Equal(t, 0, got.Years[2].Articles)
	assert.Equal(t, 1, bucketCount(t, got.Years[5].Techniques, dl))
}

func TestYearTrends_InvalidRange(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
	}{
		{"reversed", 2025, 2020},
		{"not a four-digit year", 1, 2000000000},
		{"wider than the span limit", 1900, 1900 + MaxTrendSpan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil).YearTrends(nil, tt.from, tt.to)
			assert.ErrorIs(t, err, ErrInvalidRange)
		})
	}

	got, err := New(nil).YearTrends(nil, 1900, 1900+MaxTrendSpan-1)
	require.NoError(t, err)
	assert.Len(t, got.Years, MaxTrendSpan)
}

func TestStatusCounts(t *testing.T) {
	records := []article.Record{
		rec("a", "", 0),
		rec("b", "Included", 0),
		rec("c", "excluded", 0),
		rec("d", "maybe", 0),
		rec("e", "pending", 0),
		rec("f", "weird", 0),
	}

	got := StatusCounts(records)
	assert.Equal(t, StatusCountsTable{All: 6, Pending: 2, Included: 1, Excluded: 1, Maybe: 1, Other: 1}, got)
}

func TestSummary(t *testing.T) {
	e := New(nil)
	records := []article.Record{
		rec("a", "", 0, "MRI", ml),
		rec("b", "", 0, "MRI", "PET", dl),
		rec("c", "", 0, "MRI"),
		rec("d", "", 0),
	}

	got := e.Summary(records)
	assert.Equal(t, 4, got.Total)
	require.NotEmpty(t, got.Labels)
	assert.Equal(t, LabelShare{Label: "MRI", Count: 3, Percent: 75}, got.Labels[0])

	assert.Equal(t, []Bucket{
		{Name: "Técnicas de ML", Count: 2},
		{Name: "Imágenes Médicas", Count: 4},
	}, got.Categories)
}

func TestFilterByLabels(t *testing.T) {
	records := []article.Record{
		rec("a", "", 0, "MRI", ml),
		rec("b", "", 0, "MRI"),
		rec("c", "", 0, ml, "MRI", "PET"),
	}

	got := FilterByLabels(records, "MRI", ml)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].CitationKey)
	assert.Equal(t, "c", got[1].CitationKey)
	assert.Len(t, FilterByLabels(records), 3)
}

func TestFull(t *testing.T) {
	e := New(nil)
	records := []article.Record{rec("a", "included", 2021, predicts, imaging, "MRI", ml)}

	report, err := e.Full(records, 2020, 2022)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Status.Included)
	assert.Equal(t, 1, report.DatabaseSources.Unspecified)
	assert.Len(t, report.Trends.Years, 3)
}
