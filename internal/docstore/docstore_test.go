package docstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/convert"
	"github.com/matsen/sysreview/internal/storage"
)

func TestFileSource_JSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.json")
	content := `[{"bibtex_id":"A","year":"2021","labels":["MRI"]},{"bibtex_id":"B"}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	records, err := FileSource{Path: path}.Articles(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	y, ok := records[0].YearValue()
	assert.True(t, ok)
	assert.Equal(t, 2021, y)
	assert.Nil(t, records[1].Labels, "missing field decodes as absent")
	assert.Equal(t, article.StatusPending, records[1].Status())
}

func TestFileSource_JSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.jsonl")
	require.NoError(t, storage.WriteAll(path, []article.Record{{CitationKey: "A"}, {CitationKey: "B"}}))

	records, err := FileSource{Path: path}.Articles(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestFileSource_Missing(t *testing.T) {
	for _, name := range []string{"missing.json", "missing.jsonl"} {
		_, err := FileSource{Path: filepath.Join(t.TempDir(), name)}.Articles(context.Background())
		assert.ErrorIs(t, err, convert.ErrSourceUnavailable, name)
	}
}

func TestIndexSource(t *testing.T) {
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Rebuild([]article.Record{
		{CitationKey: "A", ScreeningStatus: "included", Labels: []string{"MRI"}},
		{CitationKey: "B", ScreeningStatus: "excluded", Labels: []string{"MRI"}},
	})
	require.NoError(t, err)

	src := IndexSource{DB: db, Filter: storage.Filter{Status: article.StatusIncluded}}
	records, err := src.Articles(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].CitationKey)
}

type staticSource []article.Record

func (s staticSource) Articles(ctx context.Context) ([]article.Record, error) {
	return s, nil
}

func TestFiltered(t *testing.T) {
	src := staticSource{
		{CitationKey: "A", Labels: []string{"MRI", "PET"}},
		{CitationKey: "B", Labels: []string{"MRI"}},
	}

	records, err := Filtered{Source: src, Labels: []string{"MRI", "PET"}}.Articles(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].CitationKey)

	all, err := Filtered{Source: src}.Articles(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFilterToBSON(t *testing.T) {
	tests := []struct {
		name   string
		filter storage.Filter
		want   bson.M
	}{
		{"empty", storage.Filter{}, bson.M{}},
		{
			name:   "labels use $all",
			filter: storage.Filter{Labels: []string{"MRI", "PET"}},
			want:   bson.M{"labels": bson.M{"$all": bson.A{"MRI", "PET"}}},
		},
		{
			name:   "year range",
			filter: storage.Filter{YearFrom: 2020, YearTo: 2025},
			want:   bson.M{"year": bson.M{"$gte": 2020, "$lte": 2025}},
		},
		{
			name:   "included status",
			filter: storage.Filter{Status: article.StatusIncluded},
			want:   bson.M{"screening_status": bson.M{"$regex": "^included$", "$options": "i"}},
		},
		{
			name:   "pending matches missing status",
			filter: storage.Filter{Status: article.StatusPending},
			want: bson.M{"$or": bson.A{
				bson.M{"screening_status": bson.M{"$regex": "^pending$", "$options": "i"}},
				bson.M{"screening_status": bson.M{"$in": bson.A{nil, ""}}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterToBSON(tt.filter))
		})
	}
}

func TestDecodeArticle_Year(t *testing.T) {
	tests := []struct {
		name string
		year interface{}
		want *int
	}{
		{"int32", int32(2019), intPtr(2019)},
		{"int64", int64(2019), intPtr(2019)},
		{"whole double", 2019.0, intPtr(2019)},
		{"fractional double", 2019.5, nil},
		{"digit string", "2019", intPtr(2019)},
		{"no date", "n.d.", nil},
		{"null", nil, nil},
		{"wrong type", bson.A{"2019"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := bson.Marshal(bson.D{
				{Key: "bibtex_id", Value: "smith2019"},
				{Key: "year", Value: tt.year},
				{Key: "labels", Value: bson.A{"MRI"}},
			})
			require.NoError(t, err)

			rec, err := decodeArticle(raw)
			require.NoError(t, err)
			assert.Equal(t, "smith2019", rec.CitationKey)
			assert.Equal(t, []string{"MRI"}, rec.Labels)
			assert.Equal(t, tt.want, rec.Year)
		})
	}
}

func TestDecodeArticle_MissingYear(t *testing.T) {
	raw, err := bson.Marshal(bson.D{{Key: "bibtex_id", Value: "anon"}})
	require.NoError(t, err)

	rec, err := decodeArticle(raw)
	require.NoError(t, err)
	assert.Nil(t, rec.Year)
}

func TestRenameCommand(t *testing.T) {
	assert.Equal(t, "articles_staging", stagingName("articles"))
	assert.Equal(t, bson.D{
		{Key: "renameCollection", Value: "sysreview.articles_staging"},
		{Key: "to", Value: "sysreview.articles"},
		{Key: "dropTarget", Value: true},
	}, renameCommand("sysreview", "articles_staging", "articles"))
}

func intPtr(n int) *int { return &n }
