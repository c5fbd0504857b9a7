package docstore

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/convert"
	"github.com/matsen/sysreview/internal/storage"
)

// DefaultConnectTimeout bounds server selection when connecting.
const DefaultConnectTimeout = 10 * time.Second

// MongoCollection is an article collection in MongoDB.
type MongoCollection struct {
	client *mongo.Client
	coll   *mongo.Collection
	Filter storage.Filter
}

// ConnectMongo connects to uri and checks the server is reachable.
// An unreachable server is reported as convert.ErrSourceUnavailable.
func ConnectMongo(ctx context.Context, uri, database, collection string) (*MongoCollection, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(DefaultConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to MongoDB: %v", convert.ErrSourceUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: MongoDB unreachable: %v", convert.ErrSourceUnavailable, err)
	}

	return &MongoCollection{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

// Close disconnects the client.
func (m *MongoCollection) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Articles returns the documents matching the collection's filter.
// A year stored with the wrong type is treated as absent.
func (m *MongoCollection) Articles(ctx context.Context) ([]article.Record, error) {
	opts := options.Find()
	if m.Filter.Limit > 0 {
		opts.SetLimit(int64(m.Filter.Limit))
	}

	cursor, err := m.coll.Find(ctx, FilterToBSON(m.Filter), opts)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer cursor.Close(ctx)

	var records []article.Record
	for cursor.Next(ctx) {
		rec, err := decodeArticle(cursor.Current)
		if err != nil {
			return nil, fmt.Errorf("decoding articles: %w", err)
		}
		records = append(records, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("reading articles: %w", err)
	}
	return records, nil
}

// decodeArticle decodes one document. The year goes through
// article.ParseYear so numbers, digit strings and junk behave as they do
// in JSON files.
func decodeArticle(doc bson.Raw) (article.Record, error) {
	elems, err := doc.Elements()
	if err != nil {
		return article.Record{}, err
	}

	var year *int
	rest := make(bson.D, 0, len(elems))
	for _, e := range elems {
		if e.Key() == "year" {
			year = bsonYear(e.Value())
			continue
		}
		rest = append(rest, bson.E{Key: e.Key(), Value: e.Value()})
	}

	data, err := bson.Marshal(rest)
	if err != nil {
		return article.Record{}, err
	}
	var rec article.Record
	if err := bson.Unmarshal(data, &rec); err != nil {
		return article.Record{}, err
	}
	rec.Year = year
	return rec, nil
}

// bsonYear reads a year stored as an integer, a whole double or a string.
func bsonYear(v bson.RawValue) *int {
	if n, ok := v.Int32OK(); ok {
		return article.ParseYear(strconv.FormatInt(int64(n), 10))
	}
	if n, ok := v.Int64OK(); ok {
		return article.ParseYear(strconv.FormatInt(n, 10))
	}
	if f, ok := v.DoubleOK(); ok && f == math.Trunc(f) && math.Abs(f) < math.MaxInt32 {
		return article.ParseYear(strconv.FormatInt(int64(f), 10))
	}
	if s, ok := v.StringValueOK(); ok {
		return article.ParseYear(s)
	}
	return nil
}

// Replace swaps the collection's contents for records. Documents are
// written to a staging collection first and renamed over the target, so a
// failed insert leaves the target untouched.
// Returns the number of documents inserted.
func (m *MongoCollection) Replace(ctx context.Context, records []article.Record) (int, error) {
	if len(records) == 0 {
		if _, err := m.coll.DeleteMany(ctx, bson.D{}); err != nil {
			return 0, fmt.Errorf("clearing collection: %w", err)
		}
		return 0, nil
	}

	db := m.coll.Database()
	staging := db.Collection(stagingName(m.coll.Name()))
	if err := staging.Drop(ctx); err != nil {
		return 0, fmt.Errorf("dropping staging collection: %w", err)
	}

	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = r
	}
	res, err := staging.InsertMany(ctx, docs)
	if err != nil {
		staging.Drop(context.Background())
		return 0, fmt.Errorf("inserting articles: %w", err)
	}

	cmd := renameCommand(db.Name(), staging.Name(), m.coll.Name())
	if err := m.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		staging.Drop(context.Background())
		return 0, fmt.Errorf("replacing collection: %w", err)
	}
	return len(res.InsertedIDs), nil
}

// stagingName is the collection Replace writes to before renaming.
func stagingName(collection string) string {
	return collection + "_staging"
}

// renameCommand renames from over to within database, dropping the old target.
func renameCommand(database, from, to string) bson.D {
	return bson.D{
		{Key: "renameCollection", Value: database + "." + from},
		{Key: "to", Value: database + "." + to},
		{Key: "dropTarget", Value: true},
	}
}

// FilterToBSON translates an index filter to a MongoDB query document.
// Status matches case-insensitively, and a missing status counts as pending.
func FilterToBSON(f storage.Filter) bson.M {
	query := bson.M{}

	if f.Status != "" {
		statusMatch := bson.M{"$regex": "^" + string(f.Status) + "$", "$options": "i"}
		if f.Status == article.StatusPending {
			query["$or"] = bson.A{
				bson.M{"screening_status": statusMatch},
				bson.M{"screening_status": bson.M{"$in": bson.A{nil, ""}}},
			}
		} else {
			query["screening_status"] = statusMatch
		}
	}

	if len(f.Labels) > 0 {
		labels := make(bson.A, len(f.Labels))
		for i, l := range f.Labels {
			labels[i] = l
		}
		query["labels"] = bson.M{"$all": labels}
	}

	year := bson.M{}
	if f.YearFrom > 0 {
		year["$gte"] = f.YearFrom
	}
	if f.YearTo > 0 {
		year["$lte"] = f.YearTo
	}
	if len(year) > 0 {
		query["year"] = year
	}

	return query
}
