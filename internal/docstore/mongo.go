package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cesargomez89/quarry/internal/domain"
)

// Mongo maps each collection to a MongoDB collection keyed by _id. Documents
// cross the driver boundary as relaxed extended JSON.
type Mongo struct {
	client   *mongo.Client
	database *mongo.Database
}

func NewMongo(ctx context.Context, uri, database string, indexes ...Index) (*Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	m := &Mongo{
		client:   client,
		database: client.Database(database),
	}

	if err := m.createIndexes(connectCtx, indexes); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return m, nil
}

func (m *Mongo) createIndexes(ctx context.Context, indexes []Index) error {
	for _, idx := range indexes {
		if err := checkField(idx.Field); err != nil {
			return err
		}
		model := mongo.IndexModel{
			Keys: bson.D{{Key: idx.Field, Value: 1}},
		}
		if _, err := m.database.Collection(idx.Collection).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("can't create index %s.%s: %w", idx.Collection, idx.Field, err)
		}
	}
	return nil
}

func (m *Mongo) Put(ctx context.Context, collection, id string, doc any) error {
	replacement, err := toBSON(id, doc)
	if err != nil {
		return err
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := m.database.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, replacement, opts); err != nil {
		return persistenceError("put "+collection, 0, err)
	}
	return nil
}

// BatchPut writes each chunk with one ordered BulkWrite. Upserts are keyed by
// id, so replaying a partially applied chunk is safe.
func (m *Mongo) BatchPut(ctx context.Context, collection string, docs []Doc, maxBatch int) (int, error) {
	coll := m.database.Collection(collection)
	written := 0
	for _, chunk := range chunks(docs, maxBatch) {
		models := make([]mongo.WriteModel, 0, len(chunk))
		for _, d := range chunk {
			replacement, err := toBSON(d.ID, d.Data)
			if err != nil {
				return written, persistenceError("batch put "+collection, written, err)
			}
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": d.ID}).
				SetReplacement(replacement).
				SetUpsert(true))
		}
		if _, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
			return written, persistenceError("batch put "+collection, written, err)
		}
		written += len(chunk)
	}
	return written, nil
}

func (m *Mongo) Get(ctx context.Context, collection, id string, dest any) error {
	raw, err := m.database.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return json.Unmarshal(data, dest)
}

func (m *Mongo) Query(ctx context.Context, collection string, filter Filter) ([]json.RawMessage, error) {
	f := bson.M{}
	for field, value := range filter {
		if err := checkField(field); err != nil {
			return nil, err
		}
		f[field] = value
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := m.database.Collection(collection).Find(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var out []json.RawMessage
	for cursor.Next(ctx) {
		data, err := bson.MarshalExtJSON(cursor.Current, false, false)
		if err != nil {
			return nil, fmt.Errorf("decode %s document: %w", collection, err)
		}
		out = append(out, json.RawMessage(data))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mongo) Delete(ctx context.Context, collection string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := m.database.Collection(collection).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return persistenceError("delete "+collection, 0, err)
	}
	return nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// toBSON converts doc to a BSON document through its JSON form so the json
// struct tags stay the single source of field names.
func toBSON(id string, doc any) (bson.D, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", id, err)
	}
	var d bson.D
	if err := bson.UnmarshalExtJSON(data, false, &d); err != nil {
		return nil, fmt.Errorf("convert %s to bson: %w", id, err)
	}
	out := make(bson.D, 0, len(d)+1)
	out = append(out, bson.E{Key: "_id", Value: id})
	for _, e := range d {
		if e.Key != "_id" {
			out = append(out, e)
		}
	}
	return out, nil
}
