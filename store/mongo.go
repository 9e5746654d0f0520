package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoBackend serves collections from one MongoDB database.
type MongoBackend struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoBackend(client *mongo.Client, database string) *MongoBackend {
	return &MongoBackend{client: client, db: client.Database(database)}
}

func (b *MongoBackend) Collection(name string) Collection {
	return &mongoCollection{coll: b.db.Collection(name)}
}

func (b *MongoBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx, readpref.Primary())
}

func (b *MongoBackend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) ListAll(ctx context.Context) ([]Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: IDField, Value: 1}})
	cursor, err := c.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.coll.Name(), err)
	}
	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.coll.Name(), err)
	}

	docs := make([]Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, fromBSON(m))
	}
	return docs, nil
}

func (c *mongoCollection) FindByID(ctx context.Context, id string) (Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	var raw bson.M
	err = c.coll.FindOne(ctx, bson.M{IDField: oid}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", c.coll.Name(), id, err)
	}
	return fromBSON(raw), nil
}

func (c *mongoCollection) Insert(ctx context.Context, doc Document) (string, error) {
	res, err := c.coll.InsertOne(ctx, bson.M(doc))
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", c.coll.Name(), err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert %s: unexpected id type %T", c.coll.Name(), res.InsertedID)
	}
	return oid.Hex(), nil
}

func (c *mongoCollection) UpdateByID(ctx context.Context, id string, patch Document) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, ErrInvalidID
	}
	res, err := c.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M(patch)})
	if err != nil {
		return 0, fmt.Errorf("update %s/%s: %w", c.coll.Name(), id, err)
	}
	return res.MatchedCount, nil
}

func (c *mongoCollection) DeleteByID(ctx context.Context, id string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, ErrInvalidID
	}
	res, err := c.coll.DeleteOne(ctx, bson.M{IDField: oid})
	if err != nil {
		return 0, fmt.Errorf("delete %s/%s: %w", c.coll.Name(), id, err)
	}
	return res.DeletedCount, nil
}

// fromBSON converts driver values into plain Go values that encode cleanly as JSON.
func fromBSON(m bson.M) Document {
	doc := make(Document, len(m))
	for k, v := range m {
		doc[k] = fromBSONValue(v)
	}
	return doc
}

func fromBSONValue(v any) any {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case bson.M:
		return fromBSON(val)
	case primitive.D:
		m := make(bson.M, len(val))
		for _, e := range val {
			m[e.Key] = e.Value
		}
		return fromBSON(m)
	case primitive.A:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = fromBSONValue(e)
		}
		return out
	default:
		return v
	}
}
