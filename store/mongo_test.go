package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFromBSON(t *testing.T) {
	oid := primitive.NewObjectID()
	created := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	doc := fromBSON(bson.M{
		IDField:     oid,
		"name":      "Radiology",
		"createdAt": primitive.NewDateTimeFromTime(created),
		"tags":      primitive.A{"x", primitive.NewDateTimeFromTime(created)},
		"contact":   bson.D{{Key: "phone", Value: "555"}},
		"nested":    bson.M{"floor": int32(2)},
	})

	assert.Equal(t, oid.Hex(), doc.ID())
	assert.Equal(t, created, doc["createdAt"])
	assert.Equal(t, []any{"x", created}, doc["tags"])

	contact, ok := doc["contact"].(Document)
	require.True(t, ok)
	assert.Equal(t, "555", contact["phone"])

	nested, ok := doc["nested"].(Document)
	require.True(t, ok)
	assert.Equal(t, int32(2), nested["floor"])
}
