package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Department struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name" resource:"required"`
	Description string             `json:"description" bson:"description" resource:"required"`
	Floor       float64            `json:"floor" bson:"floor" resource:"required"`
	HeadDoctor  string             `json:"headDoctor" bson:"headDoctor" resource:"required"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}
