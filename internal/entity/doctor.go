package entity

import "go.mongodb.org/mongo-driver/bson/primitive"

type Doctor struct {
	ID             primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name           string             `json:"name" bson:"name" resource:"required"`
	Specialization string             `json:"specialization" bson:"specialization" resource:"required"`
	PhoneNumber    string             `json:"phoneNumber" bson:"phoneNumber" resource:"required"`
	Department     string             `json:"department" bson:"department"`
}
