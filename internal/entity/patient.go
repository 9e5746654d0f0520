package entity

import "go.mongodb.org/mongo-driver/bson/primitive"

// Patient.DoctorID is checked for shape only; the doctor it names may not exist.
type Patient struct {
	ID          primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	FirstName   string              `json:"firstName" bson:"firstName" resource:"required"`
	LastName    string              `json:"lastName" bson:"lastName" resource:"required"`
	Age         float64             `json:"age" bson:"age" resource:"required"`
	PhoneNumber string              `json:"phoneNumber" bson:"phoneNumber" resource:"required"`
	DoctorID    *primitive.ObjectID `json:"doctorId" bson:"doctorId"`
	Ailment     string              `json:"ailment" bson:"ailment"`
	Address     string              `json:"address" bson:"address"`
}
