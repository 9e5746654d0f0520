package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Appointment keeps the date and time as the caller wrote them.
type Appointment struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	AppointmentDate string             `json:"appointmentDate" bson:"appointmentDate" resource:"required"`
	AppointmentTime string             `json:"appointmentTime" bson:"appointmentTime" resource:"required"`
	Reason          string             `json:"reason" bson:"reason" resource:"required"`
	Status          string             `json:"status" bson:"status" resource:"required"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}
