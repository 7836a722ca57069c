package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type ClassStatus string

const (
	ClassPending  ClassStatus = "pending"
	ClassApproved ClassStatus = "approved"
	ClassDenied   ClassStatus = "denied"
)

type Class struct {
	ID              primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name" binding:"required"`
	Image           string             `json:"image" bson:"image"`
	InstructorName  string             `json:"instructorName" bson:"instructorName"`
	InstructorEmail string             `json:"instructorEmail" bson:"instructorEmail"`
	AvailableSeats  int                `json:"availableSeats" bson:"availableSeats" binding:"gte=0"`
	Enrolled        int                `json:"enrolled" bson:"enrolled"`
	Price           float64            `json:"price" bson:"price" binding:"gte=0"`
	Status          ClassStatus        `json:"status" bson:"status"`
	Feedback        string             `json:"feedback,omitempty" bson:"feedback,omitempty"`
}

// Capacity is the number of seats the class was offered with. Settlements keep it constant.
func (c *Class) Capacity() int {
	return c.AvailableSeats + c.Enrolled
}
