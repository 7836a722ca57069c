package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// CartItem is one class a user intends to buy. Adding the same class twice yields two items.
type CartItem struct {
	ID              primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Email           string             `json:"email" bson:"email"`
	ClassID         string             `json:"classId" bson:"classId" binding:"required"`
	Name            string             `json:"name" bson:"name"`
	Image           string             `json:"image,omitempty" bson:"image,omitempty"`
	Price           float64            `json:"price" bson:"price" binding:"gte=0"`
	InstructorName  string             `json:"instructorName,omitempty" bson:"instructorName,omitempty"`
	InstructorEmail string             `json:"instructorEmail,omitempty" bson:"instructorEmail,omitempty"`
}
