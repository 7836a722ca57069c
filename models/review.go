package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Review struct {
	ID      primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Name    string             `json:"name" bson:"name"`
	Image   string             `json:"image,omitempty" bson:"image,omitempty"`
	Rating  float64            `json:"rating" bson:"rating"`
	Details string             `json:"details" bson:"details"`
}
