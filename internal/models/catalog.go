package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Catalog entities are owned by the CRUD side of the platform; the
// payment subsystem only reads them for pricing and provider
// resolution.

type Item struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Price       float64            `bson:"price" json:"price"`
	RentalPrice float64            `bson:"rentalPrice" json:"rentalPrice"`
}

type Hotel struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Owner         primitive.ObjectID `bson:"owner" json:"owner"`
	PricePerNight float64            `bson:"pricePerNight" json:"pricePerNight"`
}

type Session struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title      string             `bson:"title" json:"title"`
	Instructor primitive.ObjectID `bson:"instructor" json:"instructor"`
	Price      float64            `bson:"price" json:"price"`
}
