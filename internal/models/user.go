package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User model. PayPalEmail is the linked payout account for providers
// (instructors, hotel owners); empty means unlinked, and an unlinked
// provider is skipped by the payout engine, never failed.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName    string             `bson:"fullname" json:"fullname"`
	Email       string             `bson:"email" json:"email"`
	HPassword   string             `bson:"password" json:"-"`
	Role        Role               `bson:"role" json:"role"`
	PayPalEmail string             `bson:"paypalEmail,omitempty" json:"paypalEmail,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
