package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookedItem struct {
	Item     primitive.ObjectID `bson:"item" json:"item"`
	Quantity int                `bson:"quantity" json:"quantity"`
	Purchase bool               `bson:"purchase" json:"purchase"`
}

type ItemBooking struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User               primitive.ObjectID `bson:"user" json:"user"`
	Items              []BookedItem       `bson:"items" json:"items"`
	StartDate          time.Time          `bson:"startDate" json:"startDate"`
	EndDate            time.Time          `bson:"endDate" json:"endDate"`
	Amount             float64            `bson:"amount" json:"amount"`
	Status             BookingStatus      `bson:"status" json:"status"`
	PaymentStatus      PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	PaymentOrderID     string             `bson:"paymentOrderId,omitempty" json:"paymentOrderId,omitempty"`
	TransactionID      string             `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	PaymentCompletedAt *time.Time         `bson:"paymentCompletedAt,omitempty" json:"paymentCompletedAt,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ToPayable returns the engine-facing view. Item bookings carry no
// provider: gear has no owning seller to pay out, so they are excluded
// from payout collection by construction.
func (b *ItemBooking) ToPayable() PayableBooking {
	p := PayableBooking{
		ID:     b.ID.Hex(),
		Kind:   KindItem,
		UserID: b.User.Hex(),
		Amount: b.Amount,
	}
	if b.PaymentCompletedAt != nil {
		p.PaymentCompletedAt = *b.PaymentCompletedAt
	}
	return p
}
