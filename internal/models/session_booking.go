package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionBooking covers instructor-led sessions and events.
type SessionBooking struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User               primitive.ObjectID `bson:"user" json:"user"`
	Session            primitive.ObjectID `bson:"session" json:"session"`
	Instructor         primitive.ObjectID `bson:"instructor" json:"instructor"`
	Participants       int                `bson:"participants" json:"participants"`
	Amount             float64            `bson:"amount" json:"amount"`
	Status             BookingStatus      `bson:"status" json:"status"`
	PaymentStatus      PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	PaymentOrderID     string             `bson:"paymentOrderId,omitempty" json:"paymentOrderId,omitempty"`
	TransactionID      string             `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	PaymentCompletedAt *time.Time         `bson:"paymentCompletedAt,omitempty" json:"paymentCompletedAt,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (b *SessionBooking) ToPayable() PayableBooking {
	p := PayableBooking{
		ID:          b.ID.Hex(),
		Kind:        KindSession,
		UserID:      b.User.Hex(),
		Amount:      b.Amount,
		ProviderRef: b.Instructor.Hex(),
	}
	if b.PaymentCompletedAt != nil {
		p.PaymentCompletedAt = *b.PaymentCompletedAt
	}
	return p
}
