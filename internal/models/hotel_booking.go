package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type HotelBooking struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User               primitive.ObjectID `bson:"user" json:"user"`
	Hotel              primitive.ObjectID `bson:"hotel" json:"hotel"`
	Rooms              int                `bson:"rooms" json:"rooms"`
	CheckIn            time.Time          `bson:"checkIn" json:"checkIn"`
	CheckOut           time.Time          `bson:"checkOut" json:"checkOut"`
	Amount             float64            `bson:"amount" json:"amount"`
	Status             BookingStatus      `bson:"status" json:"status"`
	PaymentStatus      PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	PaymentOrderID     string             `bson:"paymentOrderId,omitempty" json:"paymentOrderId,omitempty"`
	TransactionID      string             `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	PaymentCompletedAt *time.Time         `bson:"paymentCompletedAt,omitempty" json:"paymentCompletedAt,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (b *HotelBooking) ToPayable() PayableBooking {
	p := PayableBooking{
		ID:          b.ID.Hex(),
		Kind:        KindHotel,
		UserID:      b.User.Hex(),
		Amount:      b.Amount,
		ProviderRef: b.Hotel.Hex(),
	}
	if b.PaymentCompletedAt != nil {
		p.PaymentCompletedAt = *b.PaymentCompletedAt
	}
	return p
}
