package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PayoutStatus string

const (
	// PayoutQueued is written before the transfer call: a crash-safety
	// checkpoint. Queued rows count as covered so a later run never
	// re-pays their bookings; a queued row with no adapter response is
	// an operator reconciliation signal, never auto-healed.
	PayoutQueued  PayoutStatus = "QUEUED"
	PayoutSent    PayoutStatus = "SENT"
	PayoutSuccess PayoutStatus = "SUCCESS"
	PayoutFailed  PayoutStatus = "FAILED"
)

// Payout is one attempted transfer to one provider in one cycle.
// ItemID holds the comma-joined source booking ids; a booking id may
// appear in at most one non-FAILED payout, which is the sole
// de-duplication mechanism across runs.
type Payout struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User        string             `bson:"user" json:"user"`
	Amount      float64            `bson:"amount" json:"amount"`
	Currency    string             `bson:"currency" json:"currency"`
	Note        string             `bson:"note" json:"note"`
	BatchID     string             `bson:"batchId" json:"batchId"`
	ItemID      string             `bson:"itemId" json:"itemId"`
	Status      PayoutStatus       `bson:"status" json:"status"`
	RawResponse string             `bson:"rawResponse,omitempty" json:"rawResponse,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// BookingIDs splits the ItemID correlation key back into booking ids.
func (p *Payout) BookingIDs() []string {
	if p.ItemID == "" {
		return nil
	}
	return strings.Split(p.ItemID, ",")
}

func JoinBookingIDs(ids []string) string {
	return strings.Join(ids, ",")
}
