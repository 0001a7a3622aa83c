package model

import "time"

// Payment statuses.
const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// PaymentMethodDefault is recorded when the client does not name a method.
const PaymentMethodDefault = "card"

// Payment is an immutable record of one payment attempt for a booking.
// A booking may accumulate several attempts but at most one of them
// reaches success.
//
// Fields:
//  ID            – primary key identifier.
//  BookingID     – booking being paid for.
//  UserID        – payer; nil for guests.
//  Amount        – amount in the smallest currency unit.
//  Method        – payment method tag (card, cash, wallet, ...).
//  Status        – pending, success or failed.
//  TransactionID – external transaction reference.
//  CreatedAt     – creation timestamp.
type Payment struct {
	ID            uint64    `db:"id" json:"id"`                                   // payments.id
	BookingID     uint64    `db:"booking_id" json:"booking_id"`                   // payments.booking_id
	UserID        *uint64   `db:"user_id" json:"user_id,omitempty"`               // payments.user_id (nullable)
	Amount        int64     `db:"amount" json:"amount"`                           // payments.amount
	Method        string    `db:"method" json:"method"`                           // payments.method
	Status        string    `db:"status" json:"status"`                           // payments.status
	TransactionID *string   `db:"transaction_id" json:"transaction_id,omitempty"` // payments.transaction_id (nullable)
	CreatedAt     time.Time `db:"created_at" json:"created_at"`                   // payments.created_at
}
