package models

import (
	"time"

	"gorm.io/gorm"
)

// Trade status values. Status is derived from the presence of an exit price,
// never set directly by callers.
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Trade represents one logged position in a user's journal.
//
// GrossPnl, Fees and NetPnl are derived from the entry/exit prices through the
// cost engine; they are recomputed in full on every create and update so that
// NetPnl == GrossPnl - Fees always holds for closed trades.
type Trade struct {
	gorm.Model
	UserID     uint    `gorm:"index;not null" json:"-"`
	Symbol     string  `gorm:"not null" json:"symbol"`
	Direction  string  `gorm:"not null" json:"direction"` // "LONG" or "SHORT"
	EntryPrice float64 `json:"entry_price"`
	// ExitPrice is nil while the position is open.
	ExitPrice *float64 `json:"exit_price"`
	Quantity  int      `gorm:"not null" json:"quantity"`
	// StopLoss is a display field only; it never feeds the P&L math.
	StopLoss  float64   `json:"stop_loss"`
	EntryDate time.Time `gorm:"index" json:"entry_date"`
	Status    string    `gorm:"index" json:"status"`
	GrossPnl  *float64  `json:"gross_pnl"`
	Fees      float64   `json:"fees"`
	NetPnl    float64   `json:"net_pnl"`
}
