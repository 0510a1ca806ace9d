package models

import "time"

// Rating is the current score an account has given to an opaque item.
// There is at most one Rating per (AccountID, ItemID).
type Rating struct {
	AccountID  int64
	ItemID     int64
	Value      float64
	RecordedAt time.Time
}
