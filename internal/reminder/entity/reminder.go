package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ChannelSet selects delivery channels for a reminder. Stored as JSONB.
type ChannelSet struct {
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
	Email bool `json:"email"`
}

// DefaultChannels is what obligation reminders get: push only.
func DefaultChannels() ChannelSet {
	return ChannelSet{Push: true}
}

func (c ChannelSet) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *ChannelSet) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	case nil:
		*c = ChannelSet{}
		return nil
	default:
		return fmt.Errorf("unsupported channel set type %T", src)
	}
}

// Reminder represents a row in the `reminders` table. Obligation and
// account links are optional; deleting either leaves the reminder behind.
type Reminder struct {
	ID           int64      `db:"id"`
	UserID       int64      `db:"user_id"`
	ObligationID *int64     `db:"obligation_id"`
	AccountID    *int64     `db:"account_id"`
	Title        string     `db:"title"`
	Message      string     `db:"message"`
	RemindAt     time.Time  `db:"remind_at"`
	ChannelSet   ChannelSet `db:"channel_set"`
	IsSent       bool       `db:"is_sent"`
	CreatedAt    time.Time  `db:"created_at"`
}
