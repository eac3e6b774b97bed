package notification

import (
	"time"

	"github.com/trezcool/skripsi/core"
)

type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Link      string     `json:"link"` // frontend path, e.g. /proposals/<id>
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"` // UTC
	ReadAt    *time.Time `json:"read_at"`    // UTC
}

// New contains information needed to notify a user.
type New struct {
	UserID  string
	Title   string
	Message string
	Link    string
	Email   bool // also send by email when the recipient has one
}

func (n *New) clean() {
	n.Title = core.CleanString(n.Title)
	n.Message = core.CleanString(n.Message)
	n.Link = core.CleanString(n.Link)
}

type QueryFilter struct {
	UserID     string // always the requesting user, set after binding
	UnreadOnly bool   `query:"unread"`
	Limit      int    `query:"limit"`
}

func (qf *QueryFilter) Clean() {
	if qf.Limit <= 0 || qf.Limit > maxQueryLimit {
		qf.Limit = maxQueryLimit
	}
}
