package inmemdb

import (
	"sync"

	"github.com/trezcool/skripsi/core/notification"
	"github.com/trezcool/skripsi/core/thesis"
	"github.com/trezcool/skripsi/core/user"
)

type (
	// DB holds every table behind one lock, so cross-table reads (progress facts) are consistent.
	DB struct {
		mutex sync.RWMutex

		users         map[string]*user.User
		proposals     map[string]*thesis.Proposal
		guidance      map[string]*thesis.GuidanceSession
		seminars      map[string]*thesis.SeminarRequest
		documents     map[string]*thesis.SeminarDocument
		defenses      map[string]*thesis.DefenseRequest
		notifications map[string]*notification.Notification

		seq int64 // insertion order, for stable "latest" lookups
		ord map[string]int64
	}
)

func Open() *DB {
	return &DB{
		users:         make(map[string]*user.User),
		proposals:     make(map[string]*thesis.Proposal),
		guidance:      make(map[string]*thesis.GuidanceSession),
		seminars:      make(map[string]*thesis.SeminarRequest),
		documents:     make(map[string]*thesis.SeminarDocument),
		defenses:      make(map[string]*thesis.DefenseRequest),
		notifications: make(map[string]*notification.Notification),
		ord:           make(map[string]int64),
	}
}

// inserted records the insertion order of id; callers hold the write lock.
func (db *DB) inserted(id string) {
	db.seq++
	db.ord[id] = db.seq
}

// before reports whether id a was inserted before id b.
func (db *DB) before(a, b string) bool {
	return db.ord[a] < db.ord[b]
}
