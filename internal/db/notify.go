package db

import (
	"log/slog"

	"github.com/marcus/checkin/internal/events"
)

// RowChange records one committed write.
type RowChange struct {
	Table  events.EntityType
	Action events.ActionType
	ID     int64
}

// ChangeSet is what subscribers receive after a write commits.
// External change sets come from another process writing the same database
// file, and carry no row detail.
type ChangeSet struct {
	Rows     []RowChange
	External bool
}

func newChangeSet() *ChangeSet { return &ChangeSet{} }

func (cs *ChangeSet) add(table events.EntityType, action events.ActionType, ids ...int64) {
	for _, id := range ids {
		cs.Rows = append(cs.Rows, RowChange{Table: table, Action: action, ID: id})
	}
}

// Touches reports whether the change set may affect table.
func (cs ChangeSet) Touches(table events.EntityType) bool {
	if cs.External {
		return true
	}
	for _, r := range cs.Rows {
		if r.Table == table {
			return true
		}
	}
	return false
}

// IDs returns the local IDs written in table, in write order.
func (cs ChangeSet) IDs(table events.EntityType) []int64 {
	var ids []int64
	for _, r := range cs.Rows {
		if r.Table == table {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// Subscribe registers fn to run after every committed write.
// fn runs on the writer's goroutine and must not write to the database.
// The returned func removes the subscription.
func (db *DB) Subscribe(fn func(ChangeSet)) (unsubscribe func()) {
	db.subMu.Lock()
	id := db.nextID
	db.nextID++
	db.subs[id] = fn
	db.subMu.Unlock()

	return func() {
		db.subMu.Lock()
		delete(db.subs, id)
		db.subMu.Unlock()
	}
}

// NotifyExternal tells subscribers the database file changed underneath them.
func (db *DB) NotifyExternal() {
	db.publish(&ChangeSet{External: true})
}

func (db *DB) publish(cs *ChangeSet) {
	if cs == nil || (len(cs.Rows) == 0 && !cs.External) {
		return
	}
	db.subMu.RLock()
	fns := make([]func(ChangeSet), 0, len(db.subs))
	for _, fn := range db.subs {
		fns = append(fns, fn)
	}
	db.subMu.RUnlock()

	slog.Debug("db: publish", "rows", len(cs.Rows), "external", cs.External, "subscribers", len(fns))
	for _, fn := range fns {
		fn(*cs)
	}
}
