package reconcile

import (
	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/models"
)

// Rule describes how one entity kind is reconciled.
type Rule[L, R Keyed] struct {
	// LocalID returns the local store key of a record.
	LocalID func(L) int64
	// Project maps a remote payload to the remote-owned local columns.
	// Local-only columns must never appear in the result.
	Project func(R) models.Fields
	// AllowInsert controls whether remote-only records become inserts.
	AllowInsert bool
	// Insert builds a complete local record for a remote-only payload,
	// applying local defaults. Required when AllowInsert is set.
	Insert func(R) L
}

// Instructions are the writes needed to converge the local store.
// Apply them in field order: soft-deletes, inserts, updates.
type Instructions[L any] struct {
	SoftDeletes []models.Change
	Inserts     []L
	Updates     []models.Change
}

// Empty reports whether applying the instructions would write nothing.
func (in Instructions[L]) Empty() bool {
	return len(in.SoftDeletes) == 0 && len(in.Inserts) == 0 && len(in.Updates) == 0
}

// Plan turns a partition into instructions. Every update also clears the
// deleted flag, so a record that reappears upstream is resurrected.
func Plan[L, R Keyed](p Partition[L, R], rule Rule[L, R]) Instructions[L] {
	var in Instructions[L]

	for _, l := range p.OnlyLocal {
		in.SoftDeletes = append(in.SoftDeletes, models.Change{
			Key:    rule.LocalID(l),
			Fields: models.Fields{db.ColumnDeleted: true},
		})
	}

	if rule.AllowInsert && rule.Insert != nil {
		for _, r := range p.OnlyRemote {
			in.Inserts = append(in.Inserts, rule.Insert(r))
		}
	}

	for _, pair := range p.Pairs {
		fields := rule.Project(pair.Remote)
		if fields == nil {
			fields = models.Fields{}
		}
		fields[db.ColumnDeleted] = false
		in.Updates = append(in.Updates, models.Change{
			Key:    rule.LocalID(pair.Local),
			Fields: fields,
		})
	}

	return in
}

// Reconcile is Split followed by Plan.
func Reconcile[L, R Keyed](local []L, remote []R, rule Rule[L, R]) Instructions[L] {
	return Plan(Split(local, remote), rule)
}
