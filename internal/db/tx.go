package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marcus/checkin/internal/events"
	"github.com/marcus/checkin/internal/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is a write transaction scoped to a fixed set of tables.
type Tx struct {
	ctx     context.Context
	tx      *sql.Tx
	scope   map[events.EntityType]bool
	changes *ChangeSet
}

// Transaction runs fn inside a single write transaction over tables.
// Touching any other table from fn is an error. Either every write made by fn
// commits or none does; subscribers are notified once, after commit.
func (db *DB) Transaction(ctx context.Context, tables []events.EntityType, fn func(*Tx) error) error {
	if len(tables) == 0 {
		return fmt.Errorf("transaction: no tables in scope")
	}
	scope := make(map[events.EntityType]bool, len(tables))
	for _, t := range tables {
		if _, ok := writableColumns[t]; !ok {
			return fmt.Errorf("transaction: unknown table %q", t)
		}
		scope[t] = true
	}

	changes := newChangeSet()
	err := db.withWriteLock(func() error {
		sqlTx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		tx := &Tx{ctx: ctx, tx: sqlTx, scope: scope, changes: changes}
		if err := fn(tx); err != nil {
			sqlTx.Rollback()
			return err
		}
		if err := sqlTx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	db.publish(changes)
	return nil
}

func (t *Tx) check(table events.EntityType) error {
	if !t.scope[table] {
		return fmt.Errorf("table %s is not in transaction scope", table)
	}
	return nil
}

// RegformsByEvent returns every regform of an event, soft-deleted included,
// ordered by local ID.
func (t *Tx) RegformsByEvent(eventID int64) ([]models.Regform, error) {
	if err := t.check(events.EntityRegforms); err != nil {
		return nil, err
	}
	return queryRegforms(t.ctx, t.tx, "WHERE event_id = ? ORDER BY id", eventID)
}

// ParticipantsByRegform returns every participant of a regform, soft-deleted
// included, ordered by local ID.
func (t *Tx) ParticipantsByRegform(regformID int64) ([]models.Participant, error) {
	if err := t.check(events.EntityParticipants); err != nil {
		return nil, err
	}
	return queryParticipants(t.ctx, t.tx, "WHERE regform_id = ? ORDER BY id", regformID)
}

// Update writes fields to one row. A missing row is not an error.
func (t *Tx) Update(table events.EntityType, id int64, fields models.Fields) error {
	if err := t.check(table); err != nil {
		return err
	}
	query, args, err := buildUpdate(table, id, fields)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s/%d: %w", table, id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		t.changes.add(table, actionFor(fields), id)
	}
	return nil
}

// BulkUpdate applies each change in order.
func (t *Tx) BulkUpdate(table events.EntityType, changes []models.Change) error {
	for _, c := range changes {
		if err := t.Update(table, c.Key, c.Fields); err != nil {
			return err
		}
	}
	return nil
}

// AddRegforms inserts regforms and returns their new local IDs.
func (t *Tx) AddRegforms(regforms []models.Regform) ([]int64, error) {
	if err := t.check(events.EntityRegforms); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(regforms))
	for i := range regforms {
		id, err := insertRegform(t.ctx, t.tx, &regforms[i])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	t.changes.add(events.EntityRegforms, events.ActionInsert, ids...)
	return ids, nil
}

// AddParticipants inserts participants and returns their new local IDs.
func (t *Tx) AddParticipants(participants []models.Participant) ([]int64, error) {
	if err := t.check(events.EntityParticipants); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(participants))
	for i := range participants {
		id, err := insertParticipant(t.ctx, t.tx, &participants[i])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	t.changes.add(events.EntityParticipants, events.ActionInsert, ids...)
	return ids, nil
}
