package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/marcus/checkin/internal/events"
	"github.com/marcus/checkin/internal/models"
)

const regformColumns = `id, indico_id, event_id, title, is_open, registration_count, checked_in_count, deleted`

func scanRegform(sc interface{ Scan(...any) error }) (models.Regform, error) {
	var (
		r             models.Regform
		open, deleted int
	)
	err := sc.Scan(&r.ID, &r.IndicoID, &r.EventID, &r.Title, &open,
		&r.RegistrationCount, &r.CheckedInCount, &deleted)
	r.IsOpen = open != 0
	r.Deleted = deleted != 0
	return r, err
}

func queryRegforms(ctx context.Context, q querier, where string, args ...any) ([]models.Regform, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+regformColumns+` FROM regforms `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query regforms: %w", err)
	}
	defer rows.Close()

	var out []models.Regform
	for rows.Next() {
		r, err := scanRegform(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func insertRegform(ctx context.Context, q querier, r *models.Regform) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO regforms (indico_id, event_id, title, is_open, registration_count, checked_in_count, deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.IndicoID, r.EventID, r.Title, boolToInt(r.IsOpen), r.RegistrationCount, r.CheckedInCount,
		boolToInt(r.Deleted))
	if err != nil {
		return 0, fmt.Errorf("insert regform %d: %w", r.IndicoID, err)
	}
	r.ID, err = res.LastInsertId()
	return r.ID, err
}

// CreateRegform stores a regform the user added by hand and sets its ID.
func (db *DB) CreateRegform(ctx context.Context, r *models.Regform) error {
	return db.Transaction(ctx, []events.EntityType{events.EntityRegforms}, func(tx *Tx) error {
		ids, err := tx.AddRegforms([]models.Regform{*r})
		if err != nil {
			return err
		}
		r.ID = ids[0]
		return nil
	})
}

// GetRegform retrieves a regform by local ID
func (db *DB) GetRegform(ctx context.Context, id int64) (*models.Regform, error) {
	r, err := scanRegform(db.conn.QueryRowContext(ctx,
		`SELECT `+regformColumns+` FROM regforms WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("regform %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get regform %d: %w", id, err)
	}
	return &r, nil
}

// FindRegform looks a regform up by its remote ID within an event.
func (db *DB) FindRegform(ctx context.Context, eventID, indicoID int64) (*models.Regform, error) {
	r, err := scanRegform(db.conn.QueryRowContext(ctx,
		`SELECT `+regformColumns+` FROM regforms WHERE event_id = ? AND indico_id = ?`, eventID, indicoID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("regform %d of event %d: %w", indicoID, eventID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find regform: %w", err)
	}
	return &r, nil
}

// ListRegforms returns the regforms of an event ordered by local ID.
func (db *DB) ListRegforms(ctx context.Context, eventID int64, includeDeleted bool) ([]models.Regform, error) {
	where := `WHERE event_id = ?`
	if !includeDeleted {
		where += ` AND deleted = 0`
	}
	return queryRegforms(ctx, db.conn, where+` ORDER BY id`, eventID)
}
