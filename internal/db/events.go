package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/marcus/checkin/internal/events"
	"github.com/marcus/checkin/internal/models"
)

const eventColumns = `id, indico_id, server_id, title, date, deleted`

func scanEvent(sc interface{ Scan(...any) error }) (models.Event, error) {
	var (
		e       models.Event
		date    string
		deleted int
	)
	if err := sc.Scan(&e.ID, &e.IndicoID, &e.ServerID, &e.Title, &date, &deleted); err != nil {
		return e, err
	}
	t, err := parseTimestamp(date)
	if err != nil {
		return e, fmt.Errorf("event %d date: %w", e.ID, err)
	}
	e.Date = t
	e.Deleted = deleted != 0
	return e, nil
}

// CreateEvent stores a new event and sets its ID.
func (db *DB) CreateEvent(ctx context.Context, e *models.Event) error {
	err := db.withWriteLock(func() error {
		res, err := db.conn.ExecContext(ctx,
			`INSERT INTO events (indico_id, server_id, title, date, deleted) VALUES (?, ?, ?, ?, ?)`,
			e.IndicoID, e.ServerID, e.Title, formatTime(e.Date), boolToInt(e.Deleted))
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		e.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return err
	}
	cs := newChangeSet()
	cs.add(events.EntityEvents, events.ActionInsert, e.ID)
	db.publish(cs)
	return nil
}

// GetEvent retrieves an event by local ID
func (db *DB) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	e, err := scanEvent(db.conn.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return &e, nil
}

// FindEvent looks an event up by its remote ID on a server.
func (db *DB) FindEvent(ctx context.Context, serverID, indicoID int64) (*models.Event, error) {
	e, err := scanEvent(db.conn.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE server_id = ? AND indico_id = ?`, serverID, indicoID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %d on server %d: %w", indicoID, serverID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	return &e, nil
}

// ListEvents returns events ordered by date, newest first.
func (db *DB) ListEvents(ctx context.Context, includeDeleted bool) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	if !includeDeleted {
		query += ` WHERE deleted = 0`
	}
	query += ` ORDER BY date DESC, id`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
