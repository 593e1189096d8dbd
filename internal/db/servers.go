package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/marcus/checkin/internal/events"
	"github.com/marcus/checkin/internal/models"
)

// CreateServer stores a new server and sets its ID.
func (db *DB) CreateServer(ctx context.Context, s *models.Server) error {
	err := db.withWriteLock(func() error {
		res, err := db.conn.ExecContext(ctx,
			`INSERT INTO servers (base_url, client_id, scope, auth_token) VALUES (?, ?, ?, ?)`,
			s.BaseURL, s.ClientID, s.Scope, s.AuthToken)
		if err != nil {
			return fmt.Errorf("insert server: %w", err)
		}
		s.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return err
	}
	cs := newChangeSet()
	cs.add(events.EntityServers, events.ActionInsert, s.ID)
	db.publish(cs)
	return nil
}

// GetServer retrieves a server by local ID
func (db *DB) GetServer(ctx context.Context, id int64) (*models.Server, error) {
	var s models.Server
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, base_url, client_id, scope, auth_token FROM servers WHERE id = ?`, id,
	).Scan(&s.ID, &s.BaseURL, &s.ClientID, &s.Scope, &s.AuthToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("server %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get server %d: %w", id, err)
	}
	return &s, nil
}

// ListServers returns all servers ordered by ID
func (db *DB) ListServers(ctx context.Context) ([]models.Server, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, base_url, client_id, scope, auth_token FROM servers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	defer rows.Close()

	var servers []models.Server
	for rows.Next() {
		var s models.Server
		if err := rows.Scan(&s.ID, &s.BaseURL, &s.ClientID, &s.Scope, &s.AuthToken); err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	return servers, rows.Err()
}
