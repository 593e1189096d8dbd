package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/marcus/checkin/internal/events"
	"github.com/marcus/checkin/internal/models"
)

const participantColumns = `id, indico_id, regform_id, full_name, registration_date, registration_data,
	state, checkin_secret, checked_in, checked_in_dt, occupied_slots, price, currency,
	formatted_price, is_paid, notes, deleted`

func scanParticipant(sc interface{ Scan(...any) error }) (models.Participant, error) {
	var (
		p                        models.Participant
		regDate, regData, state  string
		checkedInDt              sql.NullString
		checkedIn, paid, deleted int
	)
	err := sc.Scan(&p.ID, &p.IndicoID, &p.RegformID, &p.FullName, &regDate, &regData,
		&state, &p.CheckinSecret, &checkedIn, &checkedInDt, &p.OccupiedSlots, &p.Price,
		&p.Currency, &p.FormattedPrice, &paid, &p.Notes, &deleted)
	if err != nil {
		return p, err
	}

	if p.RegistrationDate, err = parseTimestamp(regDate); err != nil {
		return p, fmt.Errorf("participant %d registration date: %w", p.ID, err)
	}
	if checkedInDt.Valid && checkedInDt.String != "" {
		t, err := parseTimestamp(checkedInDt.String)
		if err != nil {
			return p, fmt.Errorf("participant %d checked-in time: %w", p.ID, err)
		}
		p.CheckedInDt = &t
	}
	if regData != "" {
		p.RegistrationData = json.RawMessage(regData)
	}
	p.State = models.ParticipantState(state)
	p.CheckedIn = checkedIn != 0
	p.IsPaid = paid != 0
	p.Deleted = deleted != 0
	return p, nil
}

func queryParticipants(ctx context.Context, q querier, where string, args ...any) ([]models.Participant, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+participantColumns+` FROM participants `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var out []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func insertParticipant(ctx context.Context, q querier, p *models.Participant) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO participants (indico_id, regform_id, full_name, registration_date, registration_data,
			state, checkin_secret, checked_in, checked_in_dt, occupied_slots, price, currency,
			formatted_price, is_paid, notes, deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.IndicoID, p.RegformID, p.FullName, formatTime(p.RegistrationDate),
		normalizeValue("registration_data", p.RegistrationData), string(p.State), p.CheckinSecret,
		boolToInt(p.CheckedIn), normalizeValue("checked_in_dt", p.CheckedInDt), p.OccupiedSlots,
		p.Price, p.Currency, p.FormattedPrice, boolToInt(p.IsPaid), p.Notes, boolToInt(p.Deleted))
	if err != nil {
		return 0, fmt.Errorf("insert participant %d: %w", p.IndicoID, err)
	}
	p.ID, err = res.LastInsertId()
	return p.ID, err
}

// GetParticipant retrieves a participant by local ID
func (db *DB) GetParticipant(ctx context.Context, id int64) (*models.Participant, error) {
	p, err := scanParticipant(db.conn.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("participant %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get participant %d: %w", id, err)
	}
	return &p, nil
}

// FindParticipant looks a participant up by its remote ID within a regform.
func (db *DB) FindParticipant(ctx context.Context, regformID, indicoID int64) (*models.Participant, error) {
	p, err := scanParticipant(db.conn.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE regform_id = ? AND indico_id = ?`,
		regformID, indicoID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("participant %d of regform %d: %w", indicoID, regformID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find participant: %w", err)
	}
	return &p, nil
}

// FindParticipantBySecret resolves a scanned ticket to a live participant.
func (db *DB) FindParticipantBySecret(ctx context.Context, secret string) (*models.Participant, error) {
	p, err := scanParticipant(db.conn.QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE checkin_secret = ? AND deleted = 0
		 ORDER BY id LIMIT 1`, secret))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find participant by secret: %w", err)
	}
	return &p, nil
}

// ListParticipants returns the participants of a regform sorted by name.
func (db *DB) ListParticipants(ctx context.Context, regformID int64, includeDeleted bool) ([]models.Participant, error) {
	where := `WHERE regform_id = ?`
	if !includeDeleted {
		where += ` AND deleted = 0`
	}
	return queryParticipants(ctx, db.conn, where+` ORDER BY full_name COLLATE NOCASE, id`, regformID)
}

// UpdateParticipantNotes replaces the local-only notes of a participant.
func (db *DB) UpdateParticipantNotes(ctx context.Context, id int64, notes string) error {
	if _, err := db.GetParticipant(ctx, id); err != nil {
		return err
	}
	return db.Update(ctx, events.EntityParticipants, id, models.Fields{"notes": notes})
}
