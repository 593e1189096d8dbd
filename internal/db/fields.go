package db

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/marcus/checkin/internal/events"
	"github.com/marcus/checkin/internal/models"
)

var validColumnName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// writableColumns lists the columns a partial update may touch per table.
// Primary keys and parent references are never rewritten.
var writableColumns = map[events.EntityType]map[string]bool{
	events.EntityServers: set("base_url", "client_id", "scope", "auth_token"),
	events.EntityEvents:  set("indico_id", "title", "date", "deleted"),
	events.EntityRegforms: set("indico_id", "title", "is_open", "registration_count",
		"checked_in_count", "deleted"),
	events.EntityParticipants: set("indico_id", "full_name", "registration_date",
		"registration_data", "state", "checkin_secret", "checked_in", "checked_in_dt",
		"occupied_slots", "price", "currency", "formatted_price", "is_paid", "notes", "deleted"),
}

func set(cols ...string) map[string]bool {
	m := make(map[string]bool, len(cols))
	for _, c := range cols {
		m[c] = true
	}
	return m
}

// buildUpdate renders an UPDATE for one row. Columns are sorted so the same
// fields always produce the same statement.
func buildUpdate(table events.EntityType, id int64, fields models.Fields) (string, []any, error) {
	allowed, ok := writableColumns[table]
	if !ok {
		return "", nil, fmt.Errorf("unknown table: %q", table)
	}
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("update %s/%d: no fields", table, id)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !validColumnName.MatchString(k) || !allowed[k] {
			return "", nil, fmt.Errorf("invalid column for %s: %q", table, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		sets[i] = k + " = ?"
		args = append(args, normalizeValue(k, fields[k]))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", "))
	return query, args, nil
}

// normalizeValue converts Go values to the representation stored in SQLite:
// times as RFC3339Nano UTC text, booleans as integers, JSON as text.
func normalizeValue(column string, v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case bool:
		return boolToInt(val)
	case time.Time:
		return formatTime(val)
	case *time.Time:
		if val == nil {
			return nil
		}
		return formatTime(*val)
	case json.RawMessage:
		if len(val) == 0 {
			return "[]"
		}
		return string(val)
	case models.ParticipantState:
		return string(val)
	case []any, map[string]any:
		data, err := json.Marshal(val)
		if err != nil {
			slog.Warn("normalize field", "field", column, "err", err)
			return "[]"
		}
		return string(data)
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimestamp accepts the formats SQLite and the remote API produce.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp: %q", s)
}

// actionFor classifies a partial update for change notifications.
func actionFor(fields models.Fields) events.ActionType {
	if d, ok := fields[ColumnDeleted].(bool); ok && d {
		return events.ActionSoftDelete
	}
	return events.ActionUpdate
}

// ColumnDeleted is the soft-delete flag present on every synced table.
const ColumnDeleted = "deleted"
