package db

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/marcus/checkin/internal/events"
	"github.com/marcus/checkin/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Initialize(t.TempDir())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// seedRegform creates a server, event and regform and returns them.
func seedRegform(t *testing.T, database *DB) (*models.Event, *models.Regform) {
	t.Helper()
	ctx := context.Background()

	server := &models.Server{BaseURL: "https://indico.example.org", AuthToken: "tok"}
	if err := database.CreateServer(ctx, server); err != nil {
		t.Fatalf("CreateServer: %v", err)
	}
	event := &models.Event{IndicoID: 42, ServerID: server.ID, Title: "Conf",
		Date: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	if err := database.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	regform := &models.Regform{IndicoID: 7, EventID: event.ID, Title: "Registration"}
	if err := database.CreateRegform(ctx, regform); err != nil {
		t.Fatalf("CreateRegform: %v", err)
	}
	return event, regform
}

func addParticipants(t *testing.T, database *DB, ps ...models.Participant) []int64 {
	t.Helper()
	var ids []int64
	err := database.Transaction(context.Background(), []events.EntityType{events.EntityParticipants}, func(tx *Tx) error {
		var err error
		ids, err = tx.AddParticipants(ps)
		return err
	})
	if err != nil {
		t.Fatalf("AddParticipants: %v", err)
	}
	return ids
}

func TestInitializeSetsSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	database, err := Initialize(dir)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	v, err := database.GetSchemaVersion()
	if err != nil {
		t.Fatalf("GetSchemaVersion: %v", err)
	}
	if v != SchemaVersion {
		t.Errorf("version = %d, want %d", v, SchemaVersion)
	}
	database.Close()

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("Open after Initialize: %v", err)
	}
	defer reopened.Close()
	n, err := reopened.RunMigrations()
	if err != nil || n != 0 {
		t.Errorf("RunMigrations on current schema = %d, %v; want 0, nil", n, err)
	}
}

func TestOpenMissingDatabase(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("expected error opening missing database")
	}
}

func TestEventRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	event, _ := seedRegform(t, database)

	got, err := database.GetEvent(ctx, event.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got.Title != "Conf" || !got.Date.Equal(event.Date) || got.Deleted {
		t.Errorf("GetEvent = %+v", got)
	}

	found, err := database.FindEvent(ctx, event.ServerID, 42)
	if err != nil || found.ID != event.ID {
		t.Errorf("FindEvent = %+v, %v", found, err)
	}

	if _, err := database.GetEvent(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEvent(999) err = %v, want ErrNotFound", err)
	}
}

func TestListEventsHidesDeleted(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	event, _ := seedRegform(t, database)

	if err := database.Update(ctx, events.EntityEvents, event.ID, models.Fields{"deleted": true}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	live, err := database.ListEvents(ctx, false)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(live) != 0 {
		t.Errorf("live events = %d, want 0", len(live))
	}
	all, _ := database.ListEvents(ctx, true)
	if len(all) != 1 || !all[0].Deleted {
		t.Errorf("all events = %+v", all)
	}
}

func TestUpdateMissingRowIsNoop(t *testing.T) {
	database := newTestDB(t)

	calls := 0
	database.Subscribe(func(ChangeSet) { calls++ })

	err := database.Update(context.Background(), events.EntityRegforms, 12345, models.Fields{"title": "x"})
	if err != nil {
		t.Fatalf("Update missing row: %v", err)
	}
	if calls != 0 {
		t.Errorf("subscribers notified %d times for a no-op", calls)
	}
}

func TestUpdateRejectsUnknownColumns(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		table  events.EntityType
		fields models.Fields
	}{
		{"parent reference", events.EntityParticipants, models.Fields{"regform_id": 2}},
		{"primary key", events.EntityEvents, models.Fields{"id": 2}},
		{"injection", events.EntityRegforms, models.Fields{"title = 'x'; --": 1}},
		{"empty", events.EntityRegforms, models.Fields{}},
		{"unknown table", events.EntityType("issues"), models.Fields{"title": "x"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := database.Update(ctx, tc.table, 1, tc.fields); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParticipantRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	_, regform := seedRegform(t, database)

	checkedAt := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	data := json.RawMessage(`[{"id":1,"title":"Personal data","fields":[{"id":2,"title":"Email","data":"a@b.c"}]}]`)
	ids := addParticipants(t, database, models.Participant{
		IndicoID: 100, RegformID: regform.ID, FullName: "Ada Lovelace",
		RegistrationDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		RegistrationData: data, State: models.StateComplete, CheckinSecret: "s3cret",
		CheckedIn: true, CheckedInDt: &checkedAt, OccupiedSlots: 2, Price: 12.5,
		Currency: "EUR", FormattedPrice: "€12.50", IsPaid: true,
	})

	p, err := database.GetParticipant(ctx, ids[0])
	if err != nil {
		t.Fatalf("GetParticipant: %v", err)
	}
	if p.FullName != "Ada Lovelace" || p.State != models.StateComplete || !p.CheckedIn || !p.IsPaid {
		t.Errorf("participant = %+v", p)
	}
	if p.CheckedInDt == nil || !p.CheckedInDt.Equal(checkedAt) {
		t.Errorf("CheckedInDt = %v, want %v", p.CheckedInDt, checkedAt)
	}
	if p.OccupiedSlots != 2 || p.Price != 12.5 || p.Notes != "" {
		t.Errorf("slots/price/notes = %d/%v/%q", p.OccupiedSlots, p.Price, p.Notes)
	}
	sections, err := p.Sections()
	if err != nil || len(sections) != 1 || sections[0].Fields[0].Data != "a@b.c" {
		t.Errorf("Sections = %+v, %v", sections, err)
	}

	found, err := database.FindParticipant(ctx, regform.ID, 100)
	if err != nil || found.ID != ids[0] {
		t.Errorf("FindParticipant = %+v, %v", found, err)
	}
	bySecret, err := database.FindParticipantBySecret(ctx, "s3cret")
	if err != nil || bySecret.ID != ids[0] {
		t.Errorf("FindParticipantBySecret = %+v, %v", bySecret, err)
	}
}

func TestUpdateParticipantNotes(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	_, regform := seedRegform(t, database)
	ids := addParticipants(t, database, models.Participant{IndicoID: 1, RegformID: regform.ID, FullName: "A"})

	if err := database.UpdateParticipantNotes(ctx, ids[0], "vegetarian"); err != nil {
		t.Fatalf("UpdateParticipantNotes: %v", err)
	}
	p, _ := database.GetParticipant(ctx, ids[0])
	if p.Notes != "vegetarian" {
		t.Errorf("Notes = %q", p.Notes)
	}

	if err := database.UpdateParticipantNotes(ctx, 999, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("notes on missing participant err = %v, want ErrNotFound", err)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	_, regform := seedRegform(t, database)

	notified := false
	database.Subscribe(func(ChangeSet) { notified = true })

	boom := errors.New("boom")
	err := database.Transaction(ctx, []events.EntityType{events.EntityParticipants}, func(tx *Tx) error {
		if _, err := tx.AddParticipants([]models.Participant{{IndicoID: 1, RegformID: regform.ID}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction err = %v, want boom", err)
	}

	ps, _ := database.ListParticipants(ctx, regform.ID, true)
	if len(ps) != 0 {
		t.Errorf("participants after rollback = %d, want 0", len(ps))
	}
	if notified {
		t.Error("subscribers notified for a rolled back transaction")
	}
}

func TestTransactionScope(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	event, _ := seedRegform(t, database)

	err := database.Transaction(ctx, []events.EntityType{events.EntityParticipants}, func(tx *Tx) error {
		_, err := tx.RegformsByEvent(event.ID)
		return err
	})
	if err == nil || !strings.Contains(err.Error(), "scope") {
		t.Errorf("out of scope read err = %v", err)
	}

	if err := database.Transaction(ctx, nil, func(*Tx) error { return nil }); err == nil {
		t.Error("expected error for empty scope")
	}
}

func TestTransactionNotifiesOnceAfterCommit(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	_, regform := seedRegform(t, database)
	ids := addParticipants(t, database,
		models.Participant{IndicoID: 1, RegformID: regform.ID},
		models.Participant{IndicoID: 2, RegformID: regform.ID},
	)

	var got []ChangeSet
	unsubscribe := database.Subscribe(func(cs ChangeSet) { got = append(got, cs) })

	err := database.Transaction(ctx, []events.EntityType{events.EntityParticipants}, func(tx *Tx) error {
		return tx.BulkUpdate(events.EntityParticipants, []models.Change{
			{Key: ids[0], Fields: models.Fields{"deleted": true}},
			{Key: ids[1], Fields: models.Fields{"full_name": "B", "deleted": false}},
		})
	})
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(got))
	}
	cs := got[0]
	if !cs.Touches(events.EntityParticipants) || cs.Touches(events.EntityEvents) {
		t.Errorf("Touches wrong for %+v", cs)
	}
	if ids := cs.IDs(events.EntityParticipants); len(ids) != 2 {
		t.Errorf("IDs = %v", ids)
	}
	if cs.Rows[0].Action != events.ActionSoftDelete || cs.Rows[1].Action != events.ActionUpdate {
		t.Errorf("actions = %v, %v", cs.Rows[0].Action, cs.Rows[1].Action)
	}

	unsubscribe()
	database.NotifyExternal()
	if len(got) != 1 {
		t.Error("unsubscribed callback still called")
	}
}

func TestRegformsByEventIncludesDeleted(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	event, regform := seedRegform(t, database)

	if err := database.Update(ctx, events.EntityRegforms, regform.ID, models.Fields{"deleted": true}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	var got []models.Regform
	err := database.Transaction(ctx, []events.EntityType{events.EntityRegforms}, func(tx *Tx) error {
		var err error
		got, err = tx.RegformsByEvent(event.ID)
		return err
	})
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	if len(got) != 1 || !got[0].Deleted {
		t.Errorf("RegformsByEvent = %+v", got)
	}

	live, _ := database.ListRegforms(ctx, event.ID, false)
	if len(live) != 0 {
		t.Errorf("ListRegforms live = %+v", live)
	}
}

func TestExternalChangeSetTouchesEverything(t *testing.T) {
	cs := ChangeSet{External: true}
	for et := range events.AllEntityTypes() {
		if !cs.Touches(et) {
			t.Errorf("external change set should touch %s", et)
		}
	}
}
