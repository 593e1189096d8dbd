package reconcile

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/marcus/checkin/internal/db"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/syncclient"
)

func participant(id, key int64, name, notes string) models.Participant {
	return models.Participant{ID: id, IndicoID: key, RegformID: 1, FullName: name, Notes: notes, State: models.StateComplete}
}

func remoteParticipant(key int64, name string) syncclient.ParticipantData {
	return syncclient.ParticipantData{
		ID:               key,
		FullName:         name,
		State:            models.StateComplete,
		RegistrationDate: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		RegistrationData: json.RawMessage(`[]`),
		Currency:         "EUR",
	}
}

func TestPlan_NewParticipantAppears(t *testing.T) {
	local := []models.Participant{participant(100, 1, "A", "vip"), participant(101, 2, "B", "")}
	remote := []syncclient.ParticipantData{remoteParticipant(1, "A"), remoteParticipant(2, "B"), remoteParticipant(3, "C")}

	in := Reconcile(local, remote, ParticipantRule(1))

	if len(in.SoftDeletes) != 0 {
		t.Errorf("SoftDeletes: got %d, want 0", len(in.SoftDeletes))
	}
	if len(in.Updates) != 2 {
		t.Errorf("Updates: got %d, want 2", len(in.Updates))
	}
	if len(in.Inserts) != 1 {
		t.Fatalf("Inserts: got %d, want 1", len(in.Inserts))
	}
	ins := in.Inserts[0]
	if ins.IndicoID != 3 || ins.FullName != "C" {
		t.Errorf("insert: got %+v", ins)
	}
	if ins.Notes != "" || ins.Deleted {
		t.Errorf("insert defaults: notes=%q deleted=%v", ins.Notes, ins.Deleted)
	}
	if ins.RegformID != 1 {
		t.Errorf("insert regform: got %d, want 1", ins.RegformID)
	}
	if ins.ID != 0 {
		t.Errorf("insert must not carry a local ID, got %d", ins.ID)
	}
}

func TestPlan_ParticipantRemovedUpstream(t *testing.T) {
	local := []models.Participant{participant(100, 1, "A", ""), participant(101, 2, "B", "late"), participant(102, 3, "C", "")}
	remote := []syncclient.ParticipantData{remoteParticipant(1, "A"), remoteParticipant(3, "C")}

	in := Reconcile(local, remote, ParticipantRule(1))

	if len(in.Inserts) != 0 {
		t.Errorf("Inserts: got %d, want 0", len(in.Inserts))
	}
	if len(in.SoftDeletes) != 1 {
		t.Fatalf("SoftDeletes: got %d, want 1", len(in.SoftDeletes))
	}
	del := in.SoftDeletes[0]
	if del.Key != 101 {
		t.Errorf("soft-delete key: got %d, want 101", del.Key)
	}
	if len(del.Fields) != 1 || del.Fields[db.ColumnDeleted] != true {
		t.Errorf("soft-delete must only set deleted, got %v", del.Fields)
	}

	if len(in.Updates) != 2 {
		t.Fatalf("Updates: got %d, want 2", len(in.Updates))
	}
	if in.Updates[0].Key != 100 || in.Updates[1].Key != 102 {
		t.Errorf("update keys: got %d, %d", in.Updates[0].Key, in.Updates[1].Key)
	}
}

func TestPlan_UpdatesNeverCarryLocalFields(t *testing.T) {
	local := []models.Participant{participant(100, 1, "A", "keep me")}
	remote := []syncclient.ParticipantData{remoteParticipant(1, "A renamed")}

	in := Reconcile(local, remote, ParticipantRule(1))
	if len(in.Updates) != 1 {
		t.Fatalf("Updates: got %d, want 1", len(in.Updates))
	}
	fields := in.Updates[0].Fields
	for _, col := range []string{"notes", "id", "regform_id"} {
		if _, ok := fields[col]; ok {
			t.Errorf("update payload must not contain %q", col)
		}
	}
	if fields["full_name"] != "A renamed" {
		t.Errorf("full_name: got %v", fields["full_name"])
	}
	if fields[db.ColumnDeleted] != false {
		t.Errorf("update must clear deleted, got %v", fields[db.ColumnDeleted])
	}
}

func TestPlan_RegformsAreNotInserted(t *testing.T) {
	local := []models.Regform{{ID: 5, IndicoID: 10, EventID: 2, Title: "Old"}}
	remote := []syncclient.RegformData{
		{ID: 10, Title: "Main", IsOpen: true, RegistrationCount: 4, CheckedInCount: 1},
		{ID: 11, Title: "Workshop"},
	}

	rule := RegformRule(2)
	in := Reconcile(local, remote, rule)
	if len(in.Inserts) != 0 {
		t.Errorf("regform inserts must be disabled, got %d", len(in.Inserts))
	}
	if len(in.Updates) != 1 || in.Updates[0].Fields["title"] != "Main" {
		t.Errorf("Updates: got %+v", in.Updates)
	}

	rule.AllowInsert = true
	in = Reconcile(local, remote, rule)
	if len(in.Inserts) != 1 {
		t.Fatalf("with AllowInsert, Inserts: got %d, want 1", len(in.Inserts))
	}
	if in.Inserts[0].EventID != 2 || in.Inserts[0].IndicoID != 11 {
		t.Errorf("regform insert: got %+v", in.Inserts[0])
	}
}

func TestPlan_NilProjection(t *testing.T) {
	rule := Rule[localItem, remoteItem]{
		LocalID: func(l localItem) int64 { return l.id },
		Project: func(remoteItem) models.Fields { return nil },
	}
	in := Reconcile([]localItem{{id: 1, key: 1}}, []remoteItem{{key: 1}}, rule)
	if len(in.Updates) != 1 || in.Updates[0].Fields[db.ColumnDeleted] != false {
		t.Errorf("nil projection should still clear deleted, got %+v", in.Updates)
	}
}

func TestInstructions_Empty(t *testing.T) {
	var in Instructions[models.Participant]
	if !in.Empty() {
		t.Error("zero instructions should be empty")
	}
	in.Updates = append(in.Updates, models.Change{Key: 1})
	if in.Empty() {
		t.Error("instructions with an update are not empty")
	}
}

func TestEventFields(t *testing.T) {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	f := EventFields(syncclient.EventData{ID: 3, Title: "Conf", StartDt: start})
	if f["indico_id"] != int64(3) || f["title"] != "Conf" || f["date"] != start {
		t.Errorf("EventFields: got %v", f)
	}
}
