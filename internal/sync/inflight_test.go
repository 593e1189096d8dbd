package sync

import (
	"context"
	"testing"
)

func TestInflightCancelsPrevious(t *testing.T) {
	f := newInflight()

	first, doneFirst := f.begin(context.Background(), opParticipant, 1)
	second, doneSecond := f.begin(context.Background(), opParticipant, 1)

	if first.Err() == nil {
		t.Error("first run should be cancelled when replaced")
	}
	if second.Err() != nil {
		t.Error("second run should be live")
	}

	// The replaced run finishing must not unregister its replacement.
	doneFirst()
	if f.size() != 1 {
		t.Errorf("size after stale done = %d, want 1", f.size())
	}
	doneSecond()
	if f.size() != 0 {
		t.Errorf("size after done = %d, want 0", f.size())
	}
}

func TestInflightKeysAreIndependent(t *testing.T) {
	f := newInflight()

	a, doneA := f.begin(context.Background(), opParticipant, 1)
	defer doneA()
	b, doneB := f.begin(context.Background(), opParticipant, 2)
	defer doneB()
	c, doneC := f.begin(context.Background(), opParticipants, 1)
	defer doneC()

	for i, ctx := range []context.Context{a, b, c} {
		if ctx.Err() != nil {
			t.Errorf("run %d cancelled by an unrelated key", i)
		}
	}
}
