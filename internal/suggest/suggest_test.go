package suggest

import (
	"reflect"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"serve.addr", "serve.adr", 1},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		if got := distance(tt.a, tt.b); got != tt.want {
			t.Errorf("distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestClosest(t *testing.T) {
	keys := []string{"log.level", "log.format", "log.file", "sync.interval", "serve.addr"}

	if got := Closest("log.levle", keys); len(got) == 0 || got[0] != "log.level" {
		t.Errorf("Closest(log.levle) = %v, want log.level first", got)
	}
	if got := Closest("LOG.FILE", keys); len(got) == 0 || got[0] != "log.file" {
		t.Errorf("Closest ignored case badly: %v", got)
	}
	if got := Closest("qqq", keys); len(got) != 0 {
		t.Errorf("Closest(qqq) = %v, want none", got)
	}

	states := []string{"complete", "pending", "unpaid", "rejected", "withdrawn"}
	if got := Closest("complet", states); !reflect.DeepEqual(got, []string{"complete"}) {
		t.Errorf("Closest(complet) = %v", got)
	}
}

func TestHint(t *testing.T) {
	if got := Hint("unpayd", []string{"unpaid", "pending"}); got != " (did you mean unpaid?)" {
		t.Errorf("Hint = %q", got)
	}
	if got := Hint("zzz", []string{"unpaid"}); got != "" {
		t.Errorf("Hint with no match = %q", got)
	}
}
