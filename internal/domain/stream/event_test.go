package stream

import "testing"

func TestAnswer_DeltasThenDone(t *testing.T) {
	var a Answer
	for _, e := range []Event{Delta("Hel"), Delta("lo"), Done()} {
		if !a.Apply(e) {
			t.Fatalf("event %+v rejected", e)
		}
	}
	if a.Text() != "Hello" {
		t.Errorf("Text() = %q, want Hello", a.Text())
	}
	if !a.Complete() || a.Incomplete() {
		t.Errorf("expected complete answer")
	}
}

func TestAnswer_ErrorMarksIncomplete(t *testing.T) {
	var a Answer
	a.Apply(Delta("partial"))
	a.Apply(Error("generation timed out"))

	if a.Complete() || !a.Incomplete() {
		t.Error("expected incomplete answer")
	}
	if a.Text() != "partial" {
		t.Errorf("partial deltas must be kept, got %q", a.Text())
	}
	if a.Reason() != "generation timed out" {
		t.Errorf("Reason() = %q", a.Reason())
	}
}

func TestAnswer_IgnoresAfterTerminal(t *testing.T) {
	var a Answer
	a.Apply(Done())
	if a.Apply(Delta("late")) {
		t.Error("delta after terminal must be rejected")
	}
	if a.Apply(Error("late")) {
		t.Error("second terminal must be rejected")
	}
	if a.Text() != "" || a.Incomplete() {
		t.Error("answer changed after terminal")
	}
}

func TestEvent_Terminal(t *testing.T) {
	if Delta("x").Terminal() {
		t.Error("delta is not terminal")
	}
	if !Done().Terminal() || !Error("r").Terminal() {
		t.Error("done and error are terminal")
	}
}
