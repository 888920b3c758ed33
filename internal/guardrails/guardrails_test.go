package guardrails

import "testing"

func TestSessionTripsOnMaxTurns(t *testing.T) {
	s := NewSession(Limits{MaxTurns: 2})
	if err := s.RecordTurn(); err != nil {
		t.Fatalf("unexpected trip on first turn: %v", err)
	}
	if err := s.RecordTurn(); err != nil {
		t.Fatalf("unexpected trip on second turn: %v", err)
	}
	if err := s.RecordTurn(); err == nil {
		t.Fatal("expected trip on third turn exceeding MaxTurns=2")
	}
	tripped, reason := s.Tripped()
	if !tripped || reason != TripMaxTurns {
		t.Fatalf("expected tripped=true reason=%s, got tripped=%v reason=%s", TripMaxTurns, tripped, reason)
	}
}

func TestSessionTripsOnConsecutiveErrors(t *testing.T) {
	s := NewSession(Limits{MaxConsecutiveErrors: 2})
	if err := s.RecordTurnResult(errTest); err != nil {
		t.Fatalf("unexpected trip on first error: %v", err)
	}
	if err := s.RecordTurnResult(errTest); err != nil {
		t.Fatalf("unexpected trip on second error: %v", err)
	}
	if err := s.RecordTurnResult(errTest); err == nil {
		t.Fatal("expected trip after exceeding MaxConsecutiveErrors=2")
	}
}

func TestSessionResetsConsecutiveErrorsOnSuccess(t *testing.T) {
	s := NewSession(Limits{MaxConsecutiveErrors: 2})
	_ = s.RecordTurnResult(errTest)
	_ = s.RecordTurnResult(nil)
	_ = s.RecordTurnResult(errTest)
	if err := s.RecordTurnResult(errTest); err != nil {
		t.Fatalf("expected no trip since success reset the counter, got: %v", err)
	}
}

func TestReset(t *testing.T) {
	s := NewSession(Limits{MaxTurns: 1})
	_ = s.RecordTurn()
	_ = s.RecordTurn()
	tripped, _ := s.Tripped()
	if !tripped {
		t.Fatal("expected session to be tripped before reset")
	}
	s.Reset()
	tripped, _ = s.Tripped()
	if tripped {
		t.Fatal("expected session not tripped after reset")
	}
	if err := s.RecordTurn(); err != nil {
		t.Fatalf("unexpected trip immediately after reset: %v", err)
	}
}

func TestToolSelectionPlausible(t *testing.T) {
	if !ToolSelectionPlausible("what's the weather in Boston", "get_weather") {
		t.Fatal("expected weather tool to be plausible for a weather question")
	}
	if ToolSelectionPlausible("play some music", "send_email") {
		t.Fatal("expected send_email to be implausible for a music request")
	}
}

var errTest = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
