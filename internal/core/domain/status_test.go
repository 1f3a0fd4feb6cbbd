package domain

import "testing"

func TestCanTransitionTo_HappyPath(t *testing.T) {
	path := []TrackingStatus{
		StatusOrderPlaced,
		StatusConfirmed,
		StatusPreparing,
		StatusReadyForPickup,
		StatusPickedUp,
		StatusOnTheWay,
		StatusArrived,
		StatusDelivered,
	}
	for i := 0; i < len(path)-1; i++ {
		if !path[i].CanTransitionTo(path[i+1]) {
			t.Errorf("%s -> %s should be allowed", path[i], path[i+1])
		}
	}
}

func TestCanTransitionTo_CancellableFromEveryNonTerminal(t *testing.T) {
	for _, s := range AllStatuses {
		if s.IsTerminal() {
			if s.CanTransitionTo(StatusCancelled) {
				t.Errorf("%s is terminal, cancel must be rejected", s)
			}
			continue
		}
		if !s.CanTransitionTo(StatusCancelled) {
			t.Errorf("%s -> cancelled should be allowed", s)
		}
	}
}

func TestCanTransitionTo_RejectsSkipsAndBackwards(t *testing.T) {
	cases := []struct {
		from, to TrackingStatus
	}{
		{StatusOrderPlaced, StatusPreparing},   // skip ahead
		{StatusOrderPlaced, StatusDelivered},   // skip to terminal
		{StatusConfirmed, StatusOrderPlaced},   // backwards
		{StatusArrived, StatusOnTheWay},        // backwards
		{StatusOnTheWay, StatusPickedUp},       // backwards
		{StatusDelivered, StatusOnTheWay},      // out of terminal
		{StatusCancelled, StatusOrderPlaced},   // out of terminal
		{StatusDelivered, StatusDelivered},     // self loop
		{StatusOnTheWay, StatusOnTheWay},       // self loop
		{StatusPreparing, StatusPickedUp},      // skip ahead
		{StatusOnTheWay, "teleported"},         // unknown target
		{"not_a_status", StatusConfirmed},      // unknown source
	}
	for _, tc := range cases {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestCanTransitionTo_MatchesTransitionTable(t *testing.T) {
	// Exhaustive all-pairs check against the table, so a future edit to the
	// table cannot silently disagree with CanTransitionTo.
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			want := false
			for _, allowed := range validTransitions[from] {
				if allowed == to {
					want = true
				}
			}
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestAvailableTransitions_ReturnsCopy(t *testing.T) {
	first := StatusOrderPlaced.AvailableTransitions()
	if len(first) != 2 {
		t.Fatalf("expected 2 transitions from order_placed, got %d", len(first))
	}
	first[0] = StatusDelivered

	second := StatusOrderPlaced.AvailableTransitions()
	if second[0] != StatusConfirmed {
		t.Fatalf("mutating the returned slice leaked into the table")
	}
}

func TestAvailableTransitions_TerminalEmpty(t *testing.T) {
	if n := len(StatusDelivered.AvailableTransitions()); n != 0 {
		t.Errorf("delivered should have no transitions, got %d", n)
	}
	if n := len(StatusCancelled.AvailableTransitions()); n != 0 {
		t.Errorf("cancelled should have no transitions, got %d", n)
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range AllStatuses {
		want := s == StatusDelivered || s == StatusCancelled
		if s.IsTerminal() != want {
			t.Errorf("IsTerminal(%s): got %v, want %v", s, s.IsTerminal(), want)
		}
	}
}

func TestIsValid(t *testing.T) {
	for _, s := range AllStatuses {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if TrackingStatus("in_transit").IsValid() {
		t.Error("in_transit is not a tracking status")
	}
	if TrackingStatus("").IsValid() {
		t.Error("empty status must be invalid")
	}
}

func TestDisplayNameAndDescription_CoverAllStatuses(t *testing.T) {
	for _, s := range AllStatuses {
		if s.DisplayName() == "Unknown" {
			t.Errorf("missing display name for %s", s)
		}
		if s.Description() == "Status unknown" {
			t.Errorf("missing description for %s", s)
		}
	}
}
