package models

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    RoundStatus
		to      RoundStatus
		markers int
		want    bool
	}{
		{"lock", RoundParlay, RoundVideo, 0, true},
		{"parlay cannot skip to wheel", RoundParlay, RoundWheel, 0, false},
		{"end with markers goes to review", RoundVideo, RoundReview, 2, true},
		{"end without markers cannot review", RoundVideo, RoundReview, 0, false},
		{"end without markers goes to wheel", RoundVideo, RoundWheel, 0, true},
		{"end with markers cannot skip review", RoundVideo, RoundWheel, 1, false},
		{"review to wheel", RoundReview, RoundWheel, 0, true},
		{"review back to video", RoundReview, RoundVideo, 0, false},
		{"wheel to done", RoundWheel, RoundDone, 0, true},
		{"done is terminal", RoundDone, RoundParlay, 0, false},
		{"unknown source", RoundStatus("lobby"), RoundParlay, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanTransition(tt.from, tt.to, TransitionContext{UnreviewedMarkers: tt.markers})
			if got != tt.want {
				t.Errorf("CanTransition(%s, %s, %d) = %v, want %v", tt.from, tt.to, tt.markers, got, tt.want)
			}
		})
	}
}

func TestParseTwoPlayerMode(t *testing.T) {
	for _, s := range []string{"unanimous", "single_caller_verify", "judge_mode", "speed_call"} {
		if _, ok := ParseTwoPlayerMode(s); !ok {
			t.Errorf("expected %q to parse", s)
		}
	}
	if _, ok := ParseTwoPlayerMode("majority"); ok {
		t.Error("expected unknown mode to be rejected")
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Cat Jumps!", "cat jumps"},
		{"  cat   JUMPS  ", "cat jumps"},
		{"Someone's phone rings...", "someones phone rings"},
		{"dog\tbarks\n", "dog barks"},
		{"ÉCLAIR falls", "éclair falls"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeText(tt.input); got != tt.expected {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestCorrectVideoTime(t *testing.T) {
	if got := CorrectVideoTime(10, 400); got != 9.8 {
		t.Errorf("expected 9.8, got %v", got)
	}
	if got := CorrectVideoTime(0.1, 1000); got != 0 {
		t.Errorf("expected clamp to 0, got %v", got)
	}
}

func TestDefaultRoomSettings(t *testing.T) {
	s := DefaultRoomSettings()
	if s.TwoPlayerMode != ModeUnanimous {
		t.Errorf("expected unanimous default, got %s", s.TwoPlayerMode)
	}
	if s.PauseDuration().Seconds() != 3 {
		t.Errorf("expected 3s pause, got %v", s.PauseDuration())
	}
}

func TestRoomSettings_Validate(t *testing.T) {
	if err := DefaultRoomSettings().Validate(); err != nil {
		t.Fatalf("expected defaults to be valid, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*RoomSettings)
	}{
		{"threshold above one", func(s *RoomSettings) { s.ConsensusThreshold = 1.5 }},
		{"zero min votes", func(s *RoomSettings) { s.MinVotes = 0 }},
		{"negative pause", func(s *RoomSettings) { s.PauseSeconds = -1 }},
		{"zero window", func(s *RoomSettings) { s.VoteWindowSeconds = 0 }},
		{"multiplier below one", func(s *RoomSettings) { s.ScoreMultiplier = 0.5 }},
		{"unknown mode", func(s *RoomSettings) { s.TwoPlayerMode = "coin_flip" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultRoomSettings()
			tt.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
