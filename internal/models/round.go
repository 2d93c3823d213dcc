package models

// RoundStatus is the phase a round is in
type RoundStatus string

const (
	RoundParlay RoundStatus = "parlay"
	RoundVideo  RoundStatus = "video"
	RoundReview RoundStatus = "review"
	RoundWheel  RoundStatus = "wheel"
	RoundDone   RoundStatus = "done"
)

// Valid reports whether s is one of the known round phases
func (s RoundStatus) Valid() bool {
	switch s {
	case RoundParlay, RoundVideo, RoundReview, RoundWheel, RoundDone:
		return true
	}
	return false
}

// TransitionContext carries the facts a guarded transition depends on
type TransitionContext struct {
	UnreviewedMarkers int
}

// CanTransition reports whether a round may move from one phase to another.
// Leaving video goes to review only when markers are waiting and straight to
// wheel otherwise. Nothing leaves done.
func CanTransition(from, to RoundStatus, ctx TransitionContext) bool {
	switch from {
	case RoundParlay:
		return to == RoundVideo
	case RoundVideo:
		switch to {
		case RoundReview:
			return ctx.UnreviewedMarkers > 0
		case RoundWheel:
			return ctx.UnreviewedMarkers == 0
		}
		return false
	case RoundReview:
		return to == RoundWheel
	case RoundWheel:
		return to == RoundDone
	case RoundDone:
		return false
	}
	return false
}

// TwoPlayerMode selects the agreement rule used when exactly two players are in a room
type TwoPlayerMode string

const (
	ModeUnanimous          TwoPlayerMode = "unanimous"
	ModeSingleCallerVerify TwoPlayerMode = "single_caller_verify"
	ModeJudge              TwoPlayerMode = "judge_mode"
	ModeSpeedCall          TwoPlayerMode = "speed_call"
)

// Valid reports whether m is a known mode
func (m TwoPlayerMode) Valid() bool {
	switch m {
	case ModeUnanimous, ModeSingleCallerVerify, ModeJudge, ModeSpeedCall:
		return true
	}
	return false
}

// ParseTwoPlayerMode converts a configured string into a mode
func ParseTwoPlayerMode(s string) (TwoPlayerMode, bool) {
	m := TwoPlayerMode(s)
	return m, m.Valid()
}
