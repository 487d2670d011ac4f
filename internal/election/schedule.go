package election

import (
	"time"

	"github.com/freesideatlanta/member-portal/internal/models"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

// ValidateSchedule enforces nominateStart <= nominateEnd <= voteStart <= voteEnd.
func ValidateSchedule(s models.Schedule) error {
	for _, t := range []time.Time{s.NominateStart, s.NominateEnd, s.VoteStart, s.VoteEnd} {
		if t.IsZero() {
			return appErrors.Clone(appErrors.ErrInvalidSchedule, "all four election dates are required")
		}
	}
	if s.NominateEnd.Before(s.NominateStart) || s.VoteStart.Before(s.NominateEnd) || s.VoteEnd.Before(s.VoteStart) {
		return appErrors.ErrInvalidSchedule
	}
	return nil
}

// Phase is where an election stands at a given instant.
type Phase string

const (
	PhaseUpcoming   Phase = "UPCOMING"
	PhaseNominating Phase = "NOMINATING"
	PhaseBetween    Phase = "BETWEEN"
	PhaseVoting     Phase = "VOTING"
	PhaseEnded      Phase = "ENDED"
)

// within is the open interval test used for both windows.
func within(start, end, now time.Time) bool {
	return start.Before(now) && now.Before(end)
}

// NominationOpen reports whether s accepts nominations at now.
func NominationOpen(s models.Schedule, now time.Time) bool {
	return within(s.NominateStart, s.NominateEnd, now)
}

// VotingOpen reports whether s accepts votes at now.
func VotingOpen(s models.Schedule, now time.Time) bool {
	return within(s.VoteStart, s.VoteEnd, now)
}

// Ended reports whether voting has closed at now.
func Ended(s models.Schedule, now time.Time) bool {
	return now.After(s.VoteEnd)
}

// PhaseAt classifies s at now.
func PhaseAt(s models.Schedule, now time.Time) Phase {
	switch {
	case NominationOpen(s, now):
		return PhaseNominating
	case VotingOpen(s, now):
		return PhaseVoting
	case Ended(s, now):
		return PhaseEnded
	case !now.After(s.NominateStart):
		return PhaseUpcoming
	default:
		return PhaseBetween
	}
}

// Board partitions elections by phase.
type Board struct {
	Nominating []*models.Election
	Voting     []*models.Election
	Ended      []*models.Election
}

// Partition sorts elections into the board at now. Elections that are not yet
// open, or sit between their two windows, are left out.
func Partition(elections []*models.Election, now time.Time) Board {
	var b Board
	for _, e := range elections {
		switch PhaseAt(e.Schedule, now) {
		case PhaseNominating:
			b.Nominating = append(b.Nominating, e)
		case PhaseVoting:
			b.Voting = append(b.Voting, e)
		case PhaseEnded:
			b.Ended = append(b.Ended, e)
		}
	}
	return b
}
