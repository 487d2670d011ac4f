package election

import (
	"time"

	"github.com/freesideatlanta/member-portal/internal/models"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

// Nomination is one nomination attempt. Nominee and Actor are the resolved
// records for the ids, or nil when the id did not resolve.
type Nomination struct {
	NomineeID string
	Nominee   *models.Person
	ActorID   string
	Actor     *models.Person
}

// CheckNomination evaluates the nomination preconditions in order and returns
// the first failure.
func CheckNomination(e *models.Election, n Nomination, now time.Time) error {
	if !e.Persisted() {
		return appErrors.ErrInvalidElection
	}
	if n.Actor == nil || n.Actor.ID != n.ActorID || !IsActiveMember(n.Actor) {
		return appErrors.Clone(appErrors.ErrNotAuthorized, "only active members can nominate")
	}
	if n.NomineeID == n.ActorID {
		return appErrors.ErrSelfNomination
	}
	if e.HasNominee(n.NomineeID) {
		return appErrors.Clone(appErrors.ErrDuplicateNominee, nomineeLabel(n)+" has already been nominated for "+e.Position)
	}
	if e.HasNominator(n.ActorID) {
		return appErrors.ErrAlreadyNominated
	}
	if !NominationOpen(e.Schedule, now) {
		return appErrors.Clone(appErrors.ErrOutsideWindow, "election is not accepting nominations")
	}
	if !Eligible(e.Kind, CapabilitiesOf(n.Nominee)) {
		if e.Kind == models.ElectionKindOfficer {
			return appErrors.Clone(appErrors.ErrIneligibleNominee, "officers must be active members")
		}
		return appErrors.ErrIneligibleNominee
	}
	return nil
}

// ApplyNomination records a checked nomination and reshuffles the nominators.
func ApplyNomination(e *models.Election, n Nomination, shuffle Shuffler) {
	e.Nominees = append(e.Nominees, n.NomineeID)
	e.Nominators = append(e.Nominators, n.ActorID)
	shuffle(e.Nominators)
}

// Ballot is one vote attempt.
type Ballot struct {
	CandidateID string
	ActorID     string
	Actor       *models.Person
}

// CheckVote evaluates the vote preconditions in order and returns the first
// failure. Voter standing is checked last.
func CheckVote(e *models.Election, b Ballot, now time.Time) error {
	if !e.Persisted() {
		return appErrors.ErrInvalidElection
	}
	if !VotingOpen(e.Schedule, now) {
		return appErrors.Clone(appErrors.ErrOutsideWindow, "election is not accepting votes")
	}
	if !e.HasNominee(b.CandidateID) {
		return appErrors.ErrNotNominated
	}
	if e.HasVoter(b.ActorID) {
		return appErrors.ErrAlreadyVoted
	}
	if b.Actor == nil || b.Actor.ID != b.ActorID || !IsActiveMember(b.Actor) {
		return appErrors.Clone(appErrors.ErrNotAuthorized, "only active members can vote")
	}
	return nil
}

// ApplyVote records a checked ballot and reshuffles the voters.
func ApplyVote(e *models.Election, b Ballot, shuffle Shuffler) {
	e.Votes = append(e.Votes, b.CandidateID)
	e.Voters = append(e.Voters, b.ActorID)
	shuffle(e.Voters)
}

func nomineeLabel(n Nomination) string {
	if n.Nominee != nil && n.Nominee.Username != "" {
		return n.Nominee.Username
	}
	return "nominee"
}
