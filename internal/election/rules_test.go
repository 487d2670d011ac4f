package election

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freesideatlanta/member-portal/internal/models"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

func nominate(t *testing.T, e *models.Election, nominee, actor *models.Person) error {
	t.Helper()
	n := Nomination{NomineeID: nominee.ID, Nominee: nominee, ActorID: actor.ID, Actor: actor}
	if err := CheckNomination(e, n, now); err != nil {
		return err
	}
	ApplyNomination(e, n, Shuffle)
	return nil
}

func TestNominationScenario(t *testing.T) {
	e := nominatingElection(models.ElectionKindOfficer)
	a, b := member("a"), member("b")

	require.NoError(t, nominate(t, e, b, a))
	assert.Equal(t, []string{"b"}, e.Nominees)
	assert.Contains(t, e.Nominators, "a")

	assert.ErrorIs(t, nominate(t, e, b, a), appErrors.ErrDuplicateNominee)

	require.NoError(t, nominate(t, e, a, b))
	assert.Equal(t, []string{"b", "a"}, e.Nominees)
	assert.ElementsMatch(t, []string{"a", "b"}, e.Nominators)
}

func TestCheckNominationOrder(t *testing.T) {
	a, b, c := member("a"), member("b"), member("c")
	inactive := member("x")
	inactive.Active = false

	tests := []struct {
		name    string
		mutate  func(e *models.Election)
		nominee *models.Person
		actor   *models.Person
		want    *appErrors.Error
	}{
		{name: "unsaved election", mutate: func(e *models.Election) { e.ID = ""; e.Version = 0 }, nominee: b, actor: a, want: appErrors.ErrInvalidElection},
		{name: "inactive actor", nominee: b, actor: inactive, want: appErrors.ErrNotAuthorized},
		{name: "non-member actor", nominee: b, actor: person("p"), want: appErrors.ErrNotAuthorized},
		{name: "self nomination", nominee: a, actor: a, want: appErrors.ErrSelfNomination},
		{name: "self nomination outside window", mutate: closeNominations, nominee: a, actor: a, want: appErrors.ErrSelfNomination},
		{name: "duplicate nominee", mutate: func(e *models.Election) { e.Nominees = []string{"b"}; e.Nominators = []string{"c"} }, nominee: b, actor: a, want: appErrors.ErrDuplicateNominee},
		{name: "already nominated", mutate: func(e *models.Election) { e.Nominees = []string{"c"}; e.Nominators = []string{"a"} }, nominee: b, actor: a, want: appErrors.ErrAlreadyNominated},
		{name: "window closed", mutate: closeNominations, nominee: b, actor: a, want: appErrors.ErrOutsideWindow},
		{name: "not yet open", mutate: func(e *models.Election) { e.NominateStart = now.Add(day); e.NominateEnd = now.Add(2 * day) }, nominee: b, actor: a, want: appErrors.ErrOutsideWindow},
		{name: "non-member for officer", nominee: person("p"), actor: a, want: appErrors.ErrIneligibleNominee},
		{name: "ok", nominee: c, actor: a},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := nominatingElection(models.ElectionKindOfficer)
			if tc.mutate != nil {
				tc.mutate(e)
			}
			err := CheckNomination(e, Nomination{NomineeID: tc.nominee.ID, Nominee: tc.nominee, ActorID: tc.actor.ID, Actor: tc.actor}, now)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func closeNominations(e *models.Election) {
	e.NominateStart = now.Add(-4 * day)
	e.NominateEnd = now.Add(-2 * day)
}

func TestNominationWindowBoundsAreExclusive(t *testing.T) {
	a, b := member("a"), member("b")
	for _, at := range []struct {
		name string
		set  func(e *models.Election)
	}{
		{"at start", func(e *models.Election) { e.NominateStart = now }},
		{"at end", func(e *models.Election) { e.NominateEnd = now }},
	} {
		t.Run(at.name, func(t *testing.T) {
			e := nominatingElection(models.ElectionKindBoard)
			at.set(e)
			err := CheckNomination(e, Nomination{NomineeID: "b", Nominee: b, ActorID: "a", Actor: a}, now)
			assert.ErrorIs(t, err, appErrors.ErrOutsideWindow)
		})
	}
}

func TestBoardElectionAcceptsPlainPerson(t *testing.T) {
	a, p := member("a"), person("p")

	board := nominatingElection(models.ElectionKindBoard)
	assert.NoError(t, nominate(t, board, p, a))

	officer := nominatingElection(models.ElectionKindOfficer)
	assert.ErrorIs(t, nominate(t, officer, p, a), appErrors.ErrIneligibleNominee)
}

func TestBoardElectionAcceptsInactiveNominees(t *testing.T) {
	a := member("a")
	lapsed := member("lapsed")
	lapsed.Active = false
	former := person("former")
	former.Active = false

	board := nominatingElection(models.ElectionKindBoard)
	require.NoError(t, nominate(t, board, lapsed, a))
	require.NoError(t, nominate(t, board, former, member("b")))
	assert.Equal(t, []string{"lapsed", "former"}, board.Nominees)

	officer := nominatingElection(models.ElectionKindOfficer)
	assert.ErrorIs(t, nominate(t, officer, lapsed, a), appErrors.ErrIneligibleNominee)
}

func TestUnresolvedNomineeIsIneligible(t *testing.T) {
	e := nominatingElection(models.ElectionKindBoard)
	a := member("a")
	err := CheckNomination(e, Nomination{NomineeID: "ghost", ActorID: "a", Actor: a}, now)
	assert.ErrorIs(t, err, appErrors.ErrIneligibleNominee)
}

func TestApplyNominationShufflesNominators(t *testing.T) {
	e := nominatingElection(models.ElectionKindBoard)
	e.Nominees = []string{"x"}
	e.Nominators = []string{"y"}
	var shuffled []string
	ApplyNomination(e, Nomination{NomineeID: "b", ActorID: "a"}, func(ids []string) {
		shuffled = append([]string(nil), ids...)
		ids[0], ids[1] = ids[1], ids[0]
	})
	assert.Equal(t, []string{"y", "a"}, shuffled)
	assert.Equal(t, []string{"a", "y"}, e.Nominators)
	assert.Equal(t, []string{"x", "b"}, e.Nominees)
}

func TestCheckVoteOrder(t *testing.T) {
	a := member("a")
	inactive := member("a")
	inactive.Active = false

	tests := []struct {
		name      string
		election  *models.Election
		candidate string
		actor     *models.Person
		want      *appErrors.Error
	}{
		{name: "unsaved election", election: &models.Election{}, candidate: "b", actor: a, want: appErrors.ErrInvalidElection},
		{name: "during nominations", election: nominatingElection(models.ElectionKindOfficer), candidate: "b", actor: a, want: appErrors.ErrOutsideWindow},
		{name: "not nominated", election: votingElection("c"), candidate: "b", actor: a, want: appErrors.ErrNotNominated},
		{name: "already voted", election: withVoters(votingElection("b"), "a"), candidate: "b", actor: a, want: appErrors.ErrAlreadyVoted},
		{name: "inactive voter", election: votingElection("b"), candidate: "b", actor: inactive, want: appErrors.ErrNotAuthorized},
		{name: "unresolved voter", election: votingElection("b"), candidate: "b", want: appErrors.ErrNotAuthorized},
		{name: "ok", election: votingElection("b"), candidate: "b", actor: a},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckVote(tc.election, Ballot{CandidateID: tc.candidate, ActorID: "a", Actor: tc.actor}, now)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func withVoters(e *models.Election, voters ...string) *models.Election {
	e.Voters = voters
	e.Votes = make([]string, len(voters))
	return e
}

func TestVoteTwiceFails(t *testing.T) {
	e := votingElection("b", "c")
	a := member("a")
	ballot := Ballot{CandidateID: "b", ActorID: "a", Actor: a}

	require.NoError(t, CheckVote(e, ballot, now))
	ApplyVote(e, ballot, Shuffle)
	assert.Equal(t, []string{"b"}, e.Votes)
	assert.Equal(t, []string{"a"}, e.Voters)

	ballot.CandidateID = "c"
	assert.ErrorIs(t, CheckVote(e, ballot, now), appErrors.ErrAlreadyVoted)
}

func TestVotingClosedRegardlessOfOtherChecks(t *testing.T) {
	e := votingElection()
	e.VoteEnd = now.Add(-day)
	err := CheckVote(e, Ballot{CandidateID: "nobody", ActorID: "a"}, now)
	assert.ErrorIs(t, err, appErrors.ErrOutsideWindow)
}

func TestShuffleKeepsElements(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	Shuffle(ids)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, ids)
}
