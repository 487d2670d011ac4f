package election

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/freesideatlanta/member-portal/internal/models"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

func TestValidateSchedule(t *testing.T) {
	ok := nominatingElection(models.ElectionKindOfficer).Schedule

	tests := []struct {
		name    string
		mutate  func(s *models.Schedule)
		wantErr bool
	}{
		{name: "ordered"},
		{name: "touching boundaries", mutate: func(s *models.Schedule) { s.NominateEnd = s.VoteStart; s.VoteEnd = s.VoteStart }},
		{name: "missing date", mutate: func(s *models.Schedule) { s.VoteStart = time.Time{} }, wantErr: true},
		{name: "nominations end before start", mutate: func(s *models.Schedule) { s.NominateEnd = s.NominateStart.Add(-day) }, wantErr: true},
		{name: "voting before nominations close", mutate: func(s *models.Schedule) { s.VoteStart = s.NominateEnd.Add(-day) }, wantErr: true},
		{name: "voting ends before it starts", mutate: func(s *models.Schedule) { s.VoteEnd = s.VoteStart.Add(-day) }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := ok
			if tc.mutate != nil {
				tc.mutate(&s)
			}
			err := ValidateSchedule(s)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, appErrors.ErrInvalidSchedule)
		})
	}
}

func TestPhaseAt(t *testing.T) {
	s := models.Schedule{
		NominateStart: now,
		NominateEnd:   now.Add(2 * day),
		VoteStart:     now.Add(4 * day),
		VoteEnd:       now.Add(6 * day),
	}

	assert.Equal(t, PhaseUpcoming, PhaseAt(s, now.Add(-day)))
	assert.Equal(t, PhaseUpcoming, PhaseAt(s, now))
	assert.Equal(t, PhaseNominating, PhaseAt(s, now.Add(day)))
	assert.Equal(t, PhaseBetween, PhaseAt(s, now.Add(2*day)))
	assert.Equal(t, PhaseBetween, PhaseAt(s, now.Add(3*day)))
	assert.Equal(t, PhaseVoting, PhaseAt(s, now.Add(5*day)))
	assert.Equal(t, PhaseBetween, PhaseAt(s, now.Add(6*day)))
	assert.Equal(t, PhaseEnded, PhaseAt(s, now.Add(7*day)))
}

func TestPartition(t *testing.T) {
	nominating := nominatingElection(models.ElectionKindBoard)
	voting := votingElection("b")
	ended := votingElection("b")
	ended.ID = "e3"
	ended.VoteStart = now.Add(-3 * day)
	ended.VoteEnd = now.Add(-day)
	upcoming := nominatingElection(models.ElectionKindBoard)
	upcoming.NominateStart = now.Add(day)

	board := Partition([]*models.Election{nominating, voting, ended, upcoming}, now)

	assert.Equal(t, []*models.Election{nominating}, board.Nominating)
	assert.Equal(t, []*models.Election{voting}, board.Voting)
	assert.Equal(t, []*models.Election{ended}, board.Ended)
}
