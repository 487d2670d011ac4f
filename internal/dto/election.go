package dto

import (
	"time"

	"github.com/freesideatlanta/member-portal/internal/models"
)

// CreateElectionRequest is the admin payload for opening a new election.
type CreateElectionRequest struct {
	Kind          models.ElectionKind `json:"kind" validate:"required,oneof=OFFICER BOARD"`
	Position      string              `json:"position" validate:"required,max=120"`
	Description   string              `json:"description" validate:"max=2000"`
	NominateStart time.Time           `json:"nominate_start" validate:"required"`
	NominateEnd   time.Time           `json:"nominate_end" validate:"required"`
	VoteStart     time.Time           `json:"vote_start" validate:"required"`
	VoteEnd       time.Time           `json:"vote_end" validate:"required"`
}

// Schedule returns the four dates as a schedule.
func (r CreateElectionRequest) Schedule() models.Schedule {
	return models.Schedule{
		NominateStart: r.NominateStart.UTC(),
		NominateEnd:   r.NominateEnd.UTC(),
		VoteStart:     r.VoteStart.UTC(),
		VoteEnd:       r.VoteEnd.UTC(),
	}
}

// NominateRequest names the person being nominated.
type NominateRequest struct {
	NomineeID string `json:"nominee_id" binding:"required"`
}

// VoteRequest names the candidate voted for.
type VoteRequest struct {
	CandidateID string `json:"candidate_id" binding:"required"`
}

// ElectionView is an election as shown to one viewer.
type ElectionView struct {
	ID           string                 `json:"id"`
	Kind         models.ElectionKind    `json:"kind"`
	Position     string                 `json:"position"`
	Description  string                 `json:"description"`
	Schedule     models.Schedule        `json:"schedule"`
	Phase        string                 `json:"phase"`
	Nominees     []models.PersonSummary `json:"nominees"`
	Eligible     []models.PersonSummary `json:"eligible,omitempty"`
	HasNominated bool                   `json:"has_nominated"`
	HasVoted     bool                   `json:"has_voted"`
	Tally        *models.Tally          `json:"tally,omitempty"`
}

// ElectionBoard groups the elections a member can act on or review.
type ElectionBoard struct {
	Nominating []ElectionView `json:"nominating"`
	Voting     []ElectionView `json:"voting"`
	Ended      []ElectionView `json:"ended"`
	AsOf       time.Time      `json:"as_of"`
}
