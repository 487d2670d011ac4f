package models

import (
	"slices"
	"time"
)

// ElectionKind controls which people may be nominated.
type ElectionKind string

const (
	ElectionKindOfficer ElectionKind = "OFFICER"
	ElectionKindBoard   ElectionKind = "BOARD"
)

// Valid reports whether k is a known kind.
func (k ElectionKind) Valid() bool {
	return k == ElectionKindOfficer || k == ElectionKindBoard
}

// Schedule holds the nomination and voting windows of an election.
type Schedule struct {
	NominateStart time.Time `db:"nominate_start" json:"nominate_start"`
	NominateEnd   time.Time `db:"nominate_end" json:"nominate_end"`
	VoteStart     time.Time `db:"vote_start" json:"vote_start"`
	VoteEnd       time.Time `db:"vote_end" json:"vote_end"`
}

// Election is one position's election cycle.
//
// Nominees keeps nomination order and is unique. Nominators and Voters are
// unique and reshuffled after every append. Votes holds one candidate id per
// ballot cast. Version increases on every write and guards concurrent updates.
type Election struct {
	ID          string       `json:"id"`
	Kind        ElectionKind `json:"kind"`
	Position    string       `json:"position"`
	Description string       `json:"description"`
	Schedule
	Nominees   []string  `json:"nominees"`
	Nominators []string  `json:"-"`
	Votes      []string  `json:"-"`
	Voters     []string  `json:"-"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Persisted reports whether the election has been stored.
func (e *Election) Persisted() bool {
	return e != nil && e.ID != "" && e.Version > 0
}

// HasNominee reports whether id is running in the election.
func (e *Election) HasNominee(id string) bool { return slices.Contains(e.Nominees, id) }

// HasNominator reports whether id already nominated someone.
func (e *Election) HasNominator(id string) bool { return slices.Contains(e.Nominators, id) }

// HasVoter reports whether id already voted.
func (e *Election) HasVoter(id string) bool { return slices.Contains(e.Voters, id) }

// Clone returns a deep copy so callers can mutate rolls without aliasing.
func (e *Election) Clone() *Election {
	c := *e
	c.Nominees = slices.Clone(e.Nominees)
	c.Nominators = slices.Clone(e.Nominators)
	c.Votes = slices.Clone(e.Votes)
	c.Voters = slices.Clone(e.Voters)
	return &c
}

// CandidateTally is the vote count of one candidate.
type CandidateTally struct {
	CandidateID string `json:"candidate_id"`
	Username    string `json:"username,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	Votes       int    `json:"votes"`
}

// Tally is the result of a closed election.
type Tally struct {
	ElectionID string           `json:"election_id"`
	Position   string           `json:"position"`
	Kind       ElectionKind     `json:"kind"`
	Results    []CandidateTally `json:"results"`
	TotalVotes int              `json:"total_votes"`
	ClosedAt   time.Time        `json:"closed_at"`
}
