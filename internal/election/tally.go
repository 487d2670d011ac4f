package election

import (
	"sort"
	"time"

	"github.com/freesideatlanta/member-portal/internal/models"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

// Count tallies the votes of an election whose voting closed before now.
// Results are ordered by votes descending, then candidate id ascending.
func Count(e *models.Election, now time.Time) (*models.Tally, error) {
	if !e.Persisted() {
		return nil, appErrors.ErrInvalidElection
	}
	if !Ended(e.Schedule, now) {
		return nil, appErrors.Clone(appErrors.ErrOutsideWindow, "results are available once voting closes")
	}

	counts := make(map[string]int, len(e.Nominees))
	for _, candidateID := range e.Votes {
		counts[candidateID]++
	}

	results := make([]models.CandidateTally, 0, len(counts))
	for candidateID, votes := range counts {
		results = append(results, models.CandidateTally{CandidateID: candidateID, Votes: votes})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Votes != results[j].Votes {
			return results[i].Votes > results[j].Votes
		}
		return results[i].CandidateID < results[j].CandidateID
	})

	return &models.Tally{
		ElectionID: e.ID,
		Position:   e.Position,
		Kind:       e.Kind,
		Results:    results,
		TotalVotes: len(e.Votes),
		ClosedAt:   e.VoteEnd,
	}, nil
}
