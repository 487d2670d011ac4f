package election

import (
	"time"

	"github.com/freesideatlanta/member-portal/internal/models"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

func member(id string) *models.Person {
	return &models.Person{ID: id, Username: id, IsMember: true, Active: true}
}

func person(id string) *models.Person {
	return &models.Person{ID: id, Username: id, Active: true}
}

func nominatingElection(kind models.ElectionKind) *models.Election {
	return &models.Election{
		ID:       "e1",
		Kind:     kind,
		Position: "Treasurer",
		Version:  1,
		Schedule: models.Schedule{
			NominateStart: now.Add(-2 * day),
			NominateEnd:   now.Add(2 * day),
			VoteStart:     now.Add(4 * day),
			VoteEnd:       now.Add(6 * day),
		},
	}
}

func votingElection(nominees ...string) *models.Election {
	e := nominatingElection(models.ElectionKindOfficer)
	e.Schedule = models.Schedule{
		NominateStart: now.Add(-6 * day),
		NominateEnd:   now.Add(-4 * day),
		VoteStart:     now.Add(-2 * day),
		VoteEnd:       now.Add(2 * day),
	}
	e.Nominees = nominees
	return e
}
