package election

import "github.com/freesideatlanta/member-portal/internal/models"

// IsActiveMember reports whether p carries the member capability and is active.
func IsActiveMember(p *models.Person) bool {
	return p != nil && p.IsMember && p.Active
}

// Capabilities is what the eligibility table needs to know about a nominee.
type Capabilities struct {
	Person bool
	Member bool
	Active bool
}

// CapabilitiesOf derives the capabilities of p. A nil person has none.
func CapabilitiesOf(p *models.Person) Capabilities {
	if p == nil {
		return Capabilities{}
	}
	return Capabilities{Person: true, Member: p.IsMember, Active: p.Active}
}

// Eligible maps an election kind and nominee capabilities to eligibility.
//
//	OFFICER: active member
//	BOARD:   any person, member or not, active or not
func Eligible(kind models.ElectionKind, c Capabilities) bool {
	switch kind {
	case models.ElectionKindOfficer:
		return c.Person && c.Member && c.Active
	case models.ElectionKindBoard:
		return c.Person
	default:
		return false
	}
}
