package models

import (
	"strings"
	"time"
)

// Person is anyone the portal tracks: members and non-member board candidates.
// IsMember is a capability flag; eligibility rules read it instead of a type.
type Person struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Firstname    string     `db:"firstname" json:"firstname"`
	Lastname     string     `db:"lastname" json:"lastname"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	IsMember     bool       `db:"is_member" json:"is_member"`
	Active       bool       `db:"active" json:"active"`
	Admin        bool       `db:"admin" json:"admin"`
	Starving     bool       `db:"starving" json:"starving"`
	RFID         *int64     `db:"rfid" json:"rfid,omitempty"`
	Joined       *time.Time `db:"joined" json:"joined,omitempty"`
	Left         *time.Time `db:"left_on" json:"left,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name, falling back to the username.
func (p *Person) FullName() string {
	name := strings.TrimSpace(p.Firstname + " " + p.Lastname)
	if name == "" {
		return p.Username
	}
	return name
}

// PersonSummary is the public view of a person shown next to ballots and results.
type PersonSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	IsMember bool   `json:"is_member"`
}

// Summary returns the public view of p.
func (p *Person) Summary() PersonSummary {
	return PersonSummary{ID: p.ID, Username: p.Username, FullName: p.FullName(), IsMember: p.IsMember}
}

// PersonFilter captures filtering criteria for listing people.
type PersonFilter struct {
	Active   *bool
	Member   *bool
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
