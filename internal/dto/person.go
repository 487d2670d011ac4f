package dto

import "time"

// CreatePersonRequest is the admin payload for adding someone to the directory.
type CreatePersonRequest struct {
	Username  string     `json:"username" validate:"required,min=2,max=64,printascii,excludesall=@"`
	Firstname string     `json:"firstname" validate:"required,max=100"`
	Lastname  string     `json:"lastname" validate:"required,max=100"`
	Email     string     `json:"email" validate:"required,email"`
	Password  string     `json:"password" validate:"required,min=8"`
	IsMember  bool       `json:"is_member"`
	Admin     bool       `json:"admin"`
	Starving  bool       `json:"starving"`
	RFID      *int64     `json:"rfid"`
	Joined    *time.Time `json:"joined"`
}

// UpdatePersonRequest carries optional profile changes. Members may change
// their own names, email and username; the remaining fields are admin only.
type UpdatePersonRequest struct {
	Username  *string `json:"username" validate:"omitempty,min=2,max=64,printascii,excludesall=@"`
	Firstname *string `json:"firstname" validate:"omitempty,max=100"`
	Lastname  *string `json:"lastname" validate:"omitempty,max=100"`
	Email     *string `json:"email" validate:"omitempty,email"`

	IsMember *bool  `json:"is_member"`
	Active   *bool  `json:"active"`
	Admin    *bool  `json:"admin"`
	Starving *bool  `json:"starving"`
	RFID     *int64 `json:"rfid"`
}

// AdminOnly reports whether the request touches fields reserved for admins.
func (r UpdatePersonRequest) AdminOnly() bool {
	return r.IsMember != nil || r.Active != nil || r.Admin != nil || r.Starving != nil || r.RFID != nil
}

// PasswordResetResponse acknowledges a reset. The new password is only sent
// to the member.
type PasswordResetResponse struct {
	PersonID string `json:"person_id"`
	JobID    string `json:"job_id"`
	SentTo   string `json:"sent_to"`
}
