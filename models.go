package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Name          string     `bun:"name,notnull" json:"name"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	Avatar        string     `bun:"avatar" json:"avatar"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"date,omitempty"`
}

// CurrentUser returns the identity exposed to protected routes
func (u *User) CurrentUser() CurrentUser {
	return CurrentUser{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
	}
}

// UserRecord is the registration response body
type UserRecord struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Avatar    string     `json:"avatar"`
	Password  string     `json:"password,omitempty"`
	CreatedAt *time.Time `json:"date,omitempty"`
}

// Record renders the user for the registration response. The password hash
// is only included when withHash is set, for clients that read it back.
func (u *User) Record(withHash bool) UserRecord {
	r := UserRecord{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
	if withHash {
		r.Password = u.PasswordHash
	}
	return r
}
