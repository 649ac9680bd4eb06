// Package staff manages workspace staff accounts and invites. An
// invite creates the account with a temporary password and emails the
// credentials to the new member.
package staff

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
)

// User is a staff account scoped to one workspace.
type User struct {
	ID                 uuid.UUID `json:"id"`
	WorkspaceID        uuid.UUID `json:"workspace_id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	PasswordHash       string    `json:"-"`
	Permissions        []string  `json:"permissions"`
	IsActive           bool      `json:"is_active"`
	MustChangePassword bool      `json:"must_change_password"`
	CreatedAt          time.Time `json:"created_at"`
}

// tempPasswordAlphabet avoids ambiguous characters since the password
// is read out of an email.
const tempPasswordAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789"

const tempPasswordLength = 12

// generateTempPassword returns a random one-time password for an
// invite.
func generateTempPassword() string {
	buf := make([]byte, tempPasswordLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in no state to mint
		// credentials at all.
		panic(err)
	}
	for i, b := range buf {
		buf[i] = tempPasswordAlphabet[int(b)%len(tempPasswordAlphabet)]
	}
	return string(buf)
}
