package domain

import "time"

// User is the authenticated handle produced by a SuccessNode.
type User struct {
	// Token is the session token, access token or authorization code,
	// whichever the server returned.
	Token string `json:"token"`

	// TokenType tells which of the above Token holds.
	TokenType string `json:"token_type"`

	SessionID string    `json:"session_id,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	IDToken   string    `json:"id_token,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`

	// Raw is the success document as received.
	Raw []byte `json:"raw,omitempty"`
}

// Token types.
const (
	TokenAuthorizationCode = "authorization_code"
	TokenAccess            = "access_token"
	TokenSession           = "session"
)

// Clone returns a copy safe to hand to callers.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Raw = append([]byte(nil), u.Raw...)
	return &c
}
