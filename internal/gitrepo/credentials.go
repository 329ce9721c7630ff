package gitrepo

import (
	"log/slog"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Credentials holds upstream authentication in memory. Its String,
// GoString, and slog.LogValue implementations always render a redacted
// placeholder so a Credentials value can be embedded in a struct that gets
// logged without leaking the password.
type Credentials struct {
	Username string
	Password string
}

// Empty reports whether no credentials were configured, in which case the
// driver authenticates anonymously.
func (c Credentials) Empty() bool {
	return c.Username == "" && c.Password == ""
}

// AuthMethod adapts Credentials to go-git's transport.AuthMethod, or nil
// when empty (anonymous transport).
func (c Credentials) AuthMethod() transport.AuthMethod {
	if c.Empty() {
		return nil
	}
	return &http.BasicAuth{Username: c.Username, Password: c.Password}
}

func (c Credentials) String() string {
	return "[REDACTED]"
}

func (c Credentials) GoString() string {
	return "gitrepo.Credentials{[REDACTED]}"
}

// LogValue implements slog.LogValuer so credentials never appear in
// structured logs even when embedded in a logged struct.
func (c Credentials) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}
