package git

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// pushAuth builds the auth method for a push URL. Tokens only make sense over
// smart HTTP; other transports (local paths in tests, ssh) carry their own
// credentials.
func pushAuth(url, token string) transport.AuthMethod {
	if token == "" || !strings.HasPrefix(url, "http") {
		return nil
	}
	// GitHub/GitLab accept "token" as the basic-auth username.
	return &http.BasicAuth{Username: "token", Password: token}
}
