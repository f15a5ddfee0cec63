package repository

import (
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// EnvGitToken holds a token used for HTTPS remotes
const EnvGitToken = "DOTVAULT_GIT_TOKEN"

// authFor picks credentials for url. SSH remotes use the running ssh-agent,
// HTTPS remotes use EnvGitToken when set. A nil result lets go-git fall
// back to its own discovery.
func authFor(url string, opts Options) transport.AuthMethod {
	if opts.Auth != nil {
		return opts.Auth
	}

	ep, err := transport.NewEndpoint(url)
	if err != nil {
		return nil
	}

	switch ep.Protocol {
	case "ssh":
		user := ep.User
		if user == "" {
			user = "git"
		}
		auth, err := ssh.NewSSHAgentAuth(user)
		if err != nil {
			return nil
		}
		return auth
	case "http", "https":
		token := os.Getenv(EnvGitToken)
		if token == "" {
			return nil
		}
		user := ep.User
		if user == "" {
			user = "x-access-token"
		}
		return &http.BasicAuth{Username: user, Password: token}
	default:
		return nil
	}
}
