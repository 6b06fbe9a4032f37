package auth

import (
	"strings"

	"mediagrab-be-server/src/lib/cerr"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// Verifier is the contract this backend expects from whatever token
// mechanism fronts it. The backend itself never mints tokens.
//
//counterfeiter:generate . Verifier
type Verifier interface {
	VerifyToken(token string) (userID string, err error)
}

var _ Verifier = StaticVerifier{}

// StaticVerifier resolves tokens against a fixed table handed in at
// startup ("token:user" pairs from the environment). Suitable for
// development and for deployments where an edge proxy issues the
// tokens.
type StaticVerifier struct {
	usersByToken map[string]string
}

func NewStaticVerifier(raw string) (StaticVerifier, error) {
	usersByToken := map[string]string{}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		chunks := strings.SplitN(pair, ":", 2)
		if len(chunks) != 2 || chunks[0] == "" || chunks[1] == "" {
			return StaticVerifier{}, cerr.Field("pair", pair).
				Error("API token entries must look like token:user")
		}

		usersByToken[chunks[0]] = chunks[1]
	}

	if len(usersByToken) == 0 {
		return StaticVerifier{}, cerr.Error("No API tokens configured")
	}

	return StaticVerifier{usersByToken: usersByToken}, nil
}

func (s StaticVerifier) VerifyToken(token string) (string, error) {
	userID, ok := s.usersByToken[token]
	if !ok {
		return "", cerr.Error("Unrecognized API token")
	}

	return userID, nil
}
