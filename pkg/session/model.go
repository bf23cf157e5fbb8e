package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Status is the authentication state of a session.
type Status int

const (
	StatusUnauthenticated Status = iota // No valid credential
	StatusRestoring                     // Startup restoration in progress
	StatusAuthenticated                 // Credential and user present
)

func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusRestoring:
		return "restoring"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Session is the single source of truth for "is the caller logged in".
type Session struct {
	User   *User  // Profile of the authenticated user, nil otherwise
	Status Status // Current state of the lifecycle
}

// UserID is an identifier the credential service sends either as a JSON
// string or as a JSON number.
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("user id must be a string or a number")
	}
	*id = UserID(n.String())

	return nil
}

// User is the profile returned by the credential service.
type User struct {
	ID    UserID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Credential holds the tokens issued by the credential service.
type Credential struct {
	AccessToken  string // Short-lived token attached to authenticated requests
	RefreshToken string // Optional longer-lived token to mint new access tokens
}

// EndpointSet holds the route paths of the credential service. Me and
// Refresh are optional capabilities: Me enables server-verified
// restoration, Refresh enables silent renewal.
type EndpointSet struct {
	Login   string `yaml:"login" default:"/auth/login"`
	Signup  string `yaml:"signup" default:"/auth/signup"`
	Forgot  string `yaml:"forgot"`
	Me      string `yaml:"me"`
	Refresh string `yaml:"refresh"`
}

// Validate checks that the required endpoints are configured.
func (e EndpointSet) Validate() error {
	var missing []string
	if strings.TrimSpace(e.Login) == "" {
		missing = append(missing, "login")
	}
	if strings.TrimSpace(e.Signup) == "" {
		missing = append(missing, "signup")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing endpoints %s: %w", strings.Join(missing, ", "), ErrCapabilityMissing)
	}

	return nil
}

// Signup is the payload of a signup request.
type Signup struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type resetRequest struct {
	Email string `json:"email"`
}
