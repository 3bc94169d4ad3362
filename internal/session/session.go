// Package session describes the acting user as supplied by the host page.
package session

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates a session token that could not be parsed or verified.
var ErrInvalidToken = errors.New("invalid session token")

// Role is the acting user's type.
type Role string

const (
	RoleAnonymous Role = ""
	RoleStudent   Role = "student"
	RoleTeacher   Role = "teacher"
	RoleAdmin     Role = "admin"
)

// ParseRole normalizes a role name. Unknown names map to RoleAnonymous.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent
	case RoleTeacher:
		return RoleTeacher
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleAnonymous
	}
}

// Context is the session information a page hands to its components.
type Context struct {
	UserID string
	Role   Role
}

// EffectiveRole returns the explicit role when known, otherwise the role implied
// by the page path convention.
func (c Context) EffectiveRole(pageURL string) Role {
	if c.Role != RoleAnonymous {
		return c.Role
	}
	return RoleFromPath(pageURL)
}

// RoleFromPath applies the portal's path convention: pages under /student/,
// /teacher/ or /admin/ belong to that role. Anything else is anonymous.
func RoleFromPath(pageURL string) Role {
	path := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.ToLower(path)
	switch {
	case strings.Contains(path, "/student/"):
		return RoleStudent
	case strings.Contains(path, "/teacher/"):
		return RoleTeacher
	case strings.Contains(path, "/admin/"):
		return RoleAdmin
	default:
		return RoleAnonymous
	}
}

// Claims mirrors the portal's session token payload.
type Claims struct {
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// FromToken builds a Context from a portal session token. With an empty secret
// the signature is not checked: the role only selects which view URL to open and
// the portal enforces authorization on every page it serves.
func FromToken(tokenString, secret string) (Context, error) {
	claims := &Claims{}
	if secret == "" {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return Context{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	} else {
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return Context{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	role := claims.UserType
	if role == "" {
		role = claims.Role
	}
	return Context{UserID: userID, Role: ParseRole(role)}, nil
}

// New resolves the session from an explicit role and an optional token. The
// explicit role wins over the token's claim.
func New(role, token, secret string) (Context, error) {
	ctx := Context{}
	if token != "" {
		parsed, err := FromToken(token, secret)
		if err != nil {
			return Context{}, err
		}
		ctx = parsed
	}
	if explicit := ParseRole(role); explicit != RoleAnonymous {
		ctx.Role = explicit
	}
	return ctx, nil
}
