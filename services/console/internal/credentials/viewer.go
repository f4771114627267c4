package credentials

import (
	"context"
	"fmt"
	"strconv"

	"github.com/example/filmhive/internal/platform/auth"
)

// Viewer is who the current token says is looking. The zero value is an
// anonymous viewer.
type Viewer struct {
	UserID int64
	Role   string
}

func (v Viewer) SignedIn() bool { return v.UserID > 0 }

func (v Viewer) IsStaff() bool { return v.SignedIn() && auth.IsStaff(v.Role) }

// Resolver derives the Viewer from a Provider's token.
type Resolver struct {
	Provider Provider
	Verifier auth.JWTVerifier
}

// Viewer decodes the current token. No token gives an anonymous viewer; a
// token that cannot be decoded is an error.
func (r Resolver) Viewer(ctx context.Context) (Viewer, error) {
	if r.Provider == nil {
		return Viewer{}, nil
	}
	tok, err := r.Provider.Token(ctx)
	if err != nil {
		return Viewer{}, err
	}
	if tok == "" {
		return Viewer{}, nil
	}
	claims, err := r.Verifier.Inspect(tok)
	if err != nil {
		return Viewer{}, fmt.Errorf("decode token: %w", err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Viewer{}, fmt.Errorf("decode token: subject %q is not a user id", claims.Subject)
	}
	return Viewer{UserID: id, Role: claims.Role}, nil
}
