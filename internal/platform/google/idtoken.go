package google

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// Identity is the subset of a Google ID token the app keeps.
type Identity struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

// IDTokenVerifier validates Google sign-in tokens against the OAuth client id.
type IDTokenVerifier struct {
	clientID string
}

func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{clientID: clientID}
}

func (v *IDTokenVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	payload, err := idtoken.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("validate google id token failed: %w", err)
	}
	return &Identity{
		Subject:   payload.Subject,
		Email:     claimString(payload.Claims, "email"),
		FirstName: claimString(payload.Claims, "given_name"),
		LastName:  claimString(payload.Claims, "family_name"),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return v
}
