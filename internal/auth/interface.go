package auth

import "loom/internal/domain/models"

// JWTVerifier validates bearer tokens from the external identity provider.
// The middleware stays agnostic to how verification happens.
type JWTVerifier interface {
	// VerifyToken validates a JWT and returns the parsed claims.
	// Returns an error if the token is invalid, expired, or mis-signed.
	VerifyToken(tokenString string) (*models.IdentityClaims, error)

	// Close releases any resources held by the verifier.
	Close() error
}
