package session

import (
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var tokenSigAlgs = []jose.SignatureAlgorithm{
	jose.HS256, jose.HS384, jose.HS512,
	jose.RS256, jose.RS384, jose.RS512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.EdDSA,
}

// AccessTokenExpiry returns the expiry of the persisted access token.
func (e *Engine) AccessTokenExpiry() (time.Time, bool) {
	return TokenExpiry(e.Token())
}

// TokenExpiry reads the exp claim of a JWT without verifying its
// signature. The result is informational only; opaque tokens and tokens
// without exp report false.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	parsed, err := jwt.ParseSigned(token, tokenSigAlgs)
	if err != nil {
		return time.Time{}, false
	}

	var claims jwt.Claims
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return time.Time{}, false
	}
	if claims.Expiry == nil {
		return time.Time{}, false
	}

	return claims.Expiry.Time(), true
}
