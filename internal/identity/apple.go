package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"sync"
	"time"

	"triplog/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	appleJWKSURL = "https://appleid.apple.com/auth/keys"
	appleIssuer  = "https://appleid.apple.com"

	// Apple rotates keys rarely; a short cache avoids hammering the JWKS
	// endpoint on every login while still picking rotations up quickly.
	appleKeyCacheTTL = 1 * time.Hour
)

type appleJWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type appleJWKS struct {
	Keys []appleJWK `json:"keys"`
}

// AppleVerifier validates Sign in with Apple ID tokens. Unlike Google there is
// no tokeninfo endpoint, so we verify the RS256 signature locally against
// Apple's published JWKS.
type AppleVerifier struct {
	client   *resty.Client
	clientID string

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewAppleVerifier returns a verifier bound to the app's bundle ID.
func NewAppleVerifier(clientID string) *AppleVerifier {
	client := resty.New().
		SetBaseURL(appleJWKSURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2)
	return &AppleVerifier{client: client, clientID: clientID}
}

func (v *AppleVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, models.NewUnauthorizedError("Unexpected signing method on Apple token")
		}
		kid, _ := t.Header["kid"].(string)
		return v.keyForKid(ctx, kid)
	},
		jwt.WithIssuer(appleIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid Apple ID token")
	}

	if v.clientID != "" {
		aud, _ := claims.GetAudience()
		found := false
		for _, a := range aud {
			if a == v.clientID {
				found = true
				break
			}
		}
		if !found {
			return nil, models.NewUnauthorizedError("Apple token issued for a different client")
		}
	}

	sub, _ := claims.GetSubject()
	email, _ := claims["email"].(string)
	if sub == "" {
		return nil, models.NewUnauthorizedError("Apple token missing subject")
	}

	// Apple only sends the name on first authorization, and never in the ID
	// token itself, so Name stays empty here; the auth service falls back to
	// the email local part.
	return &Identity{
		Provider:   models.ProviderApple,
		ProviderID: sub,
		Email:      email,
	}, nil
}

// keyForKid returns the RSA key for the kid, refreshing the JWKS cache when
// the kid is unknown or the cache is stale.
func (v *AppleVerifier) keyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if key, ok := v.keys[kid]; ok && time.Since(v.fetchedAt) < appleKeyCacheTTL {
		return key, nil
	}

	var jwks appleJWKS
	resp, err := v.client.R().
		SetContext(ctx).
		SetResult(&jwks).
		Get("")
	if err != nil {
		return nil, models.NewUpstreamError("Apple JWKS fetch failed", err)
	}
	if resp.IsError() {
		return nil, models.NewUpstreamError("Apple JWKS fetch failed", nil)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := jwkToRSA(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	v.keys = keys
	v.fetchedAt = time.Now()

	key, ok := v.keys[kid]
	if !ok {
		return nil, models.NewUnauthorizedError("Apple token signed with unknown key")
	}
	return key, nil
}

func jwkToRSA(k appleJWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
