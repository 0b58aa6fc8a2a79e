package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// VerifyReason classifies why a session token failed verification.
type VerifyReason string

const (
	ReasonTampered  VerifyReason = "tampered"
	ReasonExpired   VerifyReason = "expired"
	ReasonMalformed VerifyReason = "malformed"
)

// VerifyError is returned by SessionCodec.Verify. All reasons mean "no session";
// the reason exists for observability.
type VerifyError struct {
	Reason VerifyReason
	Err    error
}

func (e *VerifyError) Error() string {
	if e.Err == nil {
		return "session token " + string(e.Reason)
	}
	return "session token " + string(e.Reason) + ": " + e.Err.Error()
}

func (e *VerifyError) Unwrap() error { return e.Err }

// ReasonOf returns the VerifyReason carried by err, or "" if err is not a *VerifyError.
func ReasonOf(err error) VerifyReason {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return ""
}

// SessionClaims holds JWT claims for the session cookie.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// Token is an issued session token.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Claims is the verified content of a session token.
type Claims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// SessionCodec issues and verifies signed, expiring session tokens. It signs
// with RS256 or ES256 when given a private key, or HS256 when given a secret.
type SessionCodec struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

// NewSessionCodec returns a codec signing with privateKey (RSA or ECDSA) and
// verifying with publicKey.
func NewSessionCodec(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer string, ttl time.Duration) (*SessionCodec, error) {
	var method jwt.SigningMethod
	switch privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return nil, ErrInvalidKey
	}
	if publicKey == nil {
		publicKey = privateKey.Public()
	}
	return &SessionCodec{method: method, signKey: privateKey, verifyKey: publicKey, issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// NewHMACSessionCodec returns a codec signing with HS256 over secret.
func NewHMACSessionCodec(secret []byte, issuer string, ttl time.Duration) (*SessionCodec, error) {
	if len(secret) < 32 {
		return nil, ErrInvalidKey
	}
	return &SessionCodec{method: jwt.SigningMethodHS256, signKey: secret, verifyKey: secret, issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens.
func (c *SessionCodec) TTL() time.Duration { return c.ttl }

// Issue returns a signed token for userID expiring after the codec TTL.
func (c *SessionCodec) Issue(userID string) (Token, error) {
	if userID == "" {
		return Token{}, errors.New("session: empty user id")
	}
	now := c.now().UTC()
	exp := now.Add(c.ttl)
	jti := uuid.New().String()
	claims := SessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        jti,
		Subject:   userID,
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.signKey)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, ID: jti, ExpiresAt: exp}, nil
}

// Verify checks signature, issuer and expiry. On failure it returns a *VerifyError.
func (c *SessionCodec) Verify(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, &VerifyError{Reason: ReasonMalformed}
	}
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return c.verifyKey, nil
	},
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Claims{}, classify(err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return Claims{}, &VerifyError{Reason: ReasonMalformed}
	}
	if claims.Subject == "" || claims.ID == "" {
		return Claims{}, &VerifyError{Reason: ReasonMalformed, Err: errors.New("missing subject or id")}
	}
	return Claims{UserID: claims.Subject, TokenID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func classify(err error) *VerifyError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &VerifyError{Reason: ReasonExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return &VerifyError{Reason: ReasonMalformed, Err: err}
	default:
		// bad signature, unexpected algorithm, wrong issuer, not-yet-valid
		return &VerifyError{Reason: ReasonTampered, Err: err}
	}
}
