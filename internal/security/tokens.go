package security

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.NewStd("token is invalid or expired")

// Claims are the JWT claims issued by TokenIssuer. The subject holds the user ID.
type Claims struct {
	jwt.RegisteredClaims
	Type     TokenType `json:"token_type"`
	Username string    `json:"username,omitempty"`
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// TokenPair is the response body of the token endpoint.
type TokenPair struct {
	Access    string `json:"access"`
	Refresh   string `json:"refresh"`
	ExpiresIn int    `json:"expires_in"`
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer returns an issuer for secret. Zero lifetimes fall back to the defaults.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, errors.Newf("JWT secret must be at least %d characters", MinSecretLength).
			Component("security").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// AccessTTL returns the access token lifetime.
func (ti *TokenIssuer) AccessTTL() time.Duration { return ti.accessTTL }

// IssuePair signs a new access and refresh token for the user.
func (ti *TokenIssuer) IssuePair(userID uint, username string) (TokenPair, error) {
	access, err := ti.issue(userID, username, AccessToken, ti.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := ti.issue(userID, username, RefreshToken, ti.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh, ExpiresIn: int(ti.accessTTL.Seconds())}, nil
}

// IssueAccess signs a new access token.
func (ti *TokenIssuer) IssueAccess(userID uint, username string) (string, error) {
	return ti.issue(userID, username, AccessToken, ti.accessTTL)
}

func (ti *TokenIssuer) issue(userID uint, username string, typ TokenType, ttl time.Duration) (string, error) {
	now := ti.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    TokenIssuerName,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type:     typ,
		Username: username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", errors.New(err).
			Component("security").
			Category(errors.CategoryAuthentication).
			Context("operation", "sign_token").
			Build()
	}
	return signed, nil
}

// Parse verifies signature, lifetime, issuer and token type.
func (ti *TokenIssuer) Parse(token string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return ti.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuerName),
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		GetLogger().Debug("token rejected", logger.Error(err))
		return nil, ErrInvalidToken
	}
	if claims.Type != want {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
