package authkit

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService mints and validates the two token kinds. Access and refresh
// tokens are signed with independent secrets so a compromise of one never
// allows forgery of the other.
type TokenService interface {
	IssueAccessToken(user *User) (string, error)
	IssueRefreshToken(user *User) (string, time.Time, error)
	ValidateAccessToken(tokenString string) (*TokenClaims, error)
	ValidateRefreshToken(tokenString string) (*TokenClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewTokenService creates a new TokenService instance. Missing or shared
// signing secrets are a configuration error the host must treat as fatal.
func NewTokenService(cfg Config, logger Logger) (*TokenServiceImpl, error) {
	if logger == nil {
		logger = defLogger{}
	}

	accessKey := cfg.GetAccessSigningKey()
	refreshKey := cfg.GetRefreshSigningKey()

	if accessKey == "" || refreshKey == "" {
		return nil, errors.New("both access and refresh signing keys are required", errors.CategoryBadInput).
			WithTextCode(TextCodeBadConfig)
	}

	if accessKey == refreshKey {
		return nil, errors.New("access and refresh signing keys must be distinct", errors.CategoryBadInput).
			WithTextCode(TextCodeBadConfig)
	}

	return &TokenServiceImpl{
		accessKey:  []byte(accessKey),
		refreshKey: []byte(refreshKey),
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		issuer:     cfg.GetIssuer(),
		audience:   jwt.ClaimStrings(cfg.GetAudience()),
		logger:     logger,
	}, nil
}

// WithLogger replaces the service logger.
func (ts *TokenServiceImpl) WithLogger(logger Logger) *TokenServiceImpl {
	if logger != nil {
		ts.logger = logger
	}
	return ts
}

// IssueAccessToken mints a short-lived stateless token.
func (ts *TokenServiceImpl) IssueAccessToken(user *User) (string, error) {
	claims := ts.newClaims(user, ts.accessTTL)
	return ts.signClaims(claims, ts.accessKey)
}

// IssueRefreshToken mints a refresh token and returns the computed expiry
// so the caller can persist a matching record.
func (ts *TokenServiceImpl) IssueRefreshToken(user *User) (string, time.Time, error) {
	claims := ts.newClaims(user, ts.refreshTTL)

	signed, err := ts.signClaims(claims, ts.refreshKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, claims.RegisteredClaims.ExpiresAt.Time, nil
}

// ValidateAccessToken parses and validates an access token string.
func (ts *TokenServiceImpl) ValidateAccessToken(tokenString string) (*TokenClaims, error) {
	return ts.validate(tokenString, ts.accessKey)
}

// ValidateRefreshToken parses and validates a refresh token string. Callers
// still need to confirm a matching active record exists in storage.
func (ts *TokenServiceImpl) ValidateRefreshToken(tokenString string) (*TokenClaims, error) {
	return ts.validate(tokenString, ts.refreshKey)
}

func (ts *TokenServiceImpl) newClaims(user *User, ttl time.Duration) *TokenClaims {
	now := time.Now()

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   user.SubjectID(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:      user.ID,
		Email:    user.Email,
		UserRole: user.Role,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}

func (ts *TokenServiceImpl) signClaims(claims *TokenClaims, key []byte) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

func (ts *TokenServiceImpl) validate(tokenString string, key []byte) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(ErrTokenMalformed.Code)
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}
