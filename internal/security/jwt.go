package security

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrInvalidSubject = errors.New("invalid token subject")
)

type AccessClaims struct {
	jwt.RegisteredClaims
}

// TokenResolver validates HS256 access tokens issued by the identity
// service and maps them to user ids.
type TokenResolver struct {
	secret    []byte
	issuer    string
	clockSkew time.Duration
}

func NewTokenResolver(secret, issuer string, clockSkew time.Duration) *TokenResolver {
	return &TokenResolver{
		secret:    []byte(secret),
		issuer:    issuer,
		clockSkew: clockSkew,
	}
}

// ResolveUserID parses and validates tokenStr and returns sub as an
// int64 user id.
func (r *TokenResolver) ResolveUserID(tokenStr string) (int64, error) {
	claims := &AccessClaims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(r.clockSkew),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	}, opts...)
	if err != nil {
		return 0, ErrInvalidToken
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}

	return SubjectAsUserID(claims)
}

// SubjectAsUserID парсит sub в int64.
func SubjectAsUserID(claims *AccessClaims) (int64, error) {
	if claims == nil || claims.Subject == "" {
		return 0, ErrInvalidSubject
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidSubject
	}

	return id, nil
}

// SignAccessToken выпускает JWT с sub=userID и exp=now+ttl. Основной
// issuer живёт в identity-сервисе; здесь — для локальной отладки и
// тестов.
func SignAccessToken(secret, issuer string, userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}
