package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
	"github.com/yungbote/stepwise-backend/internal/pkg/ctxutil"
	"github.com/yungbote/stepwise-backend/internal/pkg/logger"
)

// AuthService verifies bearer tokens minted by the identity service
// (HS256, subject = user id) and attaches the caller to the context.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	// IssueToken mints a token for userID; used by tooling and tests.
	IssueToken(userID uuid.UUID, ttl time.Duration) (string, error)
}

type authService struct {
	log          *logger.Logger
	directory    UserDirectory
	jwtSecretKey []byte
}

func NewAuthService(log *logger.Logger, directory UserDirectory, jwtSecretKey string) AuthService {
	return &authService{
		log:          log.With("service", "AuthService"),
		directory:    directory,
		jwtSecretKey: []byte(jwtSecretKey),
	}
}

func unauthorized(msg string, cause error) error {
	return apierr.New(apierr.KindUnauthorized, "auth.Verify", msg, cause)
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return as.jwtSecretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ctx, unauthorized("token expired", err)
		}
		return ctx, unauthorized("invalid token", err)
	}
	if !token.Valid {
		return ctx, unauthorized("invalid token", nil)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, unauthorized("invalid token subject", err)
	}
	u, err := as.directory.Lookup(ctx, userID)
	if err != nil {
		return ctx, err
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil {
		rd = &ctxutil.RequestData{}
	} else {
		cp := *rd
		rd = &cp
	}
	rd.UserID = u.ID
	rd.IsPremium = u.IsPremium
	rd.IsOperator = u.IsOperator
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (as *authService) IssueToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(as.jwtSecretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
