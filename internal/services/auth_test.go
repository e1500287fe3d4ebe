package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/stepwise-backend/internal/data/repos"
	"github.com/yungbote/stepwise-backend/internal/data/repos/testutil"
	"github.com/yungbote/stepwise-backend/internal/pkg/apierr"
	"github.com/yungbote/stepwise-backend/internal/pkg/ctxutil"
)

func newAuth(t *testing.T) (AuthService, *harness) {
	t.Helper()
	h := newHarness(t)
	log := testutil.Logger(t)
	dir := NewUserDirectory(log, repos.NewUserRepo(h.db, log), time.Minute)
	return NewAuthService(log, dir, "test-secret"), h
}

func TestAuthServiceRoundTrip(t *testing.T) {
	auth, h := newAuth(t)
	u := testutil.SeedUser(t, h.ctx, h.db, "premium@example.com", true)

	token, err := auth.IssueToken(u.ID, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	base := ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{Language: "en"})
	ctx, err := auth.SetContextFromToken(base, token)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != u.ID || !rd.IsPremium || rd.IsOperator || rd.Language != "en" {
		t.Fatalf("request data: %+v", rd)
	}
	if orig := ctxutil.GetRequestData(base); orig.UserID != uuid.Nil {
		t.Fatalf("parent request data was mutated: %+v", orig)
	}
}

func TestAuthServiceRejects(t *testing.T) {
	auth, h := newAuth(t)
	u := testutil.SeedUser(t, h.ctx, h.db, "plain@example.com", false)

	expired, err := auth.IssueToken(u.ID, -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	unknown, err := auth.IssueToken(uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   u.ID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: u.ID.String(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"expired":      expired,
		"unknown user": unknown,
		"wrong secret": foreign,
		"no expiry":    noExpiry,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := auth.SetContextFromToken(context.Background(), token); !apierr.IsKind(err, apierr.KindUnauthorized) {
				t.Fatalf("expected unauthorized, got %v", err)
			}
		})
	}
}

func TestUserDirectoryCachesLookups(t *testing.T) {
	h := newHarness(t)
	log := testutil.Logger(t)
	users := repos.NewUserRepo(h.db, log)
	dir := NewUserDirectory(log, users, time.Minute)
	u := testutil.SeedUser(t, h.ctx, h.db, "cached@example.com", false)

	got, err := dir.Lookup(h.ctx, u.ID)
	if err != nil || got.IsPremium {
		t.Fatalf("Lookup: %+v err=%v", got, err)
	}
	u.IsPremium = true
	if err := users.Upsert(h.dbc, u); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err = dir.Lookup(h.ctx, u.ID)
	if err != nil || got.IsPremium {
		t.Fatalf("expected cached record, got %+v err=%v", got, err)
	}

	fresh := NewUserDirectory(log, users, 0)
	got, err = fresh.Lookup(h.ctx, u.ID)
	if err != nil || !got.IsPremium {
		t.Fatalf("uncached Lookup: %+v err=%v", got, err)
	}
}
