package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTRoundTrip(t *testing.T) {
	InitJWT("test-secret")

	token, err := GenerateJWT("user-42", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	sub, err := ParseJWT(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sub != "user-42" {
		t.Fatalf("expected user-42, got %s", sub)
	}
}

func TestJWTRejectsExpiredAndForeign(t *testing.T) {
	InitJWT("test-secret")

	expired, _ := GenerateJWT("user-42", -time.Minute)
	if _, err := ParseJWT(expired); err == nil {
		t.Fatalf("expected expired token to fail")
	}

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, _ := foreign.SignedString([]byte("other-secret"))
	if _, err := ParseJWT(signed); err == nil {
		t.Fatalf("expected token with another secret to fail")
	}

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, _ = noSub.SignedString([]byte("test-secret"))
	if _, err := ParseJWT(signed); err != ErrNoSubject {
		t.Fatalf("expected ErrNoSubject, got %v", err)
	}

	if _, err := ParseJWT("garbage"); err == nil {
		t.Fatalf("expected garbage to fail")
	}
}
