// Package token は署名付きベアラートークンの発行と検証を提供する。
// トークンはユーザーIDと有効期限を内包し、検証はDB参照なしの
// 署名・期限チェックのみで完結する。
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims はトークンに含まれるクレーム。
// subにユーザーID、emailにメールアドレスを格納する。
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer はトークンを発行する。
// 発行能力が必要なのは認証サービスのみなので、検証とは型を分ける。
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer はIssuerを生成する。
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue はユーザーID・メールアドレスを内包するHS256署名トークンを発行する。
func (i *Issuer) Issue(userID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verifier はトークンを検証する。
// APIレイヤーにはこちらだけを注入する。
type Verifier struct {
	secret []byte
}

// NewVerifier はVerifierを生成する。
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify はトークンの署名と有効期限を検証し、ユーザーIDを返す。
// 失敗理由（署名不正・期限切れ・形式不正）は呼び出し側に区別させない。
func (v *Verifier) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("invalid token: missing subject")
	}

	return claims.Subject, nil
}
