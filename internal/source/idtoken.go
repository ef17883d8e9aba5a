package source

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwksCacheTTL はGoogleの公開鍵セットのキャッシュ期間。
const jwksCacheTTL = 1 * time.Hour

// IDTokenClaims は検証済みIDトークンから取り出す本人情報。
type IDTokenClaims struct {
	Subject string
	Email   string
}

// IDTokenVerifier はIDトークンの署名・発行者・対象者を検証するインターフェース。
type IDTokenVerifier interface {
	// Verify はIDトークンを検証し、emailクレームを含む本人情報を返す。
	Verify(ctx context.Context, rawToken string) (*IDTokenClaims, error)
}

// GoogleIDTokenVerifier はGoogleのJWKSを用いてIDトークンをRS256で検証する。
// 公開鍵セットはキャッシュし、期限切れ時に再取得する。
type GoogleIDTokenVerifier struct {
	clientID string
	jwksURL  string

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey // kid -> 公開鍵
	fetchedAt time.Time
}

// NewGoogleIDTokenVerifier はGoogleIDTokenVerifierを生成する。
// jwksURLが空の場合はGoogleの本番エンドポイントを使用する。
func NewGoogleIDTokenVerifier(clientID, jwksURL string) *GoogleIDTokenVerifier {
	if jwksURL == "" {
		jwksURL = defaultGoogleJWKSURL
	}
	return &GoogleIDTokenVerifier{
		clientID: clientID,
		jwksURL:  jwksURL,
	}
}

// googleIDTokenClaims はGoogleのIDトークンのクレーム。
type googleIDTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Verify はIDトークンを検証する。
// RS256署名、発行者（accounts.google.com / https://accounts.google.com）、
// 対象者（client_id）、有効期限を確認し、emailクレームを返す。
func (v *GoogleIDTokenVerifier) Verify(ctx context.Context, rawToken string) (*IDTokenClaims, error) {
	var claims googleIDTokenClaims
	_, err := jwt.ParseWithClaims(rawToken, &claims, func(token *jwt.Token) (any, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("missing kid in token header")
		}
		return v.publicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id token: %w", err)
	}

	if claims.Issuer != "https://accounts.google.com" && claims.Issuer != "accounts.google.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("missing email claim in id token")
	}

	return &IDTokenClaims{
		Subject: claims.Subject,
		Email:   claims.Email,
	}, nil
}

// publicKey はkidに対応するRSA公開鍵を返す。
// キャッシュに無い、または期限切れの場合はJWKSを再取得する。
func (v *GoogleIDTokenVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if key, ok := v.keys[kid]; ok && time.Since(v.fetchedAt) < jwksCacheTTL {
		return key, nil
	}

	keys, err := v.fetchJWKS(ctx)
	if err != nil {
		return nil, err
	}
	v.keys = keys
	v.fetchedAt = time.Now()

	key, ok := v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no key found for kid %q", kid)
	}
	return key, nil
}

// jwksResponse はJWKSエンドポイントのレスポンス。
type jwksResponse struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// fetchJWKS はGoogleのJWKSを取得し、kidをキーとした公開鍵マップを構築する。
func (v *GoogleIDTokenVerifier) fetchJWKS(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create jwks request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jwks request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read jwks response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var jwks jwksResponse
	if err := json.Unmarshal(body, &jwks); err != nil {
		return nil, fmt.Errorf("failed to parse jwks response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		key, err := parseRSAPublicKey(k.N, k.E)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jwks key %q: %w", k.Kid, err)
		}
		keys[k.Kid] = key
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no usable RSA keys in jwks response")
	}
	return keys, nil
}

// parseRSAPublicKey はbase64urlエンコードされたmodulus/exponentからRSA公開鍵を構築する。
func parseRSAPublicKey(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}

	exponent := 0
	for _, b := range eBytes {
		exponent = exponent<<8 | int(b)
	}
	if exponent <= 0 {
		return nil, fmt.Errorf("invalid exponent value")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: exponent,
	}, nil
}

// compile-time interface check
var _ IDTokenVerifier = (*GoogleIDTokenVerifier)(nil)
