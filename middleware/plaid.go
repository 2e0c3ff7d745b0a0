package middleware

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/plaid/plaid-go/v20/plaid"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/logger"
)

const maxWebhookAge = 5 * time.Minute

// KeyFetcher resolves a Plaid webhook verification key by id.
type KeyFetcher func(ctx context.Context, kid string) (plaid.JWKPublicKey, error)

// PlaidKeyFetcher asks the Plaid API for verification keys.
func PlaidKeyFetcher(client *plaid.APIClient) KeyFetcher {
	return func(ctx context.Context, kid string) (plaid.JWKPublicKey, error) {
		req := plaid.NewWebhookVerificationKeyGetRequest(kid)
		resp, _, err := client.PlaidApi.WebhookVerificationKeyGet(ctx).
			WebhookVerificationKeyGetRequest(*req).Execute()
		if err != nil {
			return plaid.JWKPublicKey{}, err
		}
		return resp.GetKey(), nil
	}
}

type plaidVerifier struct {
	fetch KeyFetcher
	mu    sync.Mutex
	keys  map[string]*ecdsa.PublicKey
}

// PlaidWebhookVerifier ensures incoming Plaid webhooks are authentic: an ES256
// Plaid-Verification JWT, signed by a Plaid key, issued recently, whose
// request_body_sha256 matches the body.
func PlaidWebhookVerifier(fetch KeyFetcher) gin.HandlerFunc {
	v := &plaidVerifier{fetch: fetch, keys: map[string]*ecdsa.PublicKey{}}
	return v.handle
}

func (v *plaidVerifier) handle(c *gin.Context) {
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.Get().Error("failed to read request body", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	tokenString := c.GetHeader("Plaid-Verification")
	if tokenString == "" {
		logger.Get().Error("missing Plaid-Verification header")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing Plaid-Verification header"})
		return
	}

	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		logger.Get().Error("failed to parse JWT", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid JWT"})
		return
	}
	if token.Method.Alg() != "ES256" {
		logger.Get().Error("unexpected JWT signing algorithm", zap.String("alg", token.Method.Alg()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unexpected signing algorithm"})
		return
	}
	kid, ok := token.Header["kid"].(string)
	if !ok || kid == "" {
		logger.Get().Error("missing kid in JWT header")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing key ID"})
		return
	}

	pubKey, err := v.key(c.Request.Context(), kid)
	if err != nil {
		logger.Get().Error("failed to fetch verification key", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Failed to fetch verification key"})
		return
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return pubKey, nil
	}, jwt.WithValidMethods([]string{"ES256"}), jwt.WithIssuedAt())
	if err != nil {
		logger.Get().Error("JWT verification failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid JWT signature"})
		return
	}
	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil || time.Since(iat.Time) > maxWebhookAge {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Stale webhook"})
		return
	}
	want, _ := claims["request_body_sha256"].(string)
	sum := sha256.Sum256(bodyBytes)
	if subtle.ConstantTimeCompare([]byte(want), []byte(hex.EncodeToString(sum[:]))) != 1 {
		logger.Get().Error("webhook body hash mismatch")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Body hash mismatch"})
		return
	}

	c.Next()
}

func (v *plaidVerifier) key(ctx context.Context, kid string) (*ecdsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if k, ok := v.keys[kid]; ok {
		return k, nil
	}
	jwk, err := v.fetch(ctx, kid)
	if err != nil {
		return nil, err
	}
	k, err := buildPublicKey(&jwk)
	if err != nil {
		return nil, err
	}
	v.keys[kid] = k
	return k, nil
}

// buildPublicKey constructs an ECDSA public key from a JWK
func buildPublicKey(jwk *plaid.JWKPublicKey) (*ecdsa.PublicKey, error) {
	xBytes, err := base64.RawURLEncoding.DecodeString(jwk.X)
	if err != nil {
		return nil, fmt.Errorf("invalid X coordinate: %w", err)
	}

	yBytes, err := base64.RawURLEncoding.DecodeString(jwk.Y)
	if err != nil {
		return nil, fmt.Errorf("invalid Y coordinate: %w", err)
	}

	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
