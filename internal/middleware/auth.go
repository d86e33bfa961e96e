package middleware

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
)

const (
	ClaimsKey = "claims"

	// GoogleCertsURL serves the x509 certificates that sign Firebase ID tokens.
	GoogleCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

	certsCacheKey = "certs"
)

// FirebaseClaims are the claims of a Firebase ID token.
type FirebaseClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Principal is how the caller is recorded on audit fields.
func (c *FirebaseClaims) Principal() string {
	if c.Email != "" {
		return c.Email
	}
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// TokenVerifier validates Firebase ID tokens against Google's rotating keys.
type TokenVerifier struct {
	projectID string
	certsURL  string
	client    *http.Client
	keys      *gocache.Cache
}

func NewTokenVerifier(projectID string) *TokenVerifier {
	return &TokenVerifier{
		projectID: projectID,
		certsURL:  GoogleCertsURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		keys:      gocache.New(time.Hour, 10*time.Minute),
	}
}

// WithCertsURL points the verifier at another key endpoint.
func (v *TokenVerifier) WithCertsURL(url string) *TokenVerifier {
	v.certsURL = url
	return v
}

// Verify parses and validates raw, returning its claims.
func (v *TokenVerifier) Verify(ctx context.Context, raw string) (*FirebaseClaims, error) {
	claims := &FirebaseClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token without kid")
		}
		keys, err := v.publicKeys(ctx)
		if err != nil {
			return nil, err
		}
		key, ok := keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown signing key %q", kid)
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token without subject")
	}
	return claims, nil
}

func (v *TokenVerifier) publicKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	if cached, ok := v.keys.Get(certsCacheKey); ok {
		return cached.(map[string]*rsa.PublicKey), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch signing keys: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch signing keys: status %d", resp.StatusCode)
	}

	var pems map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&pems); err != nil {
		return nil, fmt.Errorf("decode signing keys: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(pems))
	for kid, p := range pems {
		key, err := parseCertKey(p)
		if err != nil {
			log.Warn().Err(err).Str("kid", kid).Msg("auth: skipping signing key")
			continue
		}
		keys[kid] = key
	}

	v.keys.Set(certsCacheKey, keys, cacheTTL(resp.Header.Get("Cache-Control")))
	return keys, nil
}

func parseCertKey(p string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(p))
	if block == nil {
		return nil, errors.New("invalid PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("certificate key is not RSA")
	}
	return key, nil
}

// cacheTTL honours max-age from the key endpoint, defaulting to one hour.
func cacheTTL(header string) time.Duration {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return time.Hour
}

// FirebaseAuth checks the Bearer token. With required=false requests without
// a token pass through anonymously, but a bad token is still rejected.
func FirebaseAuth(v *TokenVerifier, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticação obrigatória"))
				return
			}
			c.Next()
			return
		}

		claims, err := v.Verify(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			log.Debug().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("auth: token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token inválido ou expirado"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// GetClaims returns the verified claims, or nil for anonymous requests.
func GetClaims(c *gin.Context) *FirebaseClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*FirebaseClaims)
	return claims
}

// Principal returns the caller recorded on movements, or "" when anonymous.
func Principal(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.Principal()
	}
	return ""
}
