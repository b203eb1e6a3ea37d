package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/models"
)

// GoogleCertsURL serves the x509 certificates that sign Firebase ID tokens.
const GoogleCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

const (
	defaultCertsTTL = time.Hour
	// minRefreshInterval bounds refetches triggered by an unknown kid.
	minRefreshInterval = time.Minute
)

type firebaseClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// FirebaseVerifier validates Firebase ID tokens (RS256) for one project.
type FirebaseVerifier struct {
	projectID string
	certsURL  string
	client    *http.Client
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expires   time.Time
	refreshed time.Time
}

// NewFirebaseVerifier creates a verifier for projectID. certsURL defaults to GoogleCertsURL.
func NewFirebaseVerifier(projectID, certsURL string, client *http.Client, logger *zap.Logger) *FirebaseVerifier {
	if certsURL == "" {
		certsURL = GoogleCertsURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FirebaseVerifier{
		projectID: projectID,
		certsURL:  certsURL,
		client:    client,
		logger:    logger,
		now:       time.Now,
	}
}

// Verify validates signature, audience, issuer, expiry and issued-at of an ID token.
func (v *FirebaseVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	var claims firebaseClaims
	token, err := jwt.ParseWithClaims(credential, &claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, models.ErrUpstream) {
			return nil, fmt.Errorf("verify id token: %w", err)
		}
		return nil, fmt.Errorf("verify id token: %v: %w", err, models.ErrUnauthenticated)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("verify id token: empty subject: %w", models.ErrUnauthenticated)
	}
	return &Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

// key returns the public key for kid, refreshing the certificate set when it is stale or lacks kid.
// A missing kid refetches at most once per minRefreshInterval.
func (v *FirebaseVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	k, ok := v.keys[kid]
	now := v.now()
	fresh := now.Before(v.expires)
	recent := !v.refreshed.IsZero() && now.Sub(v.refreshed) < minRefreshInterval
	v.mu.RUnlock()
	if ok && fresh {
		return k, nil
	}
	if !ok && fresh && recent {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}

	if err := v.refresh(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if k, ok := v.keys[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("unknown kid %q", kid)
}

func (v *FirebaseVerifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return fmt.Errorf("build certs request: %v: %w", err, models.ErrUpstream)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch signing certs: %v: %w", err, models.ErrUpstream)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch signing certs: status %d: %w", resp.StatusCode, models.ErrUpstream)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("decode signing certs: %v: %w", err, models.ErrUpstream)
	}
	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pem := range certs {
		k, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			v.logger.Warn("skipping unparsable signing cert", zap.String("kid", kid), zap.Error(err))
			continue
		}
		keys[kid] = k
	}

	ttl := maxAge(resp.Header.Get("Cache-Control"))
	now := v.now()
	v.mu.Lock()
	v.keys = keys
	v.refreshed = now
	v.expires = now.Add(ttl)
	v.mu.Unlock()
	v.logger.Debug("signing certs refreshed", zap.Int("keys", len(keys)), zap.Duration("ttl", ttl))
	return nil
}

// maxAge extracts max-age from a Cache-Control header.
func maxAge(header string) time.Duration {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "max-age="); ok {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return time.Duration(n) * time.Second
			}
		}
	}
	return defaultCertsTTL
}
