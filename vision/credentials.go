package vision

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "doorbell-lab/errors"
)

const (
	// Scope is what the original integration requested for the Vision API.
	scope = "https://www.googleapis.com/auth/cloud-platform"

	grantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// Tokens are refreshed this long before they actually expire, so an
	// annotate call never races the expiry.
	expiryMargin = 60 * time.Second
)

// serviceAccount mirrors the fields we need from a Google service-account
// JSON key file.
type serviceAccount struct {
	Type         string `json:"type"`
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

// TokenSource exchanges a service-account key for short-lived bearer tokens.
// The assertion is an RS256-signed JWT posted to the key file's token_uri.
// Tokens are cached until shortly before expiry.
type TokenSource struct {
	mu      sync.Mutex
	account serviceAccount
	key     *rsa.PrivateKey
	client  *http.Client
	token   string
	expiry  time.Time
	now     func() time.Time
}

// NewTokenSource loads the key file at path. An empty path falls back to
// $GOOGLE_APPLICATION_CREDENTIALS, the ambient default the original client
// honored. A missing or unreadable key file is an authentication error.
func NewTokenSource(path string, client *http.Client) (*TokenSource, error) {
	if path == "" {
		path = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: no key file and GOOGLE_APPLICATION_CREDENTIALS is unset", apperrors.ErrAuth)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading key file: %v", apperrors.ErrAuth, err)
	}

	var account serviceAccount
	if err := json.Unmarshal(raw, &account); err != nil {
		return nil, fmt.Errorf("%w: parsing key file: %v", apperrors.ErrAuth, err)
	}
	if account.ClientEmail == "" || account.PrivateKey == "" || account.TokenURI == "" {
		return nil, fmt.Errorf("%w: key file is missing client_email, private_key or token_uri", apperrors.ErrAuth)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(account.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing private key: %v", apperrors.ErrAuth, err)
	}

	if client == nil {
		client = http.DefaultClient
	}
	return &TokenSource{account: account, key: key, client: client, now: time.Now}, nil
}

// Token returns a valid bearer token, reusing the cached one when possible.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Before(ts.expiry.Add(-expiryMargin)) {
		return ts.token, nil
	}

	assertion, err := ts.assertion()
	if err != nil {
		return "", fmt.Errorf("%w: signing assertion: %v", apperrors.ErrAuth, err)
	}

	form := url.Values{}
	form.Set("grant_type", grantType)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.account.TokenURI,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrAuth, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token endpoint: %v", apperrors.ErrRemote, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d: %s",
			apperrors.ErrAuth, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.AccessToken == "" {
		return "", fmt.Errorf("%w: malformed token response", apperrors.ErrAuth)
	}

	ts.token = payload.AccessToken
	ts.expiry = ts.now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return ts.token, nil
}

func (ts *TokenSource) assertion() (string, error) {
	now := ts.now()
	claims := jwt.MapClaims{
		"iss":   ts.account.ClientEmail,
		"scope": scope,
		"aud":   ts.account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if ts.account.PrivateKeyID != "" {
		token.Header["kid"] = ts.account.PrivateKeyID
	}
	return token.SignedString(ts.key)
}
