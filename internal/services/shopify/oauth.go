package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"storesync/internal/config"
	"storesync/internal/logger"
)

// OAuthScopes are the permissions the connector asks for on install.
const OAuthScopes = "read_customers,write_customers"

type OAuthService struct {
	config     *config.Config
	logger     *logger.Logger
	httpClient *http.Client
	// baseURL replaces https://{shop} when set.
	baseURL string
}

func NewOAuthService(cfg *config.Config, logger *logger.Logger) *OAuthService {
	return &OAuthService{
		config:     cfg,
		logger:     logger,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(cfg.ShopifyBaseURL, "/"),
	}
}

// GenerateAuthURL creates the Shopify OAuth authorization URL
func (s *OAuthService) GenerateAuthURL(shopDomain string, redirectURI string) (string, string, error) {
	state, err := s.generateState()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}

	params := url.Values{}
	params.Set("client_id", s.config.ShopifyClientID)
	params.Set("scope", OAuthScopes)
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)

	authURL := fmt.Sprintf("%s/admin/oauth/authorize?%s", s.shopURL(shopDomain), params.Encode())
	return authURL, state, nil
}

// ExchangeCodeForToken exchanges the authorization code for an access token
func (s *OAuthService) ExchangeCodeForToken(ctx context.Context, shopDomain, code string) (*TokenResponse, error) {
	tokenURL := s.shopURL(shopDomain) + "/admin/oauth/access_token"

	data := url.Values{}
	data.Set("client_id", s.config.ShopifyClientID)
	data.Set("client_secret", s.config.ShopifyClientSecret)
	data.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token exchange failed: %w", &APIError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access token")
	}

	return &tokenResp, nil
}

// ValidateCallback checks the hex HMAC Shopify adds to the OAuth redirect.
func (s *OAuthService) ValidateCallback(query url.Values) bool {
	provided := query.Get("hmac")
	if provided == "" || s.config.ShopifyClientSecret == "" {
		return false
	}
	expected := SignQuery(query, s.config.ShopifyClientSecret)
	return hmac.Equal([]byte(expected), []byte(provided))
}

// SignQuery computes the OAuth callback HMAC over the sorted query, minus
// the hmac and signature parameters.
func SignQuery(query url.Values, secret string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strings.Join(query[k], ","))
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *OAuthService) shopURL(shopDomain string) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	return "https://" + NormalizeShopDomain(shopDomain)
}

// generateState generates a cryptographically secure random state
func (s *OAuthService) generateState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
