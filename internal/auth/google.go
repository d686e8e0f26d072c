// Package auth implements interactive sign-in flows that end with a token
// the identity package can verify.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"compliance-backend/internal/analytics"
	"compliance-backend/internal/identity"
	"compliance-backend/internal/shared/server/respond"
	"compliance-backend/internal/shared/telemetry"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// TokenSigner issues session tokens. *identity.JWTProvider satisfies it.
type TokenSigner interface {
	Sign(id identity.Identity, ttl time.Duration) (string, error)
}

// Tracker records the login event.
type Tracker interface {
	Track(ctx context.Context, orgID string, eventType analytics.EventType, userID string, metadata map[string]any) error
}

// GoogleConfig holds the OAuth client settings.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	UIRedirect   string
	TokenTTL     time.Duration

	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// Configured reports whether the client credentials are present.
func (c GoogleConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

// GoogleService handles Google OAuth flows.
type GoogleService struct {
	oauthConfig *oauth2.Config
	uiRedirect  string
	userInfoURL string
	tokenTTL    time.Duration
	stateTTL    time.Duration
	stateStore  *stateStore

	signer      TokenSigner
	memberships Memberships
	tracker     Tracker
}

// NewGoogleService builds a GoogleService.
func NewGoogleService(cfg GoogleConfig, signer TokenSigner, memberships Memberships, tracker Tracker) *GoogleService {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultUserInfoURL
	}
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: endpoint,
		},
		uiRedirect:  cfg.UIRedirect,
		userInfoURL: userInfoURL,
		tokenTTL:    cfg.TokenTTL,
		stateTTL:    5 * time.Minute,
		stateStore:  newStateStore(),
		signer:      signer,
		memberships: memberships,
		tracker:     tracker,
	}
}

// RegisterRoutes attaches Google auth routes. They sit outside the
// authenticated group.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) start(c *gin.Context) {
	if s.oauthConfig.ClientID == "" || s.oauthConfig.ClientSecret == "" || s.oauthConfig.RedirectURL == "" {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}

	state := uuid.NewString()
	s.stateStore.put(state, time.Now().Add(s.stateTTL))

	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state))
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}

	if !s.stateStore.consume(state) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		telemetry.Warn("auth.exchange_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	userInfo, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		telemetry.Warn("auth.userinfo_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}
	if userInfo.Sub == "" {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "invalid user profile", nil)
		return
	}

	orgID, role := s.memberships.Resolve(userInfo.Email)
	ident := identity.Identity{
		SubjectID:      "google:" + userInfo.Sub,
		Email:          userInfo.Email,
		OrganizationID: orgID,
		Role:           role,
	}
	session, err := s.signer.Sign(ident, s.tokenTTL)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	if orgID != "" && s.tracker != nil {
		if err := s.tracker.Track(ctx, orgID, analytics.EventLogin, ident.SubjectID, map[string]any{"provider": "google"}); err != nil {
			telemetry.Warn("analytics.track_failed", map[string]any{
				"org_id":     orgID,
				"event_type": string(analytics.EventLogin),
				"error":      err.Error(),
			})
		}
	}
	telemetry.Info("auth.login", map[string]any{"user_id": ident.SubjectID, "org_id": orgID, "role": role})

	redirectURL, err := appendToken(s.uiRedirect, session)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}

	c.Redirect(http.StatusFound, redirectURL)
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (s *GoogleService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}

	// Some responses use "id" instead of "sub".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	return info, nil
}

// Memberships maps verified email addresses to an organization and role.
type Memberships struct {
	// Domains maps an email domain to an organization id.
	Domains map[string]string
	Admins  map[string]bool
}

// ParseMemberships reads "domain=orgId" pairs and admin emails, both comma
// separated.
func ParseMemberships(domains, admins string) (Memberships, error) {
	m := Memberships{Domains: map[string]string{}, Admins: map[string]bool{}}
	for _, pair := range strings.Split(domains, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		domain, orgID, ok := strings.Cut(pair, "=")
		domain = strings.ToLower(strings.TrimSpace(domain))
		orgID = strings.TrimSpace(orgID)
		if !ok || domain == "" || orgID == "" {
			return Memberships{}, fmt.Errorf("invalid domain mapping %q", pair)
		}
		m.Domains[domain] = orgID
	}
	for _, email := range strings.Split(admins, ",") {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			m.Admins[email] = true
		}
	}
	return m, nil
}

// Resolve returns the organization and role for email. Unknown domains get
// a member identity with no organization.
func (m Memberships) Resolve(email string) (string, string) {
	email = strings.ToLower(strings.TrimSpace(email))
	role := identity.RoleMember
	if m.Admins[email] {
		role = identity.RoleAdmin
	}
	_, domain, ok := strings.Cut(email, "@")
	if !ok {
		return "", role
	}
	return m.Domains[domain], role
}

type stateStore struct {
	items map[string]time.Time
	mu    sync.Mutex
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]time.Time)}
}

func (s *stateStore) put(state string, exp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, v := range s.items {
		if now.After(v) {
			delete(s.items, k)
		}
	}
	s.items[state] = exp
}

func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	exp, ok := s.items[state]
	if ok {
		delete(s.items, state)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	return !time.Now().After(exp)
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
