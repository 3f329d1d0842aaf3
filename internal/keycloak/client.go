package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	ErrNotFound     = errors.New("keycloak resource not found")
	ErrUnauthorized = errors.New("keycloak request unauthorized")
	ErrForbidden    = errors.New("keycloak request forbidden")
)

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("keycloak api error (status=%d)", e.StatusCode)
	}
	return fmt.Sprintf("keycloak api error (status=%d): %s", e.StatusCode, body)
}

type Config struct {
	ServerURL    string
	ClientRealm  string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type FederatedIdentity struct {
	IdentityProvider string `json:"identityProvider"`
	UserID           string `json:"userId"`
	UserName         string `json:"userName"`
}

// Client talks to the Keycloak Admin REST API as a service account.
// Token acquisition and refresh is handled by the underlying oauth2
// transport; callers only see admin calls.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	if baseURL == "" {
		return nil, errors.New("server url is required")
	}
	clientRealm := strings.TrimSpace(cfg.ClientRealm)
	if clientRealm == "" {
		return nil, errors.New("client realm is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("client id is required")
	}

	provider, err := oidc.NewProvider(ctx, baseURL+"/realms/"+clientRealm)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}

	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     provider.Endpoint().TokenURL,
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient := creds.Client(ctx)
	httpClient.Timeout = timeout

	return &Client{baseURL: baseURL, http: httpClient}, nil
}

func (c *Client) CountUsers(ctx context.Context, realm string) (int, error) {
	realm = strings.TrimSpace(realm)
	if realm == "" {
		return 0, errors.New("realm is required")
	}
	path := fmt.Sprintf("/admin/realms/%s/users/count", realm)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	var count int
	if err := c.do(req, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (c *Client) ListUsers(ctx context.Context, realm string, first int, max int) ([]User, error) {
	realm = strings.TrimSpace(realm)
	if realm == "" {
		return nil, errors.New("realm is required")
	}
	query := url.Values{}
	query.Set("first", strconv.Itoa(first))
	query.Set("max", strconv.Itoa(max))
	path := fmt.Sprintf("/admin/realms/%s/users?%s", realm, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	var out []User
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteUser(ctx context.Context, realm string, userID string) error {
	realm = strings.TrimSpace(realm)
	if realm == "" {
		return errors.New("realm is required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user id is required")
	}
	path := fmt.Sprintf("/admin/realms/%s/users/%s", realm, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) FederatedIdentities(ctx context.Context, realm string, userID string) ([]FederatedIdentity, error) {
	realm = strings.TrimSpace(realm)
	if realm == "" {
		return nil, errors.New("realm is required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	path := fmt.Sprintf("/admin/realms/%s/users/%s/federated-identity", realm, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	var out []FederatedIdentity
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RemoveFederatedIdentity(ctx context.Context, realm string, userID string, provider string) error {
	realm = strings.TrimSpace(realm)
	if realm == "" {
		return errors.New("realm is required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user id is required")
	}
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return errors.New("provider is required")
	}
	path := fmt.Sprintf("/admin/realms/%s/users/%s/federated-identity/%s", realm, userID, provider)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	if req == nil {
		return errors.New("request is required")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil
	case http.StatusOK:
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode keycloak response: %w", err)
		}
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	default:
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}
