// Package onedrive talks to the Microsoft Graph drive API. The international
// and the China (21Vianet) deployments differ only in their endpoints and in
// which default OAuth application they fall back to.
package onedrive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"filegate/internal/config"
)

const (
	graphEndpoint        = "graph.microsoft.com"
	authenticateEndpoint = "login.microsoftonline.com"

	graphEndpointChina        = "microsoftgraph.chinacloudapi.cn"
	authenticateEndpointChina = "login.partner.microsoftonline.cn"

	defaultScope = "offline_access Files.ReadWrite.All"
)

// Params are the per-storage-source OAuth settings. Empty fields fall back
// to the application defaults from config.
type Params struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Token is the relevant part of an OAuth token response.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// DriveItem is one entry of a drive folder listing.
type DriveItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModifiedDateTime"`
	Folder       *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder"`
	DownloadURL string `json:"@microsoft.graph.downloadUrl"`
}

// IsFolder reports whether the item is a folder.
func (d DriveItem) IsFolder() bool { return d.Folder != nil }

// Client is a Graph drive client bound to one storage source.
type Client struct {
	graph    string
	auth     string
	params   Params
	defaults config.OneDriveApp
	http     *http.Client
}

// New returns a client for the international OneDrive deployment.
func New(params Params, defaults config.OneDriveApp) *Client {
	return &Client{
		graph:    graphEndpoint,
		auth:     authenticateEndpoint,
		params:   params,
		defaults: defaults,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// GraphEndpoint returns the Graph API host.
func (c *Client) GraphEndpoint() string { return c.graph }

// AuthenticateEndpoint returns the OAuth login host.
func (c *Client) AuthenticateEndpoint() string { return c.auth }

// ClientID resolves the per-source client id, falling back to the default
// application registration.
func (c *Client) ClientID() string {
	if c.params.ClientID != "" {
		return c.params.ClientID
	}
	return c.defaults.ClientID
}

func (c *Client) ClientSecret() string {
	if c.params.ClientSecret != "" {
		return c.params.ClientSecret
	}
	return c.defaults.ClientSecret
}

func (c *Client) RedirectURI() string {
	if c.params.RedirectURI != "" {
		return c.params.RedirectURI
	}
	return c.defaults.RedirectURI
}

// Scope always comes from the application defaults.
func (c *Client) Scope() string {
	if c.defaults.Scope != "" {
		return c.defaults.Scope
	}
	return defaultScope
}

// AuthorizeURL builds the OAuth authorization URL for this deployment.
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.ClientID())
	q.Set("response_type", "code")
	q.Set("redirect_uri", c.RedirectURI())
	q.Set("scope", c.Scope())
	q.Set("state", state)
	return fmt.Sprintf("https://%s/common/oauth2/v2.0/authorize?%s", c.auth, q.Encode())
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", c.ClientID())
	form.Set("client_secret", c.ClientSecret())
	form.Set("redirect_uri", c.RedirectURI())
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	return c.tokenRequest(ctx, form)
}

// Refresh trades a refresh token for a fresh token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", c.ClientID())
	form.Set("client_secret", c.ClientSecret())
	form.Set("redirect_uri", c.RedirectURI())
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.tokenRequest(ctx, form)
}

func (c *Client) tokenRequest(ctx context.Context, form url.Values) (*Token, error) {
	endpoint := fmt.Sprintf("https://%s/common/oauth2/v2.0/token", c.auth)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("token request failed: %s: %s", resp.Status, body)
	}

	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &token, nil
}

type listResponse struct {
	Value    []DriveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

// ListChildren lists a drive folder, following pagination. Path "" or "/"
// means the drive root.
func (c *Client) ListChildren(ctx context.Context, path string) ([]DriveItem, error) {
	endpoint := fmt.Sprintf("https://%s/v1.0/me/drive/root/children", c.graph)
	if p := strings.Trim(path, "/"); p != "" {
		endpoint = fmt.Sprintf("https://%s/v1.0/me/drive/root:/%s:/children", c.graph, url.PathEscape(p))
	}

	var items []DriveItem
	for endpoint != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.params.AccessToken)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		var page listResponse
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("graph listing failed: %s", resp.Status)
		}
		if err != nil {
			return nil, fmt.Errorf("decode graph listing: %w", err)
		}
		items = append(items, page.Value...)
		endpoint = page.NextLink
	}
	return items, nil
}
