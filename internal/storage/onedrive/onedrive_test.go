package onedrive

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filegate/internal/config"
)

var testDefaults = config.OneDriveApp{
	ClientID:     "default-id",
	ClientSecret: "default-secret",
	RedirectURI:  "https://app.example.com/callback",
	Scope:        "offline_access Files.Read",
}

func TestEndpoints(t *testing.T) {
	intl := New(Params{}, testDefaults)
	assert.Equal(t, "graph.microsoft.com", intl.GraphEndpoint())
	assert.Equal(t, "login.microsoftonline.com", intl.AuthenticateEndpoint())

	cn := NewChina(Params{}, testDefaults)
	assert.Equal(t, "microsoftgraph.chinacloudapi.cn", cn.GraphEndpoint())
	assert.Equal(t, "login.partner.microsoftonline.cn", cn.AuthenticateEndpoint())
}

func TestCredentialFallback(t *testing.T) {
	// Empty params fall back to the application defaults.
	c := NewChina(Params{}, testDefaults)
	assert.Equal(t, "default-id", c.ClientID())
	assert.Equal(t, "default-secret", c.ClientSecret())
	assert.Equal(t, "https://app.example.com/callback", c.RedirectURI())

	// Per-source params win when present.
	c = NewChina(Params{
		ClientID:     "own-id",
		ClientSecret: "own-secret",
		RedirectURI:  "https://own.example.com/cb",
	}, testDefaults)
	assert.Equal(t, "own-id", c.ClientID())
	assert.Equal(t, "own-secret", c.ClientSecret())
	assert.Equal(t, "https://own.example.com/cb", c.RedirectURI())
}

func TestScopeAlwaysFromDefaults(t *testing.T) {
	c := NewChina(Params{ClientID: "own-id"}, testDefaults)
	assert.Equal(t, "offline_access Files.Read", c.Scope())

	c = NewChina(Params{}, config.OneDriveApp{})
	assert.Equal(t, defaultScope, c.Scope())
}

func TestAuthorizeURL(t *testing.T) {
	c := NewChina(Params{ClientID: "own-id"}, testDefaults)

	u, err := url.Parse(c.AuthorizeURL("42"))
	require.NoError(t, err)
	assert.Equal(t, "login.partner.microsoftonline.cn", u.Host)
	assert.Equal(t, "/common/oauth2/v2.0/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "own-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "https://app.example.com/callback", q.Get("redirect_uri"))
	assert.Equal(t, "42", q.Get("state"))
}
