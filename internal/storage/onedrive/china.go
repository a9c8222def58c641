package onedrive

import (
	"net/http"
	"time"

	"filegate/internal/config"
)

// NewChina returns a client for the OneDrive China (21Vianet) deployment.
// Same protocol as the international variant; only the Graph and login
// endpoints and the default application registration differ.
func NewChina(params Params, defaults config.OneDriveApp) *Client {
	return &Client{
		graph:    graphEndpointChina,
		auth:     authenticateEndpointChina,
		params:   params,
		defaults: defaults,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}
