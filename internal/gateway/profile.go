package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/borealmoveis/atendebot/session"
)

type contactResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	PushName    string `json:"push_name"`
}

// LookupProfile fetches the bridge's contact record for a correspondent.
// Best effort: callers fall back to a generic salutation on any error.
func (c *Client) LookupProfile(ctx context.Context, id string) (session.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return session.Profile{}, fmt.Errorf("contact id is required")
	}
	if c.opts.HTTPURL == "" {
		return session.Profile{}, fmt.Errorf("gateway http url not configured")
	}

	endpoint := strings.TrimRight(c.opts.HTTPURL, "/") + "/contacts/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return session.Profile{}, fmt.Errorf("build contact request: %w", err)
	}
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return session.Profile{}, fmt.Errorf("fetch contact %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return session.Profile{}, fmt.Errorf("contact %s not found", id)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return session.Profile{}, fmt.Errorf("fetch contact %s: status %d: %s", id, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var contact contactResponse
	if err := json.NewDecoder(resp.Body).Decode(&contact); err != nil {
		return session.Profile{}, fmt.Errorf("decode contact %s: %w", id, err)
	}

	name := strings.TrimSpace(contact.DisplayName)
	if name == "" {
		name = strings.TrimSpace(contact.PushName)
	}
	return session.Profile{DisplayName: name}, nil
}
