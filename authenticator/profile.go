package authenticator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/blogem/linkedin-login/models"
)

// maxResponseBytes caps how much of a provider response is read
const maxResponseBytes = 1 << 20

type linkedInProfile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type linkedInError struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
}

// Identity fetches the basic profile and then the email address. LinkedIn
// serves them from separate endpoints.
func (p *LinkedIn) Identity(ctx context.Context, client *http.Client) (*models.IdentityClaim, error) {
	var profile linkedInProfile
	body, err := get(ctx, client, p.opts.Endpoints.ProfileURL)
	if err != nil {
		return nil, classify("profile", err)
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, protocolError("profile", fmt.Errorf("failed to decode profile: %w", err))
	}

	body, err = get(ctx, client, p.opts.Endpoints.EmailURL)
	if err != nil {
		return nil, classify("email", err)
	}
	email, err := parseEmail(body)
	if err != nil {
		return nil, protocolError("email", err)
	}

	return &models.IdentityClaim{
		ExternalID: profile.ID,
		Email:      email,
		FirstName:  profile.FirstName,
		LastName:   profile.LastName,
	}, nil
}

func get(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, protocolError("request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-li-format", "json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr linkedInError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return body, nil
}

// parseEmail accepts the JSON string LinkedIn returns, and a bare address
func parseEmail(body []byte) (string, error) {
	var email string
	if err := json.Unmarshal(body, &email); err != nil {
		email = string(body)
	}
	email = strings.TrimSpace(email)

	if email == "" || !strings.Contains(email, "@") || strings.ContainsAny(email, " \t\r\n{}\"") {
		return "", errors.New("response does not contain an email address")
	}
	return email, nil
}
