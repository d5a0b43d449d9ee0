package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"showdown-bot/data"
)

// ErrLoginRejected is returned when the login server refuses the credentials.
var ErrLoginRejected = errors.New("login rejected")

// Login obtains the signed assertion the server needs for /trn.
type Login struct {
	URL      string
	Username string
	Password string
	HTTP     *http.Client
}

type loginResponse struct {
	ActionSuccess bool   `json:"actionsuccess"`
	Assertion     string `json:"assertion"`
}

// Assertion exchanges challstr for an assertion. Without a password the
// name must be unregistered.
func (l Login) Assertion(ctx context.Context, challstr string) (string, error) {
	hc := l.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}

	var req *http.Request
	var err error
	if l.Password == "" {
		q := url.Values{"act": {"getassertion"}, "userid": {data.ToID(l.Username)}, "challstr": {challstr}}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, l.URL+"?"+q.Encode(), nil)
	} else {
		form := url.Values{"act": {"login"}, "name": {l.Username}, "pass": {l.Password}, "challstr": {challstr}}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, l.URL, strings.NewReader(form.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login server returned %s", resp.Status)
	}

	if l.Password == "" {
		assertion := strings.TrimSpace(string(body))
		if assertion == "" || strings.HasPrefix(assertion, ";") {
			return "", fmt.Errorf("%w: %q needs a password", ErrLoginRejected, l.Username)
		}
		return assertion, nil
	}

	// The body is "]" followed by the JSON object.
	var lr loginResponse
	if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(string(body)), "]")), &lr); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if !lr.ActionSuccess || lr.Assertion == "" || strings.HasPrefix(lr.Assertion, ";") {
		return "", fmt.Errorf("%w for %q", ErrLoginRejected, l.Username)
	}
	return lr.Assertion, nil
}
