package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthResult carries the identity backend's answer to a credential
// exchange: who the user is plus the token pair for subsequent calls.
type AuthResult struct {
	UID          string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

// IdentityClient talks to the hosted identity backend over its REST
// surface. Every request carries the project API key; user-scoped
// operations additionally carry the current ID token.
type IdentityClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewIdentityClient(baseURL, apiKey string, timeout time.Duration) *IdentityClient {
	return &IdentityClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *IdentityClient) SignUp(ctx context.Context, email string, password []byte) (*AuthResult, error) {
	return c.credentialExchange(ctx, "accounts:signUp", email, password)
}

func (c *IdentityClient) SignIn(ctx context.Context, email string, password []byte) (*AuthResult, error) {
	return c.credentialExchange(ctx, "accounts:signInWithPassword", email, password)
}

func (c *IdentityClient) credentialExchange(ctx context.Context, op, email string, password []byte) (*AuthResult, error) {
	payload := map[string]any{
		"email":             email,
		"password":          string(password),
		"returnSecureToken": true,
	}
	var result AuthResult
	if err := c.post(ctx, op, payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Refresh exchanges a refresh token for a fresh token pair.
func (c *IdentityClient) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/token?key="+url.QueryEscape(c.apiKey),
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, identityError(resp)
	}

	var body struct {
		UserID       string `json:"user_id"`
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return &AuthResult{
		UID:          body.UserID,
		IDToken:      body.IDToken,
		RefreshToken: body.RefreshToken,
	}, nil
}

// UpdateEmail changes the account email. The backend rotates the token
// pair on success.
func (c *IdentityClient) UpdateEmail(ctx context.Context, idToken, email string) (*AuthResult, error) {
	payload := map[string]any{
		"idToken":           idToken,
		"email":             email,
		"returnSecureToken": true,
	}
	var result AuthResult
	if err := c.post(ctx, "accounts:update", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdatePassword changes the account password. The backend rotates the
// token pair on success.
func (c *IdentityClient) UpdatePassword(ctx context.Context, idToken string, password []byte) (*AuthResult, error) {
	payload := map[string]any{
		"idToken":           idToken,
		"password":          string(password),
		"returnSecureToken": true,
	}
	var result AuthResult
	if err := c.post(ctx, "accounts:update", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes the account the ID token belongs to. The backend
// requires a recent sign-in; callers re-authenticate first.
func (c *IdentityClient) Delete(ctx context.Context, idToken string) error {
	return c.post(ctx, "accounts:delete", map[string]any{"idToken": idToken}, nil)
}

func (c *IdentityClient) post(ctx context.Context, op string, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+op+"?key="+url.QueryEscape(c.apiKey), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity: %w", ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return identityError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// identityError extracts the backend's symbolic error message so the
// presentation layer can show something better than a status code.
func identityError(resp *http.Response) error {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error.Message != "" {
		switch body.Error.Message {
		case "INVALID_PASSWORD", "EMAIL_NOT_FOUND", "INVALID_LOGIN_CREDENTIALS", "INVALID_ID_TOKEN", "TOKEN_EXPIRED":
			return fmt.Errorf("%s: %w", body.Error.Message, ErrUnauthorized)
		default:
			return fmt.Errorf("%s: %w", body.Error.Message, mapStatus(resp.StatusCode))
		}
	}
	return mapStatus(resp.StatusCode)
}

// TokenExpiry reads the expiry claim from an ID token without verifying
// the signature. The backend is the verifier; the client only needs the
// timestamp to schedule a refresh.
func TokenExpiry(idToken string) (time.Time, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("token has no expiry")
	}
	return exp.Time, nil
}
