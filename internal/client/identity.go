// ABOUTME: Identity service calls for signup, email verification and two-step signin
// ABOUTME: The only endpoints that run without a bearer token

package client

import (
	"context"
	"fmt"
	"net/http"
)

type emailRequest struct {
	Email string `json:"email"`
}

type codeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by the final signin step and, on some deployments, by signup
type TokenResponse struct {
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

// RequestEmailCode calls POST /signup/verify-email/ to mail a verification code
func (c *Client) RequestEmailCode(ctx context.Context, email string) error {
	return c.postIdentity(ctx, "/signup/verify-email/", emailRequest{Email: email}, nil)
}

// ConfirmEmailCode calls POST /signup/confirm-email/ to prove ownership of the address
func (c *Client) ConfirmEmailCode(ctx context.Context, email, code string) error {
	return c.postIdentity(ctx, "/signup/confirm-email/", codeRequest{Email: email, Code: code}, nil)
}

// SignUp calls POST /signup/ for a verified email. The returned token is
// empty when the service only creates the account.
func (c *Client) SignUp(ctx context.Context, email, password string) (string, error) {
	var resp TokenResponse
	if err := c.postIdentity(ctx, "/signup/", credentialsRequest{Email: email, Password: password}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// SubmitPassword calls POST /signin/password/, which checks credentials and mails the second factor
func (c *Client) SubmitPassword(ctx context.Context, email, password string) error {
	return c.postIdentity(ctx, "/signin/password/", credentialsRequest{Email: email, Password: password}, nil)
}

// VerifySignIn calls POST /signin/ with the second-factor code and returns the session token
func (c *Client) VerifySignIn(ctx context.Context, email, code string) (string, error) {
	var resp TokenResponse
	if err := c.postIdentity(ctx, "/signin/", codeRequest{Email: email, Code: code}, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("identity service returned no token")
	}
	return resp.Token, nil
}

func (c *Client) postIdentity(ctx context.Context, path string, body, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoints.Identity+path, body)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}
