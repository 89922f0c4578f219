// ABOUTME: Authentication state machine for signup and two-step login
// ABOUTME: Submissions validate and transition; Execute does network work; Apply commits results

package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neves-cloud/blackbox/internal/client"
	"github.com/neves-cloud/blackbox/internal/session"
)

// AuthState is the current step of the authentication flow
type AuthState int

const (
	EnterCredentials AuthState = iota
	AwaitingSecondFactor
	EnterEmail
	AwaitingEmailCode
	EnterPassword
	Authenticated
)

func (s AuthState) String() string {
	switch s {
	case EnterCredentials:
		return "EnterCredentials"
	case AwaitingSecondFactor:
		return "AwaitingSecondFactor"
	case EnterEmail:
		return "EnterEmail"
	case AwaitingEmailCode:
		return "AwaitingEmailCode"
	case EnterPassword:
		return "EnterPassword"
	case Authenticated:
		return "Authenticated"
	default:
		return fmt.Sprintf("AuthState(%d)", int(s))
	}
}

// SignupCompleteNotice is shown when signup creates an account without a session
const SignupCompleteNotice = "Account created. Sign in to continue."

// IdentityAPI is the subset of the client used by the auth flow
type IdentityAPI interface {
	RequestEmailCode(ctx context.Context, email string) error
	ConfirmEmailCode(ctx context.Context, email, code string) error
	SignUp(ctx context.Context, email, password string) (string, error)
	SubmitPassword(ctx context.Context, email, password string) error
	VerifySignIn(ctx context.Context, email, code string) (string, error)
}

type authOp int

const (
	opCheckCredentials authOp = iota
	opVerifySecondFactor
	opRequestEmailCode
	opConfirmEmailCode
	opSignUp
)

// AuthRequest is one network step produced by a submission
type AuthRequest struct {
	attempt int
	op      authOp
	from    AuthState
	email   string
	secret  string
}

// AuthResult is the outcome of executing an AuthRequest
type AuthResult struct {
	req   AuthRequest
	token string
	err   error
}

// Err returns the network error, if any
func (r AuthResult) Err() error { return r.err }

// Auth drives signup and login. All methods except Execute must be called
// from a single goroutine.
type Auth struct {
	api   IdentityAPI
	store session.Store

	state   AuthState
	email   string
	attempt int
	busy    bool
	pending bool // credential check in flight while showing the code step
	message string
	notice  string

	onAuthenticated func()
}

// AuthOption configures an Auth
type AuthOption func(*Auth)

// OnAuthenticated registers a callback fired whenever a session is established
func OnAuthenticated(fn func()) AuthOption {
	return func(a *Auth) {
		a.onAuthenticated = fn
	}
}

// NewAuth creates an auth flow in the EnterCredentials state
func NewAuth(api IdentityAPI, store session.Store, opts ...AuthOption) *Auth {
	a := &Auth{api: api, store: store, state: EnterCredentials}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Auth) State() AuthState { return a.state }

// Email is the address carried between steps
func (a *Auth) Email() string { return a.email }

// Pending reports whether the credential check behind the code step is unresolved
func (a *Auth) Pending() bool { return a.pending }

// Busy reports whether any step is awaiting the network
func (a *Auth) Busy() bool { return a.busy }

// Message is the error from the last failed step
func (a *Auth) Message() string { return a.message }

// Notice is informational text for the current step
func (a *Auth) Notice() string { return a.notice }

// Resume restores a stored session. An expired token is cleared by the store.
func (a *Auth) Resume() error {
	_, err := a.store.Load()
	switch {
	case err == nil:
		a.enter(Authenticated)
		a.authenticated()
		return nil
	case errors.Is(err, session.ErrExpired):
		a.enter(EnterCredentials)
		a.notice = Describe(err)
		return nil
	case errors.Is(err, session.ErrNoSession):
		a.enter(EnterCredentials)
		return nil
	default:
		a.enter(EnterCredentials)
		return err
	}
}

// StartLogin switches to the login entry step, abandoning any in-flight attempt
func (a *Auth) StartLogin() {
	a.enter(EnterCredentials)
}

// StartSignup switches to the signup entry step, abandoning any in-flight attempt
func (a *Auth) StartSignup() {
	a.enter(EnterEmail)
}

// SubmitCredentials gates the input and optimistically advances to the code step
func (a *Auth) SubmitCredentials(email, password string) (AuthRequest, error) {
	if err := a.ready(EnterCredentials); err != nil {
		return AuthRequest{}, err
	}
	email, err := ValidateEmail(email)
	if err == nil {
		err = ValidatePassword(password)
	}
	if err != nil {
		return AuthRequest{}, a.reject(err)
	}

	req := a.begin(opCheckCredentials, email, password)
	a.email = email
	a.state = AwaitingSecondFactor
	a.pending = true
	return req, nil
}

// SubmitSecondFactor sends the emailed code. It is refused until the credential check succeeds.
func (a *Auth) SubmitSecondFactor(code string) (AuthRequest, error) {
	if a.state == AwaitingSecondFactor && a.pending {
		return AuthRequest{}, a.reject(ErrAttemptPending)
	}
	if err := a.ready(AwaitingSecondFactor); err != nil {
		return AuthRequest{}, err
	}
	code, err := ValidateCode(code)
	if err != nil {
		return AuthRequest{}, a.reject(err)
	}
	return a.begin(opVerifySecondFactor, a.email, code), nil
}

// RequestEmailCode starts signup by mailing a verification code
func (a *Auth) RequestEmailCode(email string) (AuthRequest, error) {
	if err := a.ready(EnterEmail); err != nil {
		return AuthRequest{}, err
	}
	email, err := ValidateEmail(email)
	if err != nil {
		return AuthRequest{}, a.reject(err)
	}
	a.email = email
	return a.begin(opRequestEmailCode, email, ""), nil
}

// ConfirmEmailCode proves ownership of the signup address
func (a *Auth) ConfirmEmailCode(code string) (AuthRequest, error) {
	if err := a.ready(AwaitingEmailCode); err != nil {
		return AuthRequest{}, err
	}
	code, err := ValidateCode(code)
	if err != nil {
		return AuthRequest{}, a.reject(err)
	}
	return a.begin(opConfirmEmailCode, a.email, code), nil
}

// CompleteSignup sets the password for the verified address
func (a *Auth) CompleteSignup(password, confirm string) (AuthRequest, error) {
	if err := a.ready(EnterPassword); err != nil {
		return AuthRequest{}, err
	}
	if err := ValidatePasswords(password, confirm); err != nil {
		return AuthRequest{}, a.reject(err)
	}
	return a.begin(opSignUp, a.email, password), nil
}

// Execute performs the network call for req. It does not touch flow state.
func (a *Auth) Execute(ctx context.Context, req AuthRequest) AuthResult {
	res := AuthResult{req: req}
	switch req.op {
	case opCheckCredentials:
		res.err = a.api.SubmitPassword(ctx, req.email, req.secret)
	case opVerifySecondFactor:
		res.token, res.err = a.api.VerifySignIn(ctx, req.email, req.secret)
	case opRequestEmailCode:
		res.err = a.api.RequestEmailCode(ctx, req.email)
	case opConfirmEmailCode:
		res.err = a.api.ConfirmEmailCode(ctx, req.email, req.secret)
	case opSignUp:
		res.token, res.err = a.api.SignUp(ctx, req.email, req.secret)
	default:
		res.err = fmt.Errorf("unknown auth operation %d", req.op)
	}
	return res
}

// Apply commits a result. Results from abandoned attempts are discarded.
// The returned error is the failure that ended the attempt, if any.
func (a *Auth) Apply(res AuthResult) error {
	if res.req.attempt != a.attempt || !a.busy {
		slog.Debug("Discarding stale auth result", "attempt", res.req.attempt, "current", a.attempt)
		return nil
	}
	a.busy = false
	a.pending = false

	if res.err != nil {
		return a.fail(res.req, res.err)
	}

	switch res.req.op {
	case opCheckCredentials:
		a.notice = fmt.Sprintf("A code was sent to %s.", a.email)
	case opVerifySecondFactor:
		return a.establish(res.req, res.token)
	case opRequestEmailCode:
		a.state = AwaitingEmailCode
		a.notice = fmt.Sprintf("A verification code was sent to %s.", a.email)
	case opConfirmEmailCode:
		a.state = EnterPassword
		a.notice = "Email verified. Choose a password."
	case opSignUp:
		if res.token != "" {
			return a.establish(res.req, res.token)
		}
		a.state = EnterCredentials
		a.notice = SignupCompleteNotice
	}
	return nil
}

// Run executes and applies req synchronously
func (a *Auth) Run(ctx context.Context, req AuthRequest) error {
	return a.Apply(a.Execute(ctx, req))
}

// Logout clears the stored token and returns to the login entry step
func (a *Auth) Logout() error {
	a.enter(EnterCredentials)
	a.email = ""
	if err := a.store.Clear(); err != nil {
		return err
	}
	slog.Info("Signed out")
	return nil
}

// Invalidate is a forced logout after a service refused the session
func (a *Auth) Invalidate(reason error) {
	if err := a.store.Clear(); err != nil {
		slog.Warn("Failed to clear session", "error", err)
	}
	a.enter(EnterCredentials)
	a.notice = Describe(reason)
	slog.Info("Session invalidated", "reason", reason)
}

func (a *Auth) ready(want AuthState) error {
	if a.busy {
		return a.reject(ErrAttemptPending)
	}
	if a.state != want {
		return fmt.Errorf("%w: %s", ErrWrongStep, a.state)
	}
	return nil
}

func (a *Auth) reject(err error) error {
	a.message = Describe(err)
	return err
}

// enter moves to state and abandons any outstanding attempt
func (a *Auth) enter(state AuthState) {
	a.attempt++
	a.state = state
	a.busy = false
	a.pending = false
	a.message = ""
	a.notice = ""
}

func (a *Auth) begin(op authOp, email, secret string) AuthRequest {
	a.attempt++
	a.busy = true
	a.message = ""
	a.notice = ""
	return AuthRequest{attempt: a.attempt, op: op, from: a.state, email: email, secret: secret}
}

// fail returns to the step the attempt was submitted from
func (a *Auth) fail(req AuthRequest, err error) error {
	a.state = req.from
	a.message = authFailure(req.op, err)
	slog.Debug("Auth step failed", "state", a.state, "error", err)
	return err
}

func (a *Auth) establish(req AuthRequest, token string) error {
	if err := a.store.Save(token); err != nil {
		a.state = req.from
		a.message = fmt.Sprintf("Could not store session: %v", err)
		return err
	}
	a.state = Authenticated
	a.notice = ""
	slog.Info("Signed in", "email", a.email)
	a.authenticated()
	return nil
}

func (a *Auth) authenticated() {
	if a.onAuthenticated != nil {
		a.onAuthenticated()
	}
}

// authFailure gives rejections without a server message a step-specific text
func authFailure(op authOp, err error) string {
	var rejected *client.RejectedError
	if errors.As(err, &rejected) && rejected.Message == "" {
		switch op {
		case opCheckCredentials:
			return "Incorrect email or password."
		case opVerifySecondFactor, opConfirmEmailCode:
			return "That code is not valid."
		}
	}
	return Describe(err)
}
