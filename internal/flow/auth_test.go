// ABOUTME: Tests for the authentication state machine
// ABOUTME: Covers client-side gates, optimistic advance with rollback, signup and logout

package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/neves-cloud/blackbox/internal/client"
	"github.com/neves-cloud/blackbox/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(api *fakeIdentity, store session.Store) (*Auth, *int) {
	fired := 0
	return NewAuth(api, store, OnAuthenticated(func() { fired++ })), &fired
}

func TestSubmitCredentials_InvalidEmailNeverCallsNetwork(t *testing.T) {
	for _, email := range []string{"", "driver", "driver@", "driver@example", "dri ver@example.com", "@example.com"} {
		t.Run(email, func(t *testing.T) {
			api := &fakeIdentity{}
			auth, _ := newAuth(api, session.NewMemoryStore(""))

			_, err := auth.SubmitCredentials(email, "pw")
			assert.True(t, client.IsValidation(err))
			assert.Equal(t, EnterCredentials, auth.State())
			assert.NotEmpty(t, auth.Message())
			assert.Empty(t, api.Calls())
		})
	}
}

func TestRequestEmailCode_InvalidEmailNeverCallsNetwork(t *testing.T) {
	api := &fakeIdentity{}
	auth, _ := newAuth(api, session.NewMemoryStore(""))
	auth.StartSignup()

	_, err := auth.RequestEmailCode("not-an-email")
	assert.True(t, client.IsValidation(err))
	assert.Equal(t, EnterEmail, auth.State())
	assert.Empty(t, api.Calls())
}

func TestSubmitCredentials_AdvancesOptimistically(t *testing.T) {
	api := &fakeIdentity{}
	auth, _ := newAuth(api, session.NewMemoryStore(""))

	req, err := auth.SubmitCredentials(" driver@example.com ", "pw")
	require.NoError(t, err)

	// Before the network resolves
	assert.Equal(t, AwaitingSecondFactor, auth.State())
	assert.True(t, auth.Pending())
	assert.Equal(t, "driver@example.com", auth.Email())

	require.NoError(t, auth.Run(context.Background(), req))
	assert.Equal(t, AwaitingSecondFactor, auth.State())
	assert.False(t, auth.Pending())
}

func TestSubmitSecondFactor_RefusedWhileCredentialCheckPending(t *testing.T) {
	api := &fakeIdentity{verifyToken: "tok"}
	auth, _ := newAuth(api, session.NewMemoryStore(""))

	_, err := auth.SubmitCredentials("driver@example.com", "pw")
	require.NoError(t, err)

	_, err = auth.SubmitSecondFactor("123456")
	assert.ErrorIs(t, err, ErrAttemptPending)
	assert.Empty(t, api.Calls())
}

func TestFailedCredentialCheckReturnsToEntry(t *testing.T) {
	failures := map[string]error{
		"rejected":    &client.RejectedError{StatusCode: 401, Message: "Invalid credentials"},
		"bare 401":    &client.RejectedError{StatusCode: 401},
		"unreachable": client.ErrUnreachable,
	}

	for name, failure := range failures {
		t.Run(name, func(t *testing.T) {
			api := &fakeIdentity{passwordErr: failure}
			auth, fired := newAuth(api, session.NewMemoryStore(""))

			req, err := auth.SubmitCredentials("driver@example.com", "pw")
			require.NoError(t, err)

			err = auth.Run(context.Background(), req)
			assert.Error(t, err)
			assert.Equal(t, EnterCredentials, auth.State())
			assert.NotEmpty(t, auth.Message())
			assert.False(t, auth.Pending())
			assert.Zero(t, *fired)
		})
	}
}

func TestFailedCredentialCheck_ServerMessageVerbatim(t *testing.T) {
	api := &fakeIdentity{passwordErr: &client.RejectedError{StatusCode: 400, Message: "Email and password are required"}}
	auth, _ := newAuth(api, session.NewMemoryStore(""))

	req, _ := auth.SubmitCredentials("driver@example.com", "pw")
	auth.Run(context.Background(), req)
	assert.Equal(t, "Email and password are required", auth.Message())
}

func TestLogin_SecondFactorPersistsToken(t *testing.T) {
	api := &fakeIdentity{verifyToken: "tok-1"}
	store := session.NewMemoryStore("")
	auth, fired := newAuth(api, store)

	req, _ := auth.SubmitCredentials("driver@example.com", "pw")
	require.NoError(t, auth.Run(context.Background(), req))

	req, err := auth.SubmitSecondFactor("123456")
	require.NoError(t, err)
	require.NoError(t, auth.Run(context.Background(), req))

	assert.Equal(t, Authenticated, auth.State())
	assert.Equal(t, 1, *fired)
	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, []string{"SubmitPassword", "VerifySignIn"}, api.Calls())
}

func TestLogin_BadCodeStaysOnCodeStep(t *testing.T) {
	api := &fakeIdentity{verifyErr: &client.RejectedError{StatusCode: 400}}
	store := session.NewMemoryStore("")
	auth, fired := newAuth(api, store)

	req, _ := auth.SubmitCredentials("driver@example.com", "pw")
	require.NoError(t, auth.Run(context.Background(), req))
	req, _ = auth.SubmitSecondFactor("000000")

	assert.Error(t, auth.Run(context.Background(), req))
	assert.Equal(t, AwaitingSecondFactor, auth.State())
	assert.Equal(t, "That code is not valid.", auth.Message())
	assert.Zero(t, *fired)

	_, err := store.Load()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestAtMostOneOutstandingAttempt(t *testing.T) {
	api := &fakeIdentity{}
	auth, _ := newAuth(api, session.NewMemoryStore(""))
	auth.StartSignup()

	_, err := auth.RequestEmailCode("new@example.com")
	require.NoError(t, err)

	_, err = auth.RequestEmailCode("new@example.com")
	assert.ErrorIs(t, err, ErrAttemptPending)
}

func TestAbandonedAttemptResultIsDiscarded(t *testing.T) {
	api := &fakeIdentity{}
	auth, _ := newAuth(api, session.NewMemoryStore(""))

	req, _ := auth.SubmitCredentials("driver@example.com", "pw")
	res := auth.Execute(context.Background(), req)

	auth.StartSignup()
	assert.NoError(t, auth.Apply(res))
	assert.Equal(t, EnterEmail, auth.State())
}

func TestSignup_WithoutTokenReturnsToLogin(t *testing.T) {
	api := &fakeIdentity{}
	store := session.NewMemoryStore("")
	auth, fired := newAuth(api, store)
	ctx := context.Background()

	auth.StartSignup()
	req, err := auth.RequestEmailCode("new@example.com")
	require.NoError(t, err)
	require.NoError(t, auth.Run(ctx, req))
	assert.Equal(t, AwaitingEmailCode, auth.State())

	req, err = auth.ConfirmEmailCode("4242")
	require.NoError(t, err)
	require.NoError(t, auth.Run(ctx, req))
	assert.Equal(t, EnterPassword, auth.State())

	_, err = auth.CompleteSignup("secret", "secrets")
	assert.True(t, client.IsValidation(err))
	assert.Equal(t, EnterPassword, auth.State())

	req, err = auth.CompleteSignup("secret", "secret")
	require.NoError(t, err)
	require.NoError(t, auth.Run(ctx, req))

	assert.Equal(t, EnterCredentials, auth.State())
	assert.Equal(t, SignupCompleteNotice, auth.Notice())
	assert.Equal(t, "new@example.com", auth.Email())
	assert.Zero(t, *fired)
	assert.Equal(t, []string{"RequestEmailCode", "ConfirmEmailCode", "SignUp"}, api.Calls())
}

func TestSignup_WithTokenAuthenticates(t *testing.T) {
	api := &fakeIdentity{signupToken: "tok-new"}
	store := session.NewMemoryStore("")
	auth, fired := newAuth(api, store)
	ctx := context.Background()

	auth.StartSignup()
	req, _ := auth.RequestEmailCode("new@example.com")
	require.NoError(t, auth.Run(ctx, req))
	req, _ = auth.ConfirmEmailCode("4242")
	require.NoError(t, auth.Run(ctx, req))
	req, _ = auth.CompleteSignup("secret", "secret")
	require.NoError(t, auth.Run(ctx, req))

	assert.Equal(t, Authenticated, auth.State())
	assert.Equal(t, 1, *fired)
}

func TestSignup_BadCodeStaysOnCodeStep(t *testing.T) {
	api := &fakeIdentity{confirmErr: &client.RejectedError{StatusCode: 400, Message: "Invalid code"}}
	auth, _ := newAuth(api, session.NewMemoryStore(""))
	ctx := context.Background()

	auth.StartSignup()
	req, _ := auth.RequestEmailCode("new@example.com")
	require.NoError(t, auth.Run(ctx, req))
	req, _ = auth.ConfirmEmailCode("1")

	assert.Error(t, auth.Run(ctx, req))
	assert.Equal(t, AwaitingEmailCode, auth.State())
	assert.Equal(t, "Invalid code", auth.Message())
}

func TestWrongStepIsRefused(t *testing.T) {
	auth, _ := newAuth(&fakeIdentity{}, session.NewMemoryStore(""))

	_, err := auth.ConfirmEmailCode("1234")
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestLogoutClearsTokenAndReturnsToEntry(t *testing.T) {
	store := session.NewMemoryStore("tok")
	auth, _ := newAuth(&fakeIdentity{}, store)
	require.NoError(t, auth.Resume())
	require.Equal(t, Authenticated, auth.State())

	require.NoError(t, auth.Logout())

	assert.Equal(t, EnterCredentials, auth.State())
	_, err := store.Load()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLogoutClearsFileStore(t *testing.T) {
	store := session.NewFileStore(t.TempDir())
	require.NoError(t, store.Save("tok"))
	auth, _ := newAuth(&fakeIdentity{}, store)

	require.NoError(t, auth.Logout())
	_, err := store.Load()
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestResume(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		auth, fired := newAuth(&fakeIdentity{}, session.NewMemoryStore(""))
		require.NoError(t, auth.Resume())
		assert.Equal(t, EnterCredentials, auth.State())
		assert.Zero(t, *fired)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(-time.Hour).Unix(),
		}).SignedString([]byte("k"))
		require.NoError(t, err)

		auth, fired := newAuth(&fakeIdentity{}, session.NewMemoryStore(expired))
		require.NoError(t, auth.Resume())
		assert.Equal(t, EnterCredentials, auth.State())
		assert.Contains(t, auth.Notice(), "expired")
		assert.Zero(t, *fired)
	})

	t.Run("valid token", func(t *testing.T) {
		auth, fired := newAuth(&fakeIdentity{}, session.NewMemoryStore("opaque"))
		require.NoError(t, auth.Resume())
		assert.Equal(t, Authenticated, auth.State())
		assert.Equal(t, 1, *fired)
	})
}

func TestInvalidate(t *testing.T) {
	store := session.NewMemoryStore("tok")
	auth, _ := newAuth(&fakeIdentity{}, store)
	require.NoError(t, auth.Resume())

	auth.Invalidate(&client.RejectedError{StatusCode: 401})

	assert.Equal(t, EnterCredentials, auth.State())
	assert.NotEmpty(t, auth.Notice())
	_, err := store.Load()
	assert.True(t, errors.Is(err, session.ErrNoSession))
}
