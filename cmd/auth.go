// ABOUTME: Login, signup and logout commands
// ABOUTME: Drive the auth flow one step at a time with interactive prompts

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/neves-cloud/blackbox/internal/flow"
	"github.com/spf13/cobra"
)

var authEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email, password and an emailed code",
	Long: `Sign in to the dashcam service. After your password is accepted a
one-time code is emailed to you; enter it to finish signing in.

Exit codes:
  0 - Signed in
  1 - Rejected by the identity service
  2 - Error (connectivity, invalid input)`,
	Run: runCommand(func(ctx context.Context, d *deps, w io.Writer) int {
		return runLogin(ctx, d, huhPrompter{}, authEmail, w)
	}),
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Long:  `Create an account: verify your email with a code, then choose a password.`,
	Run: runCommand(func(ctx context.Context, d *deps, w io.Writer) int {
		return runSignup(ctx, d, huhPrompter{}, authEmail, w)
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Run:   runCommand(runLogout),
}

func init() {
	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd)
	loginCmd.Flags().StringVar(&authEmail, "email", "", "Account email (prompted when omitted)")
	signupCmd.Flags().StringVar(&authEmail, "email", "", "Account email (prompted when omitted)")
}

// runLogin walks EnterCredentials → AwaitingSecondFactor → Authenticated
func runLogin(ctx context.Context, d *deps, p prompter, email string, w io.Writer) int {
	auth := flow.NewAuth(d.client, d.store)

	var password string
	if email == "" {
		if err := p.Input("Email", "you@example.com", &email); err != nil {
			return fail(w, err)
		}
	}
	if err := p.Secret("Password", &password); err != nil {
		return fail(w, err)
	}

	req, err := auth.SubmitCredentials(email, password)
	if err != nil {
		return fail(w, err)
	}
	if err := auth.Run(ctx, req); err != nil {
		fmt.Fprintf(w, "Error: %s\n", auth.Message())
		return exitCodeFor(err)
	}
	fmt.Fprintln(w, auth.Notice())

	var code string
	if err := p.Input("Code", "from your email", &code); err != nil {
		return fail(w, err)
	}
	req, err = auth.SubmitSecondFactor(code)
	if err != nil {
		return fail(w, err)
	}
	if err := auth.Run(ctx, req); err != nil {
		fmt.Fprintf(w, "Error: %s\n", auth.Message())
		return exitCodeFor(err)
	}

	fmt.Fprintf(w, "Signed in as %s\n", auth.Email())
	return exitOK
}

// runSignup walks EnterEmail → AwaitingEmailCode → EnterPassword
func runSignup(ctx context.Context, d *deps, p prompter, email string, w io.Writer) int {
	auth := flow.NewAuth(d.client, d.store)
	auth.StartSignup()

	steps := []func() (flow.AuthRequest, error){
		func() (flow.AuthRequest, error) {
			if email == "" {
				if err := p.Input("Email", "you@example.com", &email); err != nil {
					return flow.AuthRequest{}, err
				}
			}
			return auth.RequestEmailCode(email)
		},
		func() (flow.AuthRequest, error) {
			var code string
			if err := p.Input("Verification code", "from your email", &code); err != nil {
				return flow.AuthRequest{}, err
			}
			return auth.ConfirmEmailCode(code)
		},
		func() (flow.AuthRequest, error) {
			var password, confirm string
			if err := p.Secret("Password", &password); err != nil {
				return flow.AuthRequest{}, err
			}
			if err := p.Secret("Confirm password", &confirm); err != nil {
				return flow.AuthRequest{}, err
			}
			return auth.CompleteSignup(password, confirm)
		},
	}

	for _, submit := range steps {
		req, err := submit()
		if err != nil {
			return fail(w, err)
		}
		if err := auth.Run(ctx, req); err != nil {
			fmt.Fprintf(w, "Error: %s\n", auth.Message())
			return exitCodeFor(err)
		}
		if auth.Notice() != "" && auth.State() != flow.EnterCredentials {
			fmt.Fprintln(w, auth.Notice())
		}
	}

	if auth.State() == flow.Authenticated {
		fmt.Fprintf(w, "Account created. Signed in as %s\n", auth.Email())
		return exitOK
	}
	fmt.Fprintf(w, "%s Run `blackbox login --email %s`.\n", auth.Notice(), auth.Email())
	return exitOK
}

func runLogout(ctx context.Context, d *deps, w io.Writer) int {
	auth := flow.NewAuth(d.client, d.store)
	if err := auth.Logout(); err != nil {
		return fail(w, err)
	}
	fmt.Fprintln(w, "Signed out.")
	return exitOK
}
