package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/habedi/tasksctl/auth"
	"github.com/habedi/tasksctl/pkg/clierr"
	"github.com/habedi/tasksctl/pkg/validation"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func loginCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the Tasks API",
		Long:  "Sign in with your username and password. The tokens are stored in the local database.",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.ErrOrStderr()

			if username == "" {
				var err error
				if username, err = promptForInput(in, out, "Username: "); err != nil {
					return clierr.New(clierr.Internal, "Failed to read input", err)
				}
			}
			password, err := promptForPassword(cmd.InOrStdin(), in, out, "Password: ")
			if err != nil {
				return clierr.New(clierr.Internal, "Failed to read password", err)
			}
			if err := validateCredentials(username, password); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			st, err := a.auth.Login(cmd.Context(), username, password)
			if err != nil {
				return clierr.New(clierr.Auth, "Login failed: "+err.Error(), err)
			}
			if tok, ok := a.store.AccessToken(); ok {
				a.scheduler.Schedule(tok)
			}
			cmd.Printf("Logged in as %s.\n", st.Identity.Email)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted when omitted)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove stored credentials",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			a.scheduler.Stop()
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return clierr.New(clierr.Internal, "Failed to clear credentials", err)
			}
			cmd.Println("Logged out.")
			return nil
		}),
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			printStatus(cmd, a.auth.Status(), time.Now())
			return nil
		}),
	}
}

func printStatus(cmd *cobra.Command, st auth.Status, now time.Time) {
	if !st.HasAccessToken {
		cmd.Println("Not logged in. Run 'tasksctl login' to sign in.")
		return
	}
	who := st.Identity.Email
	if st.Identity.UserID != "" {
		who = fmt.Sprintf("%s (%s)", who, st.Identity.UserID)
	}
	cmd.Println("User:", who)

	switch {
	case st.ExpiresAt.IsZero():
		cmd.Println("Access token: present (expiry unknown)")
	case st.Expired(now):
		cmd.Printf("Access token: expired at %s\n", st.ExpiresAt.Local().Format(time.RFC1123))
	default:
		cmd.Printf("Access token: valid until %s (%s left)\n",
			st.ExpiresAt.Local().Format(time.RFC1123), st.ExpiresAt.Sub(now).Truncate(time.Second))
	}
	switch {
	case st.HasRefreshToken:
		cmd.Println("Refresh token: stored")
	case st.HasRefreshCookie:
		cmd.Println("Refresh token: stored as session cookie")
	default:
		cmd.Println("Refresh token: none (log in again once the access token expires)")
	}
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.gateway.Refresh(cmd.Context()); err != nil {
				return classify(err, "Refresh failed")
			}
			cmd.Println("Access token refreshed.")
			return nil
		}),
	}
}

// promptForInput prints prompt and returns the trimmed line read from in.
func promptForInput(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptForPassword reads without echo when raw is a terminal and falls back to a plain
// line read otherwise, e.g. when the password is piped in.
func promptForPassword(raw io.Reader, in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	if f, ok := raw.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, prompt)
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(password)), nil
	}
	return promptForInput(in, out, prompt)
}

func validateCredentials(username, password string) error {
	if err := validation.ValidateNonEmptyString("username", username); err != nil {
		return err
	}
	return validation.ValidateNonEmptyString("password", password)
}
