// Command boardctl drives a teamboard relay from a terminal. It mints
// development session tokens and runs the login/signup handshake with a
// retry prompt.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/gosuda/teamboard/internal/auth"
	"github.com/gosuda/teamboard/internal/authflow"
	"github.com/gosuda/teamboard/internal/domain"
)

const usage = `Usage: boardctl <command> [flags]

Commands:
  dev-token   mint a session token signed with TEAMBOARD_SESSION_SECRET
  login       verify an existing account with the relay
  signup      create an account through the relay
  status      show what the relay thinks of a session token

Run "boardctl <command> -h" for command flags.
`

type cli struct {
	in     *bufio.Reader
	stdin  *os.File // nil when input is not a terminal
	stdout io.Writer
	stderr io.Writer
}

func main() {
	c := &cli{in: bufio.NewReader(os.Stdin), stdout: os.Stdout, stderr: os.Stderr}
	if term.IsTerminal(int(os.Stdin.Fd())) { //nolint:gosec // fd fits in int
		c.stdin = os.Stdin
	}
	os.Exit(c.run(context.Background(), os.Args[1:]))
}

func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(c.stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "dev-token":
		err = c.devToken(args[1:])
	case "login":
		err = c.handshake(ctx, domain.AuthActionLogin, args[1:])
	case "signup":
		err = c.handshake(ctx, domain.AuthActionSignup, args[1:])
	case "status":
		err = c.status(ctx, args[1:])
	case "-h", "--help", "help":
		fmt.Fprint(c.stdout, usage)
		return 0
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n\n%s", args[0], usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
}

var errUsage = errors.New("usage")

func (c *cli) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) devToken(args []string) error {
	fs := c.flagSet("dev-token")
	subject := fs.String("subject", "", "Session subject (identity provider user id)")
	email := fs.String("email", "", "Email claim")
	ttl := fs.Duration("ttl", time.Hour, "Token lifetime")
	issuer := fs.String("issuer", os.Getenv("TEAMBOARD_SESSION_ISSUER"), "Issuer claim")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *subject == "" {
		fmt.Fprintln(c.stderr, "-subject is required")
		return errUsage
	}
	secret := os.Getenv("TEAMBOARD_SESSION_SECRET")
	if secret == "" {
		return errors.New("TEAMBOARD_SESSION_SECRET is not set")
	}

	tok, err := auth.IssueSessionToken(secret, *issuer, *subject, *email, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, tok)
	return nil
}

func (c *cli) handshake(ctx context.Context, action domain.AuthAction, args []string) error {
	fs := c.flagSet(string(action))
	relayURL := fs.String("relay", defaultRelay(), "Relay base URL")
	token := fs.String("token", os.Getenv("BOARDCTL_TOKEN"), "Session token (prompted when empty)")
	subject := fs.String("subject", "", "Identity provider user id")
	email := fs.String("email", "", "Email address")
	firstName := fs.String("first-name", "", "First name")
	lastName := fs.String("last-name", "", "Last name")
	imageURL := fs.String("image-url", "", "Avatar URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tok, err := c.sessionToken(*token)
	if err != nil {
		return err
	}

	claim := domain.SessionClaim{
		Token:     tok,
		Subject:   *subject,
		Email:     *email,
		FirstName: *firstName,
		LastName:  *lastName,
		ImageURL:  *imageURL,
	}

	ctrl := authflow.NewController(authflow.NewRelayClient(*relayURL, nil), action)
	ctrl.OnTransition(func(tr authflow.Transition) {
		if tr.To == authflow.StateLoading {
			fmt.Fprintln(c.stdout, tr.Snapshot.Step)
		}
	})

	if err := ctrl.TriggerSignedIn(ctx, claim); err != nil {
		return err
	}

	for {
		snap := ctrl.Snapshot()
		if snap.State == authflow.StateSuccess {
			c.printSuccess(snap)
			return nil
		}

		fmt.Fprintf(c.stderr, "✗ %s\n", snap.Message)
		if !c.confirm("Retry? [y/N] ") {
			return errors.New("authentication failed")
		}
		if err := ctrl.TriggerRetry(ctx); err != nil {
			return err
		}
	}
}

func (c *cli) printSuccess(snap authflow.Snapshot) {
	fmt.Fprintf(c.stdout, "✓ %s\n", snap.Message)
	if snap.User == nil {
		return
	}
	fmt.Fprintf(c.stdout, "  User ID: %s\n", snap.User.ID)
	fmt.Fprintf(c.stdout, "  Username: %s\n", snap.User.Username)
	fmt.Fprintf(c.stdout, "  Email: %s\n", snap.User.Email)
	if !snap.User.CreatedAt.IsZero() {
		fmt.Fprintf(c.stdout, "  Created: %s\n", snap.User.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if snap.IsNewUser {
		fmt.Fprintln(c.stdout, "  New account")
	}
}

func (c *cli) status(ctx context.Context, args []string) error {
	fs := c.flagSet("status")
	relayURL := fs.String("relay", defaultRelay(), "Relay base URL")
	token := fs.String("token", os.Getenv("BOARDCTL_TOKEN"), "Session token (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tok, err := c.sessionToken(*token)
	if err != nil {
		return err
	}

	st, err := authflow.NewRelayClient(*relayURL, nil).Status(ctx, tok)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "authenticated: %t\n", st.Authenticated)
	if st.UserID != "" {
		fmt.Fprintf(c.stdout, "user: %s\n", st.UserID)
	}
	return nil
}

// sessionToken returns flagValue or prompts for a token. Terminal input is
// not echoed.
func (c *cli) sessionToken(flagValue string) (string, error) {
	if tok := strings.TrimSpace(flagValue); tok != "" {
		return tok, nil
	}

	fmt.Fprint(c.stderr, "Enter session token: ")
	var tok string
	if c.stdin != nil {
		raw, err := term.ReadPassword(int(c.stdin.Fd())) //nolint:gosec // fd fits in int
		fmt.Fprintln(c.stderr)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		tok = string(raw)
	} else {
		line, err := c.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read token: %w", err)
		}
		tok = line
	}

	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", errors.New("token cannot be empty")
	}
	return tok, nil
}

func (c *cli) confirm(prompt string) bool {
	fmt.Fprint(c.stderr, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func defaultRelay() string {
	if v := os.Getenv("BOARDCTL_RELAY_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}
