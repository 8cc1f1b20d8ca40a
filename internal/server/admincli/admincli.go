// Package admincli implements the ensureadmin command: it creates the
// superuser account when it does not exist yet.
package admincli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

var knownFlags = []string{"-email", "-password"}

// EnsureFunc is services.AccountService.EnsureAdmin.
type EnsureFunc func(ctx context.Context, email, password string) (bool, error)

// Run resolves the admin credentials from flags, then ADMIN_EMAIL and
// ADMIN_PASSWORD, and finally prompts on in. Other arguments are ignored so
// server flags can be passed alongside.
func Run(ctx context.Context, args []string, lookup func(string) (string, bool), in io.Reader, out io.Writer, ensure EnsureFunc) error {
	fs := flag.NewFlagSet("ensureadmin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	email := fs.String("email", "", "admin email")
	password := fs.String("password", "", "admin password")
	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	if *email == "" {
		*email, _ = lookup("ADMIN_EMAIL")
	}
	if *password == "" {
		*password, _ = lookup("ADMIN_PASSWORD")
	}

	reader := bufio.NewReader(in)
	var err error
	if *email == "" {
		if *email, err = getSimpleText(reader, "Email address", out); err != nil {
			return fmt.Errorf("read email: %w", err)
		}
	}
	if *password == "" {
		if *password, err = getPassword(reader, in, out); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	created, err := ensure(ctx, *email, *password)
	if err != nil {
		return err
	}

	if created {
		fmt.Fprintf(out, "Superuser %s created.\n", strings.TrimSpace(*email))
	} else {
		fmt.Fprintf(out, "Superuser %s already exists, nothing to do.\n", strings.TrimSpace(*email))
	}
	return nil
}

func getSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// getPassword reads without echo when in is a terminal and falls back to a
// plain line otherwise.
func getPassword(reader *bufio.Reader, in io.Reader, w io.Writer) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !isTerminal(int(f.Fd())) {
		return getSimpleText(reader, "Password", w)
	}

	if _, err := fmt.Fprint(w, "Password: "); err != nil {
		return "", err
	}
	pw, err := readPassword(int(f.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
