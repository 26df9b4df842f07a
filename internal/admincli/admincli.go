// Package admincli implements the operator commands of the admin binary:
// creating principals, revoking all sessions of a principal and purging
// expired refresh tokens.
package admincli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/devlearning/devauth/internal/common"
	"github.com/devlearning/devauth/internal/flagx"
	"github.com/devlearning/devauth/internal/server/models"
	"github.com/devlearning/devauth/internal/timex"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

const usage = `usage: devauth-admin <command> [flags]

commands:
  create-principal -email <email> [-role STUDENT|INSTRUCTOR|ADMIN]
  revoke-all       -email <email>
  purge-expired

Server flags (-d, -c, -env ...) select the database as for the server.
`

type Principals interface {
	Register(ctx context.Context, email, password string, role models.Role) (*models.Principal, error)
	FindByIdentifier(ctx context.Context, email string) (*models.Principal, error)
}

type Revoker interface {
	RevokeAll(ctx context.Context, principalID string) (int64, error)
}

type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type App struct {
	principals Principals
	revoker    Revoker
	purger     Purger
	clock      timex.Clock
	out        io.Writer
	stdinFd    int
}

func NewApp(p Principals, r Revoker, purger Purger, clock timex.Clock, out io.Writer) *App {
	return &App{
		principals: p,
		revoker:    r,
		purger:     purger,
		clock:      clock,
		out:        out,
		stdinFd:    int(os.Stdin.Fd()),
	}
}

// Run executes args[0] with the remaining args and returns a process exit
// code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "create-principal":
		err = a.createPrincipal(ctx, args[1:])
	case "revoke-all":
		err = a.revokeAll(ctx, args[1:])
	case "purge-expired":
		err = a.purgeExpired(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return 0
	default:
		fmt.Fprintf(a.out, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return 1
	}
	return 0
}

func parseCommandFlags(name string, args []string, out io.Writer, def func(fs *flag.FlagSet)) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	def(fs)

	var own []string
	fs.VisitAll(func(f *flag.Flag) { own = append(own, "-"+f.Name) })
	return fs.Parse(flagx.FilterArgs(args, own))
}

func (a *App) createPrincipal(ctx context.Context, args []string) error {
	var email, role string
	err := parseCommandFlags("create-principal", args, a.out, func(fs *flag.FlagSet) {
		fs.StringVar(&email, "email", "", "principal email")
		fs.StringVar(&role, "role", string(models.RoleStudent), "principal role")
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(email) == "" {
		return errors.New("-email is required")
	}

	pw, err := a.promptPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	p, err := a.principals.Register(ctx, email, string(pw), models.Role(role))
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return fmt.Errorf("principal %s already exists", email)
		}
		return err
	}
	fmt.Fprintf(a.out, "created principal %s (%s, %s)\n", p.ID, p.Email, p.Role)
	return nil
}

// promptPassword reads the password twice without echo.
func (a *App) promptPassword() ([]byte, error) {
	fmt.Fprint(a.out, "Enter password: ")
	pw, err := readPassword(a.stdinFd)
	fmt.Fprintln(a.out)
	if err != nil {
		return nil, err
	}

	fmt.Fprint(a.out, "Repeat password: ")
	again, err := readPassword(a.stdinFd)
	fmt.Fprintln(a.out)
	defer common.WipeByteArray(again)
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}

	if len(pw) == 0 || string(pw) != string(again) {
		common.WipeByteArray(pw)
		return nil, errors.New("passwords are empty or do not match")
	}
	return pw, nil
}

func (a *App) revokeAll(ctx context.Context, args []string) error {
	var email string
	err := parseCommandFlags("revoke-all", args, a.out, func(fs *flag.FlagSet) {
		fs.StringVar(&email, "email", "", "principal email")
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(email) == "" {
		return errors.New("-email is required")
	}

	p, err := a.principals.FindByIdentifier(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("principal %s not found", email)
		}
		return err
	}

	n, err := a.revoker.RevokeAll(ctx, p.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "revoked %d refresh token(s) of %s\n", n, p.Email)
	return nil
}

func (a *App) purgeExpired(ctx context.Context) error {
	n, err := a.purger.PurgeExpired(ctx, a.clock())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "purged %d expired refresh token(s)\n", n)
	return nil
}
