// Command admin performs operator tasks against the database directly.
//
//	admin adduser -name Maria -email maria@example.com [-password s3nha] [-d dsn]
//
// When -password is omitted the password is read from the terminal without
// echo, or as a single line from a non-terminal stdin.
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

	"github.com/daianaegermichels/financas/internal/common"
	"github.com/daianaegermichels/financas/internal/logging"
	"github.com/daianaegermichels/financas/internal/server/config"
	"github.com/daianaegermichels/financas/internal/server/events"
	"github.com/daianaegermichels/financas/internal/server/models"
	"github.com/daianaegermichels/financas/internal/server/repositories/repomanager"
	"github.com/daianaegermichels/financas/internal/server/services"
	"golang.org/x/term"
)

type registrar interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
}

// test seams
var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

// openRegistrar connects to the database, applies migrations and returns a
// user service bound to it.
var openRegistrar = func(ctx context.Context, dsn string) (registrar, io.Closer, error) {
	db, err := repomanager.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = dsn

	return services.NewUserService(db, rm, cfg, events.NopPublisher{}, logging.Nop{}), db, nil
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: admin adduser -name NAME -email EMAIL [-password PASSWORD] [-d DSN]")
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	switch args[0] {
	case "adduser":
		if err := addUser(ctx, args[1:], stdin, stdout, stderr); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return 0
			}
			fmt.Fprintf(stderr, "error: %s\n", common.Message(err))
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}
}

func addUser(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	defaultDSN := os.Getenv(config.EnvDatabaseDSN)
	if defaultDSN == "" {
		c := &config.Config{}
		c.LoadDefaults()
		defaultDSN = c.DatabaseDSN
	}

	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "user name")
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "user password (prompted when empty)")
	dsn := fs.String("d", defaultDSN, "database DSN")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" || *email == "" {
		return errors.New("-name and -email are required")
	}

	pw := *password
	if pw == "" {
		var err error
		if pw, err = promptPassword(stdin, stdout); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	reg, closer, err := openRegistrar(ctx, *dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer closer.Close()

	u, err := reg.Register(ctx, *name, *email, pw)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "user %d created: %s <%s>\n", u.ID, u.Name, u.Email)
	return nil
}

// promptPassword reads without echo from a terminal, otherwise one line.
func promptPassword(stdin io.Reader, w io.Writer) (string, error) {
	if f, ok := stdin.(*os.File); ok && isTerminal(int(f.Fd())) {
		fmt.Fprint(w, "Password: ")
		pw, err := readPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	sc := bufio.NewScanner(stdin)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(sc.Text()), nil
}
