// Command keystore reads and writes a keystore file.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/celerix-dev/celerix-keystore/internal/config"
	"github.com/celerix-dev/celerix-keystore/internal/engine"
	"github.com/celerix-dev/celerix-keystore/internal/logging"
	pkgengine "github.com/celerix-dev/celerix-keystore/pkg/engine"
	"github.com/celerix-dev/celerix-keystore/pkg/sdk"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

var version = "dev"

// usageError is reported with exit status 2.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

type cli struct {
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger

	path     string
	password string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr}
	err := c.execute(args)
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	var usage *usageError
	if errors.As(err, &usage) {
		return 2
	}
	return 1
}

func (c *cli) execute(args []string) error {
	var askPassword bool

	flagSet := pflag.NewFlagSet("keystore", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&c.path, "path", "", "keystore file path (default: $KEYSTORE_PATH or ./.keystore.json)")
	flagSet.StringVar(&c.password, "password", "", "encryption password (default: $KEYSTORE_PASSWORD)")
	flagSet.BoolVar(&askPassword, "ask-password", false, "prompt for the password with echo disabled")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			c.printHelp(flagSet)
			return nil
		}
		return usagef("%v", err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		c.printHelp(flagSet)
		return nil
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		c.printHelp(flagSet)
		return nil
	}

	if askPassword {
		pw, err := promptPassword(c.stderr)
		if err != nil {
			return err
		}
		c.password = pw
	}

	c.logger = logging.New(os.Getenv(config.EnvLogLevel))

	cmd, cmdArgs := strings.ToLower(rest[0]), rest[1:]
	switch cmd {
	case "read":
		if len(cmdArgs) > 1 {
			return usagef("usage: keystore read [key]")
		}
		ks, err := c.open()
		if err != nil {
			return err
		}
		return c.read(ks, cmdArgs)

	case "write":
		if len(cmdArgs) < 2 {
			return usagef("usage: keystore write <key> <value>")
		}
		ks, err := c.open()
		if err != nil {
			return err
		}
		return c.write(ks, cmdArgs[0], cmdArgs[1:])

	case "delete":
		if len(cmdArgs) != 1 {
			return usagef("usage: keystore delete <key>")
		}
		ks, err := c.open()
		if err != nil {
			return err
		}
		return c.delete(ks, cmdArgs[0])

	case "init":
		if len(cmdArgs) != 0 {
			return usagef("usage: keystore init")
		}
		path := config.ResolvePath(c.path)
		return c.initStore(engine.NewFileStore(path, config.ResolvePassword(c.password), engine.WithLogger(c.logger)))

	case "version":
		fmt.Fprintf(c.stdout, "keystore %s\n", version)
		return nil

	default:
		return usagef("unknown command %q (want read, write, delete, init or version)", rest[0])
	}
}

// open uses the file named by --path when given, and otherwise whatever the
// environment selects: a keystored daemon or the default file.
func (c *cli) open() (sdk.Keystore, error) {
	if c.path != "" {
		return engine.NewFileStore(c.path, config.ResolvePassword(c.password), engine.WithLogger(c.logger)), nil
	}
	return sdk.Open("", c.password)
}

func (c *cli) read(ks sdk.Keystore, args []string) error {
	if _, err := ks.Read(); err != nil {
		return err
	}
	if len(args) == 1 {
		val, err := ks.Get(args[0])
		if errors.Is(err, pkgengine.ErrKeyNotFound) {
			return fmt.Errorf("key not found: %s", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, val)
		return nil
	}

	data, err := ks.GetAll()
	if err != nil {
		return err
	}
	return printJSON(c.stdout, data)
}

func (c *cli) write(ks sdk.Keystore, key string, valueArgs []string) error {
	value := cleanValue(valueArgs)
	if err := ks.Set(key, value); err != nil {
		return err
	}
	if err := ks.Write(); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Written: %s\n", key)
	return nil
}

func (c *cli) delete(ks sdk.Keystore, key string) error {
	err := ks.Delete(key)
	if errors.Is(err, pkgengine.ErrKeyNotFound) {
		return fmt.Errorf("key not found: %s", key)
	}
	if err != nil {
		return err
	}
	if err := ks.Write(); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Deleted: %s\n", key)
	return nil
}

func (c *cli) initStore(fs *engine.FileStore) error {
	if _, err := os.Stat(fs.Path()); err == nil {
		return fmt.Errorf("%w: %s", pkgengine.ErrAlreadyExists, fs.Path())
	}
	fs.Replace(map[string]string{})
	if err := fs.Write(); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Created: %s\n", fs.Path())
	return nil
}

// cleanValue joins the value arguments with spaces and strips surrounding
// whitespace and quotes left over from shell quoting.
func cleanValue(args []string) string {
	return strings.Trim(strings.TrimSpace(strings.Join(args, " ")), `'"`)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func promptPassword(prompt io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", usagef("no terminal available for --ask-password (use --password or KEYSTORE_PASSWORD)")
	}
	fmt.Fprint(prompt, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

func (c *cli) printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(c.stdout, `keystore - read and write keystore storage

Usage:
  keystore [flags] read [key]           print one value, or every credential as JSON
  keystore [flags] write <key> <value>  set a credential and save
  keystore [flags] delete <key>         remove a credential and save
  keystore [flags] init                 create an empty keystore file
  keystore version

Flags:
%s`, flagSet.FlagUsages())
}
