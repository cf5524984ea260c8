// hashpw prints an argon2id PHC hash for a password, or a complete entry for
// the YAML credential directory when --username is given.
//
// The password is read from the terminal with echo disabled, or from the
// first line of stdin when stdin is not a terminal. It is never accepted as
// a command line argument.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/PeterMosmans/secure-coding-go/internal/core/domain"
	"github.com/PeterMosmans/secure-coding-go/internal/infrastructure/password"
)

type options struct {
	username string
	role     string
	params   password.Params
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin *os.File, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	pw, err := readPassword(stdin, stderr)
	if err != nil {
		return err
	}
	return emit(stdout, opts, pw)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	opts := options{params: password.DefaultParams}
	var memoryMiB uint32
	var parallelism uint8

	flagSet := pflag.NewFlagSet("hashpw", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&opts.username, "username", "u", "", "emit a credential directory entry for this user")
	flagSet.StringVarP(&opts.role, "role", "r", domain.RoleViewer, "role of the directory entry (admin, editor, viewer)")
	flagSet.Uint32Var(&memoryMiB, "memory", opts.params.Memory/1024, "argon2id memory cost in MiB")
	flagSet.Uint32Var(&opts.params.Iterations, "iterations", opts.params.Iterations, "argon2id time cost")
	flagSet.Uint8Var(&parallelism, "parallelism", opts.params.Parallelism, "argon2id lanes")

	if err := flagSet.Parse(args); err != nil {
		return opts, err
	}
	if flagSet.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments %v: the password is read from the terminal or stdin", flagSet.Args())
	}
	if memoryMiB == 0 || opts.params.Iterations == 0 || parallelism == 0 {
		return opts, errors.New("memory, iterations and parallelism must be positive")
	}
	opts.params.Memory = memoryMiB * 1024
	opts.params.Parallelism = parallelism

	switch opts.role {
	case domain.RoleAdmin, domain.RoleEditor, domain.RoleViewer:
	default:
		return opts, fmt.Errorf("unknown role %q", opts.role)
	}
	return opts, nil
}

// readPassword prompts twice on a terminal; otherwise it reads one line.
func readPassword(stdin *os.File, stderr io.Writer) (string, error) {
	fd := int(stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(stdin)
	}

	fmt.Fprint(stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprint(stderr, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	if len(first) == 0 {
		return "", errors.New("empty password")
	}
	return string(first), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}

func emit(w io.Writer, opts options, pw string) error {
	hash, err := password.Hash(pw, opts.params)
	if err != nil {
		return err
	}
	if opts.username == "" {
		_, err = fmt.Fprintln(w, hash)
		return err
	}

	entry := []domain.CredentialRecord{{Username: opts.username, PasswordHash: hash, Role: opts.role}}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"users": entry}); err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	return enc.Close()
}
