package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/asistencia/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	usrRepo user.Repository
	usrSvc  *user.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -name NAME -email EMAIL [-role admin|teacher|student] - create a user; the password is prompted next")
	fmt.Println("  resetpassword -email EMAIL - reset user's password; the password is prompted next")
	fmt.Println("  migrate COMMAND [ARGS...] - run a goose command (up, down, status, version, redo, reset, up-to VERSION...)")
	fmt.Println("  purgetokens - delete the expired password recovery tokens")
}

// promptPassword reads a password from the terminal. An empty password prints usage.
func promptPassword(prompt string, usage func()) (string, error) {
	fmt.Print(prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", string(user.RoleAdmin), "One of admin, teacher or student.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("Enter password:", addUserCmd.Usage)
		if err != nil {
			return err
		}
		usr, err := cli.addUser(ctx, *addUserName, *addUserEmail, user.Role(*addUserRole), pwd)
		if err != nil {
			return err
		}
		fmt.Printf("user #%d (%s) created\n", usr.ID, usr.Email)
		return nil

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("Enter password:", resetPasswordCmd.Usage)
		if err != nil {
			return err
		}
		return cli.resetPassword(ctx, *resetPasswordEmail, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])

	case "purgetokens":
		n, err := cli.usrSvc.PurgeExpiredTokens(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d expired tokens purged\n", n)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}
