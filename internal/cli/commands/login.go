package commands

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/storeadmin-dev/storeadmin/internal/login"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password, serverAlias string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the store API as an admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()
			return runSubmit(ctx, login.ModeLogin, login.Form{Email: email, Password: password}, serverAlias)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set STOREADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set STOREADMIN_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias or URL")

	return cmd
}

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	var name, email, password, serverAlias string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an admin account on the store API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()
			return runSubmit(ctx, login.ModeRegister, login.Form{Name: name, Email: email, Password: password}, serverAlias)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Admin name")
	cmd.Flags().StringVar(&email, "email", "", "Email address (or set STOREADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set STOREADMIN_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias or URL")

	return cmd
}

// readPassword prompts for a password when stdin is a terminal
func readPassword() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", errors.New("password is required in non-interactive mode (use --password flag or STOREADMIN_PASSWORD env var)")
	}

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

// fillCredentials applies the environment fallbacks (useful for CI/CD) and
// the interactive password prompt
func fillCredentials(form *login.Form) error {
	if form.Email == "" {
		form.Email = os.Getenv("STOREADMIN_EMAIL")
	}
	if form.Password == "" {
		form.Password = os.Getenv("STOREADMIN_PASSWORD")
	}
	if form.Email == "" {
		return errors.New("email is required (use --email flag or STOREADMIN_EMAIL env var)")
	}
	if form.Password == "" {
		password, err := readPassword()
		if err != nil {
			return err
		}
		form.Password = password
	}
	return nil
}
