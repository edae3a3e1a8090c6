package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/server"
	"github.com/dmitrijs2005/gophmail/internal/server/config"
	"github.com/dmitrijs2005/gophmail/internal/server/models"
	"github.com/dmitrijs2005/gophmail/internal/server/services"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const usersCommandTimeout = 30 * time.Second

var usersConfigPath string

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage gophmail accounts.",
}

var (
	createAdminEmail         string
	createAdminPassword      string
	createAdminPasswordStdin bool
	createAdminDisplayName   string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(createAdminEmail) == "" {
			return errors.New("--email is required")
		}
		password, err := resolvePassword(cmd, os.Stdin)
		if err != nil {
			return err
		}

		return withUserService(func(ctx context.Context, svc *services.UserService) error {
			u, err := svc.CreateUser(ctx, createAdminEmail, password, createAdminDisplayName, models.RoleAdmin)
			if err != nil {
				return err
			}
			cmd.Printf("created admin user: %s (%s)\n", u.Email, u.ID)
			return nil
		})
	},
}

var disableUserCmd = &cobra.Command{
	Use:   "disable <email>",
	Short: "Disable an account and revoke its refresh tokens.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setActive(cmd, args[0], false)
	},
}

var enableUserCmd = &cobra.Command{
	Use:   "enable <email>",
	Short: "Re-enable an account.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setActive(cmd, args[0], true)
	},
}

var setRoleCmd = &cobra.Command{
	Use:   "set-role <email> <role>",
	Short: "Change an account's role (user or admin).",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := models.ParseRole(args[1])
		if err != nil {
			return err
		}
		return withUserService(func(ctx context.Context, svc *services.UserService) error {
			u, err := svc.UserByEmail(ctx, args[0])
			if err != nil {
				return err
			}
			if _, err := svc.SetRole(ctx, "", u.ID, role); err != nil {
				return err
			}
			cmd.Printf("%s is now %s\n", u.Email, role)
			return nil
		})
	},
}

func init() {
	usersCmd.PersistentFlags().StringVarP(&usersConfigPath, "config", "c", "", "JSON config file")

	createAdminCmd.Flags().StringVar(&createAdminEmail, "email", "", "admin email")
	createAdminCmd.Flags().StringVar(&createAdminPassword, "password", "", "admin password (prompted when omitted)")
	createAdminCmd.Flags().BoolVar(&createAdminPasswordStdin, "password-stdin", false, "read the password from stdin")
	createAdminCmd.Flags().StringVar(&createAdminDisplayName, "name", "", "display name")

	usersCmd.AddCommand(createAdminCmd, disableUserCmd, enableUserCmd, setRoleCmd)
}

func setActive(cmd *cobra.Command, email string, active bool) error {
	return withUserService(func(ctx context.Context, svc *services.UserService) error {
		u, err := svc.UserByEmail(ctx, email)
		if err != nil {
			return err
		}
		if _, err := svc.SetActive(ctx, "", u.ID, active); err != nil {
			return err
		}
		state := "disabled"
		if active {
			state = "enabled"
		}
		cmd.Printf("%s %s\n", u.Email, state)
		return nil
	})
}

func loadUsersConfig() *config.Config {
	var args []string
	if usersConfigPath != "" {
		args = []string{"-c", usersConfigPath}
	}
	return config.LoadConfig(args)
}

func withUserService(fn func(ctx context.Context, svc *services.UserService) error) error {
	cfg := loadUsersConfig()

	ctx, cancel := context.WithTimeout(context.Background(), usersCommandTimeout)
	defer cancel()

	svc, closeFn, err := server.NewOperatorService(ctx, cfg, logging.Nop{})
	if err != nil {
		return err
	}
	defer closeFn()

	return fn(ctx, svc)
}

func resolvePassword(cmd *cobra.Command, stdin *os.File) (string, error) {
	if createAdminPasswordStdin && createAdminPassword != "" {
		return "", errors.New("--password-stdin and --password are mutually exclusive")
	}

	if createAdminPasswordStdin {
		password, err := readPasswordLine(stdin)
		if err != nil {
			return "", err
		}
		if password == "" {
			return "", errors.New("password is empty")
		}
		return password, nil
	}

	if createAdminPassword != "" {
		return createAdminPassword, nil
	}

	if !term.IsTerminal(int(stdin.Fd())) {
		return "", errors.New("no password provided (use --password or --password-stdin)")
	}

	cmd.Print("Password: ")
	pass1, err := term.ReadPassword(int(stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", err
	}
	if len(pass1) == 0 {
		return "", errors.New("password is empty")
	}

	cmd.Print("Confirm password: ")
	pass2, err := term.ReadPassword(int(stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", err
	}
	if string(pass1) != string(pass2) {
		return "", errors.New("passwords do not match")
	}

	return string(pass1), nil
}

func readPasswordLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		return "", scanner.Err()
	}
	return strings.TrimRight(scanner.Text(), "\r\n"), nil
}
