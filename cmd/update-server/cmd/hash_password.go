package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oshokin/update-server/internal/auth"
)

var errEmptyPassword = errors.New("password is empty")

// hashPasswordCmd prints a bcrypt hash for auth.local.users.
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash a password read from stdin for a local user entry.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}

		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return errEmptyPassword
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), hash)

		return nil
	},
}
