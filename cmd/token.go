package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aure/rumtrack/internal/config"
	"github.com/spf13/cobra"
)

const tokenPrefix = "rumtrack_token_"

var saveToken bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage authentication tokens",
	Long:  `Generate and manage authentication tokens for the JSON API served by 'rumtrack serve'.`,
}

var tokenGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new authentication token",
	Long: `Generate a secure random token for authentication.

The token will be printed to stdout. Use --save to store it in ~/.rumtrack/tokens.
Generated tokens carry 32 random bytes (64 hex characters).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := generateSecureToken()
		if err != nil {
			return fmt.Errorf("generating token: %w", err)
		}

		fmt.Println("Generated token:")
		fmt.Println(token)
		fmt.Println()

		if saveToken {
			path, err := config.TokenFile()
			if err != nil {
				return fmt.Errorf("locating token file: %w", err)
			}
			if err := saveTokenToFile(path, token); err != nil {
				return fmt.Errorf("saving token: %w", err)
			}
			fmt.Printf("Token saved to %s\n", path)
		}

		fmt.Println("Usage:")
		fmt.Println("  - Set environment variable: export RUMTRACK_AUTH_TOKENS=" + token)
		fmt.Println("  - Or use the saved token file at ~/.rumtrack/tokens")
		fmt.Println("  - Include in requests: X-Auth-Token: <token>")
		fmt.Println()
		fmt.Println("Note: Localhost requests (127.0.0.1, ::1) are always allowed without token.")

		return nil
	},
}

func generateSecureToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return tokenPrefix + hex.EncodeToString(bytes), nil
}

// saveTokenToFile appends token to path, creating the directory with
// owner-only permissions.
func saveTokenToFile(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("opening token file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, token); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

func init() {
	tokenGenerateCmd.Flags().BoolVarP(&saveToken, "save", "s", false, "Save token to ~/.rumtrack/tokens")
	tokenCmd.AddCommand(tokenGenerateCmd)
	rootCmd.AddCommand(tokenCmd)
}
