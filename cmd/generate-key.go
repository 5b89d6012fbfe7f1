package cmd

import (
	"fmt"

	"github.com/quietdash/quietdash/internal/crypto"
	"github.com/spf13/cobra"
)

var generateKeyCmd = &cobra.Command{
	Use:   "generate-key",
	Short: "Generate an API key encryption secret",
	Long:  `Generate a random 32 character secret to use as encryption.key (or ENCRYPTION_KEY).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.GenerateKey()
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}

		fmt.Println("Add this to your configuration:")
		fmt.Println()
		fmt.Println("encryption:")
		fmt.Printf("  key: %q\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateKeyCmd)
}
