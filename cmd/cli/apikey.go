package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/anstrom/portsweep/internal/auth"
)

var (
	apiKeyName   string
	apiKeyOutput string
)

// apiKeyCmd represents the apikey command group
var apiKeyCmd = &cobra.Command{
	Use:     "apikey",
	Aliases: []string{"apikeys", "key"},
	Short:   "Manage API keys for the HTTP API",
	Long: `Manage API keys for client authentication with 'portsweep serve'.

The server never stores plaintext keys. Generate a key, hand the key to
the client and add the printed hash to api.api_keys in the config file.`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// apiKeyGenerateCmd creates a new API key
var apiKeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API key and its hash",
	Long: `Generate a random API key and print it together with its bcrypt hash.

The key is displayed only once. Clients send it in the X-API-Key header
or as 'Authorization: Bearer <key>'.`,
	Example: `  portsweep apikey generate --name "CI pipeline"
  portsweep apikey generate --output json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := auth.GenerateAPIKey(apiKeyName)
		if err != nil {
			return err
		}
		return printAPIKey(cmd.OutOrStdout(), key, apiKeyOutput)
	},
}

func init() {
	rootCmd.AddCommand(apiKeyCmd)
	apiKeyCmd.AddCommand(apiKeyGenerateCmd)

	apiKeyGenerateCmd.Flags().StringVar(&apiKeyName, "name", "default", "Name recorded with the key")
	apiKeyGenerateCmd.Flags().StringVarP(&apiKeyOutput, "output", "o", "text", "Output format: text, json")
}

func printAPIKey(w io.Writer, key *auth.GeneratedAPIKey, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(key)
	case "text", "":
	default:
		return fmt.Errorf("unsupported output format %q (use text or json)", output)
	}

	fmt.Fprintf(w, "API key generated for %q\n\n", key.Name)
	fmt.Fprintf(w, "Key:    %s\n", key.Key)
	fmt.Fprintf(w, "Hash:   %s\n", key.Hash)
	fmt.Fprintf(w, "Prefix: %s\n\n", key.Prefix)
	fmt.Fprintln(w, "Save the key now; it cannot be shown again. Enable it on the server with:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  api:")
	fmt.Fprintln(w, "    auth_enabled: true")
	fmt.Fprintln(w, "    api_keys:")
	fmt.Fprintf(w, "      - %q\n", key.Hash)
	return nil
}
