// Command jwks-to-pem prints the Supabase Auth signing key as PEM, the form
// SUPABASE_JWT_SECRET takes when the project signs tokens asymmetrically.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"storefront/internal/util"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const localSupabaseURL = "http://127.0.0.1:54321"

var supabaseURL string

var rootCmd = &cobra.Command{
	Use:          "jwks-to-pem",
	Short:        "Print the Supabase Auth signing key as a PEM public key",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		url := strings.TrimRight(supabaseURL, "/") + "/auth/v1/.well-known/jwks.json"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("fetching JWKS: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fetching JWKS: status %d", resp.StatusCode)
		}

		var jwks util.JWKS
		if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
			return fmt.Errorf("parsing JWKS: %w", err)
		}
		key, err := jwks.SigningKey()
		if err != nil {
			return err
		}
		pemBytes, err := key.PEM()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(pemBytes)
		return err
	},
}

func main() {
	_ = godotenv.Load()

	defaultURL := os.Getenv("SUPABASE_URL")
	if defaultURL == "" {
		defaultURL = localSupabaseURL
	}
	rootCmd.Flags().StringVar(&supabaseURL, "url", defaultURL, "Supabase project URL")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
