package cmd

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverAddr string
	httpClient = &http.Client{Timeout: 30 * time.Second}
)

var rootCmd = &cobra.Command{
	Use:   "configctl",
	Short: "Operate a running configuration server",
	Long: `configctl talks to a running configuration server's admin surface.

Examples:
  # Force a refresh and wait for the result
  configctl refresh

  # Print the refresh worker's current state
  configctl status

  # Drop every cached response
  configctl cache flush

  # Drop cached responses matching a glob over "app:profiles:label"
  configctl cache invalidate --pattern 'myapp:*'

  # Drop a single cached entry
  configctl cache invalidate --app myapp --profile prod --label main
`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "http://127.0.0.1:8888", "base URL of the configuration server")
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cacheCmd)
}
