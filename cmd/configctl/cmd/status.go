package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the refresh worker's current state",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := httpClient.Get(serverAddr + "/admin/status")
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return decodeAPIError(resp)
		}

		var status map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		for _, key := range []string{"phase", "currentCommit", "currentLabel", "lastRefreshTime", "refreshCount", "consecutiveFailures", "lastError", "cacheEntries"} {
			if v, ok := status[key]; ok {
				fmt.Printf("%-20s %v\n", key+":", v)
			}
		}
		return nil
	},
}
