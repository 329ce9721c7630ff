package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force an immediate refresh cycle and wait for its result",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := httpClient.Post(serverAddr+"/admin/refresh", "application/json", nil)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return decodeAPIError(resp)
		}

		var body struct {
			Commit string `json:"commit"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		fmt.Printf("refreshed, commit=%s\n", body.Commit)
		return nil
	},
}
