package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	invalidateApp     string
	invalidateProfile string
	invalidateLabel   string
	invalidatePattern string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the server's response cache",
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Drop every cached response",
	RunE: func(cmd *cobra.Command, args []string) error {
		return doDelete(serverAddr + "/cache")
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Drop cached entries by pattern or by exact coordinates",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case invalidatePattern != "":
			q := url.Values{"pattern": []string{invalidatePattern}}
			return doDelete(serverAddr + "/cache?" + q.Encode())
		case invalidateApp != "" && invalidateProfile != "":
			label := invalidateLabel
			if label == "" {
				label = "main"
			}
			path := fmt.Sprintf("/cache/%s/%s/%s", url.PathEscape(invalidateApp), url.PathEscape(invalidateProfile), url.PathEscape(label))
			return doDelete(serverAddr + path)
		default:
			return fmt.Errorf("either --pattern or both --app and --profile must be given")
		}
	},
}

func init() {
	cacheInvalidateCmd.Flags().StringVar(&invalidatePattern, "pattern", "", "glob pattern over app:profiles:label")
	cacheInvalidateCmd.Flags().StringVar(&invalidateApp, "app", "", "application name")
	cacheInvalidateCmd.Flags().StringVar(&invalidateProfile, "profile", "", "profile name")
	cacheInvalidateCmd.Flags().StringVar(&invalidateLabel, "label", "main", "label (branch/tag/commit)")

	cacheCmd.AddCommand(cacheFlushCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
}

func doDelete(targetURL string) error {
	req, err := http.NewRequest(http.MethodDelete, targetURL, nil)
	if err != nil {
		return err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return decodeAPIError(resp)
	}

	fmt.Println("ok")
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return fmt.Errorf("server returned %s: %s (%s)", resp.Status, body.Error.Message, body.Error.Code)
}
