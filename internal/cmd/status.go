package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	errwrap "github.com/astrofront/astrofront/internal/errors"
	"github.com/astrofront/astrofront/internal/output"
	"github.com/astrofront/astrofront/internal/server/handlers"
)

var (
	statusFormat  string
	statusTimeout time.Duration
	statusHost    string
	statusPort    int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show live pipeline state of a running server",
	Long:  "Fetch /status from a running server and render the rate limiter, cache, and gate snapshots.",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(statusFormat)
		if err != nil {
			return err
		}

		host := statusHost
		if host == "" {
			host = viper.GetString("server.host")
		}
		if host == "" || host == "0.0.0.0" {
			host = "127.0.0.1"
		}
		port := statusPort
		if port == 0 {
			port = viper.GetInt("server.port")
		}
		url := fmt.Sprintf("http://%s:%d/status", host, port)

		status, err := fetchStatus(cmd.Context(), url)
		if err != nil {
			return err
		}

		rendered, err := output.NewFormatter(format).FormatStatus(status)
		if err != nil {
			return err
		}
		fmt.Println(rendered)
		return nil
	},
}

func fetchStatus(ctx context.Context, url string) (*handlers.StatusResponse, error) {
	client := &http.Client{Timeout: statusTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errwrap.WrapInternal(ctx, err, fmt.Sprintf("server unreachable at %s", url))
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var status handlers.StatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusFormat, "format", string(output.FormatTable), "Output format: table|json|yaml")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 5*time.Second, "HTTP request timeout")
	statusCmd.Flags().StringVar(&statusHost, "host", "", "Server host (overrides config)")
	statusCmd.Flags().IntVar(&statusPort, "port", 0, "Server port (overrides config)")
}
