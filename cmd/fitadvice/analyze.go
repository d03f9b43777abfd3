package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jun/fitadvice/internal/config"
)

func analyzeCmd() *cobra.Command {
	var (
		sessionToken string
		apiURL       string
		timeout      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Request advice from a running fitadvice service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionToken == "" {
				return errors.New("--session is required")
			}
			if apiURL == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				apiURL = cfg.APIURL
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			advice, err := requestAdvice(ctx, http.DefaultClient, apiURL, sessionToken)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), advice)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionToken, "session", "", "session token returned by the callback")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "service base URL (defaults to API_URL)")
	cmd.Flags().DurationVar(&timeout, "timeout", 90*time.Second, "overall request timeout")
	return cmd
}

type analyzeResponse struct {
	Advice string `json:"advice"`
	Detail string `json:"detail"`
}

func requestAdvice(ctx context.Context, hc *http.Client, apiURL, sessionToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(apiURL, "/")+"/analyze", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("analyze request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	var out analyzeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("unexpected response (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("analyze failed (status %d): %s", resp.StatusCode, out.Detail)
	}
	return out.Advice, nil
}
