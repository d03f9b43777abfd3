package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"

	"github.com/jun/fitadvice/internal/app"
	"github.com/jun/fitadvice/internal/config"
	"github.com/jun/fitadvice/internal/handler"
	"github.com/jun/fitadvice/internal/metrics"
	"github.com/jun/fitadvice/internal/model"
	"github.com/jun/fitadvice/internal/tokenstore"
)

// diagnoseCmd runs collection and generation in-process against a token
// saved by a local callback.
func diagnoseCmd(st *cliState) *cobra.Command {
	var tokenFile string
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Collect today's Fitbit data and print advice without the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if tokenFile != "" {
				cfg.TokenFile = tokenFile
			}
			ctx := cmd.Context()
			logger := st.logger()

			resolver, err := app.NewResolver(cfg, func() (aws.Config, error) {
				return awsconfig.LoadDefaultConfig(ctx)
			})
			if err != nil {
				return err
			}
			if cfg.GeminiAPIKey == "" {
				key, err := resolver.GetSecret(ctx, cfg.SecretName(config.GeminiAPIKeyParam))
				if err != nil {
					return fmt.Errorf("resolve gemini api key: %w", err)
				}
				cfg.GeminiAPIKey = key
			}

			tok, err := tokenstore.NewFileStore(cfg.TokenFile).Load(ctx, "")
			if err != nil {
				return fmt.Errorf("load token from %s: %w", cfg.TokenFile, err)
			}

			agg, err := app.NewAggregator(cfg, &http.Client{}, logger, metrics.Nop{})
			if err != nil {
				return err
			}
			gen, err := app.NewGenerator(ctx, cfg, nil, logger, metrics.Nop{})
			if err != nil {
				return err
			}
			return runDiagnose(ctx, cmd, agg, gen, tok.Credential(), time.Now())
		},
	}
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "token file written by the callback (defaults to TOKEN_FILE)")
	return cmd
}

func runDiagnose(ctx context.Context, cmd *cobra.Command, c handler.Collector, d handler.Diagnoser, cred model.Credential, now time.Time) error {
	record, err := c.Collect(ctx, cred, now)
	if err != nil {
		return err
	}
	result, err := d.Diagnose(ctx, record)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Text)
	return nil
}
