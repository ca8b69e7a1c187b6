package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/elder-health-text/internal/app"
	"github.com/iliyamo/elder-health-text/internal/config"
	"github.com/iliyamo/elder-health-text/internal/detector"
	"github.com/iliyamo/elder-health-text/internal/simplifier"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "eldertext",
		Short:         "Plain-language medical text and manipulation checks",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if envFile != "" {
				config.LoadDotEnv(envFile)
			} else {
				config.LoadDotEnv()
			}
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "load variables from this file instead of .env")

	root.AddCommand(newSimplifyCmd(), newDetectCmd(), newServeCmd(), newConsumeCmd())
	return root
}

// readText joins the arguments, or reads stdin when there are none.
func readText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}

func newSimplifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simplify [text...]",
		Short: "Rewrite medical text in plain language",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), simplifier.Simplify(text))
			return nil
		},
	}
}

func newDetectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "detect [text...]",
		Short: "Check a health claim for manipulative phrasing",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}
			rep := detector.Inspect(text)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			fmt.Fprintf(out, "%s: %s\n", rep.Label, rep.Explanation)
			if len(rep.Matches) > 0 {
				fmt.Fprintf(out, "matched: %s\n", strings.Join(rep.Matches, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if port != "" {
				cfg.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "override APP_PORT")
	return cmd
}

func newConsumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Record text.processed audit events from RabbitMQ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err := app.RunConsumer(ctx, config.Load())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
