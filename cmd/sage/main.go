// Package main provides the sage CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sageguide/sage/cli"
	"github.com/spf13/cobra"
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "sage",
		Short: "Proactive improvement suggestions for coding sessions",
		Long: `sage analyzes a completed coding session and, when it has earned one,
offers a single concrete improvement suggestion.

Designed to run as a session-end hook: the hook command reads the session
reference from stdin, decides whether to speak up, and prints a JSON
response the host tool understands. Everything else is management tooling.`,
	}

	rootCmd.AddCommand(hookCmd())
	rootCmd.AddCommand(enableCmd())
	rootCmd.AddCommand(disableCmd())
	rootCmd.AddCommand(toggleCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(analyzeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func hookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hook [session-id] [transcript-path]",
		Short: "Run the session-end hook (reads JSON from stdin)",
		Long: `Run the full suggestion pipeline for one session.

Input is {"session_id": ..., "transcript_path": ...} on stdin, with
positional arguments and the SESSION_ID/TRANSCRIPT_PATH environment
variables as fallbacks. Always prints a JSON response with block=false
and always exits 0: a session-end hook must never break the host.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Hook(context.Background(), cmd.InOrStdin(), cmd.OutOrStdout(), args)
		},
	}
}

func enableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable",
		Short: "Turn suggestions on",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Enable(cmd.OutOrStdout())
		},
	}
}

func disableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Turn suggestions off",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Disable(cmd.OutOrStdout())
		},
	}
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Flip the enabled flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Toggle(cmd.OutOrStdout())
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and cooldown state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Status(context.Background(), cmd.OutOrStdout())
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently emitted suggestions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.History(context.Background(), cmd.OutOrStdout(), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of suggestions to show")

	return cmd
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [transcript-path]",
		Short: "Extract and print session features without any model call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Analyze(cmd.OutOrStdout(), args[0])
		},
	}
}
