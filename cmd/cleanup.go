package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/elastic/dorothy/internal/logs"
	"github.com/elastic/dorothy/internal/message"
	"github.com/elastic/dorothy/pkg/cleanup"
	"github.com/elastic/dorothy/pkg/ledger"
)

var (
	cleanupLedgerPath string
	cleanupKind       string
	cleanupModule     string
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Roll back the artifacts recorded in a ledger file",
	Long: `Roll back the remote objects recorded in an artifact ledger.
Records reverse dependents-first; a record that fails to reverse is left
in the ledger so a later pass can retry it.`,
	Run: func(cmd *cobra.Command, args []string) {
		executeCleanup()
	},
}

func init() {
	cleanupCmd.Flags().StringVar(&cleanupLedgerPath, "ledger", "dorothy-ledger.jsonl", "artifact ledger file")
	cleanupCmd.Flags().StringVar(&cleanupKind, "kind", "", "only reverse artifacts of this kind, e.g. user")
	cleanupCmd.Flags().StringVar(&cleanupModule, "module", "", "only reverse artifacts created by this module, e.g. persistence/create-user")

	rootCmd.AddCommand(cleanupCmd)
}

func executeCleanup() {
	led, err := ledger.LoadFile(cleanupLedgerPath)
	if err != nil {
		fatal(err)
	}

	store, err := ledger.OpenFileStore(cleanupLedgerPath)
	if err != nil {
		fatal(err)
	}
	defer store.Close()
	led.AttachStore(store)

	client, err := newClient()
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coord := cleanup.New(client, led, logs.FileLogger())
	report, err := coord.Reverse(ctx, ledger.Filter{
		Kind:   ledger.Kind(cleanupKind),
		Module: cleanupModule,
	})
	if report != nil {
		printCleanupResults(report)
	}
	if err != nil {
		fatal(fmt.Errorf("cleanup interrupted: %w", err))
	}

	if report.Failed > 0 {
		os.Exit(1)
	}
}

func printCleanupResults(report *cleanup.Report) {
	for _, res := range report.Results {
		switch res.Outcome {
		case cleanup.OutcomeReversed:
			message.Success("reversed %s %s (created by %s)", res.Kind, res.RemoteID, res.Module)
		case cleanup.OutcomeSkipped:
			message.Warning("skipped %s %s: no reversal recorded", res.Kind, res.RemoteID)
		default:
			message.Error("failed to reverse %s %s: %s", res.Kind, res.RemoteID, res.Error)
		}
	}

	message.Info("cleanup finished: %d reversed, %d failed, %d skipped",
		report.Reversed, report.Failed, report.Skipped)
}
