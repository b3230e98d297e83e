package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/elastic/dorothy/internal/jq"
	"github.com/elastic/dorothy/internal/logs"
	"github.com/elastic/dorothy/internal/message"
	"github.com/elastic/dorothy/pkg/engine"
	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules/catalog"
)

var (
	runModules        []string
	runBestEffort     []string
	runWorkers        int
	runDryRun         bool
	runAbortOnFailure bool
	runTimeout        time.Duration
	runLedgerPath     string
	runOutputPath     string
	runFilter         string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one or more modules against the configured org",
	Long: `Execute modules against the configured Okta org and print the run
report. Modules are selected with repeated -m flags; parameters are passed
query-style:

  dorothy run -m 'persistence/create-user?login=eve@example.com'
  dorothy run -m discovery/get-users -m discovery/find-admins --workers 3`,
	Run: func(cmd *cobra.Command, args []string) {
		executeRun()
	},
}

func init() {
	runCmd.Flags().StringArrayVarP(&runModules, "module", "m", nil, "module to run, as tactic/name with optional ?key=value parameters (repeatable)")
	runCmd.Flags().StringArrayVar(&runBestEffort, "best-effort", nil, "module whose failure should not fail the run (repeatable)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 1, "number of modules to execute concurrently")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "report planned actions without mutating the org")
	runCmd.Flags().BoolVar(&runAbortOnFailure, "abort-on-failure", false, "skip remaining modules after the first failure")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "per-module execution budget, e.g. 90s (0 = unlimited)")
	runCmd.Flags().StringVar(&runLedgerPath, "ledger", "dorothy-ledger.jsonl", "artifact ledger file")
	runCmd.Flags().StringVarP(&runOutputPath, "output", "o", "", "write the JSON run report to this file instead of stdout")
	runCmd.Flags().StringVar(&runFilter, "filter", "", "jq expression applied to the run report")
	runCmd.MarkFlagRequired("module")

	rootCmd.AddCommand(runCmd)
}

func executeRun() {
	message.Banner()

	req, err := buildRequest()
	if err != nil {
		fatal(err)
	}

	client, err := newClient()
	if err != nil {
		fatal(err)
	}

	// The client's in-flight gate is the real rate-limit bound; more
	// workers than that would only queue on the semaphore.
	if int64(req.Workers) > client.MaxInFlight() {
		message.Warning("clamping workers from %d to the API in-flight limit of %d", req.Workers, client.MaxInFlight())
		req.Workers = int(client.MaxInFlight())
	}

	reg, err := catalog.Load()
	if err != nil {
		fatal(err)
	}

	store, err := ledger.OpenFileStore(runLedgerPath)
	if err != nil {
		fatal(err)
	}
	defer store.Close()

	led := ledger.NewPersistent(uuid.NewString(), store)
	eng := engine.New(reg, client, led, logs.FileLogger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if runDryRun {
		message.Info("dry run: no changes will be made to the org")
	}

	report, err := eng.Run(ctx, req)
	if err != nil {
		fatal(err)
	}

	printResults(report)
	if err := writeReport(report); err != nil {
		fatal(err)
	}

	if report.Status != engine.StatusSuccess {
		os.Exit(1)
	}
}

func buildRequest() (engine.Request, error) {
	req := engine.Request{
		Workers:        runWorkers,
		DryRun:         runDryRun,
		AbortOnFailure: runAbortOnFailure,
		Timeout:        runTimeout,
	}

	bestEffort := make(map[string]bool, len(runBestEffort))
	for _, id := range runBestEffort {
		bestEffort[id] = true
	}

	for _, spec := range runModules {
		mreq, err := parseModuleSpec(spec)
		if err != nil {
			return engine.Request{}, err
		}
		mreq.BestEffort = bestEffort[mreq.ID]
		req.Modules = append(req.Modules, mreq)
	}
	return req, nil
}

// parseModuleSpec parses "tactic/name?key=value&key2=value2".
func parseModuleSpec(spec string) (engine.ModuleRequest, error) {
	id, rawQuery, _ := strings.Cut(spec, "?")

	mreq := engine.ModuleRequest{ID: id}
	if rawQuery == "" {
		return mreq, nil
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return engine.ModuleRequest{}, fmt.Errorf("module %s: parsing parameters: %w", id, err)
	}

	mreq.Params = make(map[string]string, len(values))
	for key := range values {
		mreq.Params[key] = values.Get(key)
	}
	return mreq, nil
}

func printResults(report *engine.Report) {
	for _, res := range report.Results {
		elapsed := formatDuration(res.FinishedAt.Sub(res.StartedAt))
		switch res.Status {
		case engine.StatusSuccess:
			message.Success("%s succeeded in %s (%d artifacts)", res.Module, elapsed, len(res.Artifacts))
		case engine.StatusSkipped:
			message.Warning("%s skipped", res.Module)
		case engine.StatusTimeout:
			message.Error("%s timed out after %s", res.Module, elapsed)
		default:
			message.Error("%s failed: %s", res.Module, res.Error)
		}
	}

	message.Info("run %s finished with status %s, %d API calls", report.RunID, report.Status, report.APICalls)
}

func writeReport(report *engine.Report) error {
	data, err := report.JSON()
	if err != nil {
		return err
	}

	if runFilter != "" {
		data, err = jq.Apply(data, runFilter)
		if err != nil {
			return err
		}
	}

	if runOutputPath != "" {
		if err := os.WriteFile(runOutputPath, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		message.Info("report written to %s", runOutputPath)
		return nil
	}

	fmt.Println(string(data))
	return nil
}
