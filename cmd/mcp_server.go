package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/elastic/dorothy/internal/logs"
	"github.com/elastic/dorothy/pkg/cleanup"
	"github.com/elastic/dorothy/pkg/engine"
	"github.com/elastic/dorothy/pkg/ledger"
	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/modules/catalog"
	"github.com/elastic/dorothy/pkg/okta"
	"github.com/elastic/dorothy/version"
)

func init() {
	mcpCmd.Flags().StringVar(&mcpLedgerPath, "ledger", "dorothy-ledger.jsonl", "artifact ledger file")
	rootCmd.AddCommand(mcpCmd)
}

var mcpLedgerPath string

var mcpCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Launch Dorothy's MCP server",
	Long:  `Expose every module as an MCP tool over stdio so an agent can drive runs.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := mcpServer(); err != nil {
			fatal(err)
		}
	},
}

func mcpServer() error {
	reg, err := catalog.Load()
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	store, err := ledger.OpenFileStore(mcpLedgerPath)
	if err != nil {
		return err
	}
	defer store.Close()

	led := ledger.NewPersistent(uuid.NewString(), store)
	eng := engine.New(reg, client, led, logs.FileLogger())

	s := server.NewMCPServer(
		"Dorothy Server",
		version.FullVersion(),
		server.WithLogging(),
	)

	for _, d := range reg.List() {
		s.AddTool(descriptorToTool(d), moduleHandler(eng, d))
	}
	s.AddTool(cleanupTool(), cleanupHandler(client, led))

	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// toolName flattens a technique identifier into an MCP tool name, which
// cannot contain slashes.
func toolName(id modules.TechniqueID) string {
	return "dorothy-" + strings.ReplaceAll(id.String(), "/", "-")
}

func descriptorToTool(d modules.Descriptor) mcp.Tool {
	description := fmt.Sprintf("%s\n\nTactic: %s\nArtifact kinds: %s\nReferences:\n%s",
		d.Description,
		d.ID.Tactic,
		joinKinds(d.Artifacts),
		"- "+strings.Join(d.References, "\n- "),
	)

	toolOpts := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{
			Title:         d.ID.String(),
			OpenWorldHint: mcp.ToBoolPtr(true),
		}),
	}

	for _, opt := range d.Options {
		propOpts := []mcp.PropertyOption{mcp.Description(opt.Description)}
		if opt.Required && opt.Default == "" {
			propOpts = append(propOpts, mcp.Required())
		}

		switch opt.Type {
		case modules.Bool:
			toolOpts = append(toolOpts, mcp.WithBoolean(opt.Name, propOpts...))
		case modules.Int:
			toolOpts = append(toolOpts, mcp.WithNumber(opt.Name, propOpts...))
		default:
			toolOpts = append(toolOpts, mcp.WithString(opt.Name, propOpts...))
		}
	}

	return mcp.NewTool(toolName(d.ID), toolOpts...)
}

func moduleHandler(eng *engine.Engine, d modules.Descriptor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := modules.Params{}
		args := request.GetArguments()
		for _, opt := range d.Options {
			if v := args[opt.Name]; v != nil {
				params[opt.Name] = fmt.Sprint(v)
			}
		}

		report, err := eng.Run(ctx, engine.Request{
			Modules: []engine.ModuleRequest{{ID: d.ID.String(), Params: params}},
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := report.JSON()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if report.Status != engine.StatusSuccess {
			return mcp.NewToolResultError(string(data)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func cleanupTool() mcp.Tool {
	return mcp.NewTool("dorothy-cleanup",
		mcp.WithDescription("Roll back the artifacts recorded in the current ledger, dependents first. Failed reversals stay in the ledger for a later pass."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{
			Title:         "cleanup",
			OpenWorldHint: mcp.ToBoolPtr(true),
		}),
		mcp.WithString("kind", mcp.Description("Only reverse artifacts of this kind, e.g. user")),
		mcp.WithString("module", mcp.Description("Only reverse artifacts created by this module, e.g. persistence/create-user")),
	)
}

func cleanupHandler(client *okta.Client, led *ledger.Ledger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		f := ledger.Filter{}
		args := request.GetArguments()
		if v := args["kind"]; v != nil {
			f.Kind = ledger.Kind(fmt.Sprint(v))
		}
		if v := args["module"]; v != nil {
			f.Module = fmt.Sprint(v)
		}

		coord := cleanup.New(client, led, logs.FileLogger())
		report, err := coord.Reverse(ctx, f)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func joinKinds(kinds []ledger.Kind) string {
	if len(kinds) == 0 {
		return "none"
	}
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return strings.Join(out, ", ")
}
