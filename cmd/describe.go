package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/elastic/dorothy/internal/message"
	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/modules/catalog"
)

var describeCmd = &cobra.Command{
	Use:   "describe <tactic/name>",
	Short: "Show a module's options, artifact kinds, and references",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := describeModule(args[0]); err != nil {
			fatal(err)
		}
	},
}

func describeModule(arg string) error {
	id, err := modules.ParseTechniqueID(arg)
	if err != nil {
		return err
	}

	reg, err := catalog.Load()
	if err != nil {
		return err
	}

	d, err := reg.Descriptor(id)
	if err != nil {
		return err
	}

	message.Section("%s", d.ID)
	fmt.Println(d.Description)

	if len(d.Scopes) > 0 {
		fmt.Printf("\n%s %s\n", message.Emphasize("Required scopes:"), strings.Join(d.Scopes, ", "))
	}
	if len(d.Artifacts) > 0 {
		kinds := make([]string, len(d.Artifacts))
		for i, k := range d.Artifacts {
			kinds[i] = string(k)
		}
		fmt.Printf("%s %s\n", message.Emphasize("Artifact kinds:"), strings.Join(kinds, ", "))
	}

	if len(d.Options) > 0 {
		fmt.Printf("\n%s\n", message.Emphasize("Options:"))
		for _, opt := range d.Options {
			line := fmt.Sprintf("  %s (%s)", opt.Name, opt.Type)
			if opt.Required {
				line += " [required]"
			}
			if opt.Default != "" {
				line += fmt.Sprintf(" [default: %s]", opt.Default)
			}
			fmt.Printf("%s - %s\n", line, opt.Description)
		}
	}

	if len(d.References) > 0 {
		fmt.Printf("\n%s\n", message.Emphasize("References:"))
		for _, ref := range d.References {
			fmt.Printf("  %s\n", ref)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
