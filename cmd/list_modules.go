package cmd

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/elastic/dorothy/pkg/modules"
	"github.com/elastic/dorothy/pkg/modules/catalog"
)

var listModulesCmd = &cobra.Command{
	Use:   "list-modules",
	Short: "Display available Dorothy modules in a tree structure",
	Run: func(cmd *cobra.Command, args []string) {
		if err := displayModuleTree(); err != nil {
			fatal(err)
		}
	},
}

func displayModuleTree() error {
	reg, err := catalog.Load()
	if err != nil {
		return err
	}

	grouped := reg.Tactics()
	tactics := make([]string, 0, len(grouped))
	for tactic := range grouped {
		tactics = append(tactics, string(tactic))
	}
	sort.Strings(tactics)

	bold := color.New(color.Bold)
	if noColorFlag {
		color.NoColor = true
	}

	for i, tactic := range tactics {
		fmt.Printf("\n%s\n", bold.Sprint(tactic))
		for _, d := range grouped[modules.Tactic(tactic)] {
			fmt.Printf("├─ %s - %s\n", d.ID.Name, d.Description)
		}
		if i < len(tactics)-1 {
			fmt.Println()
		}
	}
	fmt.Println()
	return nil
}

func init() {
	rootCmd.AddCommand(listModulesCmd)
}
