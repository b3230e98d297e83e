package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/elastic/dorothy/internal/message"
	"github.com/elastic/dorothy/pkg/okta"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Validate the configured credentials and show who they belong to",
	Run: func(cmd *cobra.Command, args []string) {
		if err := executeWhoami(cmd.Context()); err != nil {
			fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func executeWhoami(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	me, err := client.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}

	message.Success("authenticated as %s (%s %s), user ID %s, status %s",
		me.Profile.Login, me.Profile.FirstName, me.Profile.LastName, me.ID, me.Status)

	var roles []okta.Role
	if err := client.Get(ctx, "/users/"+me.ID+"/roles", nil, &roles); err != nil {
		message.Warning("could not list admin roles: %v", err)
		return nil
	}

	if len(roles) == 0 {
		message.Info("no admin roles assigned")
		return nil
	}

	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Type
	}
	message.Info("admin roles: %s", strings.Join(names, ", "))
	return nil
}
