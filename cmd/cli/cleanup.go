package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axellelanca/shortener/cmd"
	"github.com/axellelanca/shortener/internal/app"
)

// CleanupCmd runs one expiry sweep outside of the server.
var CleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Deletes expired links once.",
	Long: `This command removes every link whose expiry has passed and evicts them from the cache,
the same pass the server runs periodically.`,
	RunE: func(c *cobra.Command, args []string) error {
		a, err := app.New(c.Context(), cmd.Cfg, cmd.Logger)
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.LinkService.ReclaimExpired(c.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "%d expired link(s) removed.\n", removed)
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(CleanupCmd)
}
