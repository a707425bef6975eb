package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/axellelanca/shortener/cmd"
	"github.com/axellelanca/shortener/internal/app"
	apperrors "github.com/axellelanca/shortener/internal/errors"
)

// StatsCmd représente la commande 'stats'
var StatsCmd = &cobra.Command{
	Use:   "stats [short-code]",
	Short: "Get statistics for a short URL",
	Long:  `Get click statistics for the provided short code.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	cmd.RootCmd.AddCommand(StatsCmd)
}

// runStats exécute la logique pour la commande stats
func runStats(c *cobra.Command, args []string) error {
	shortCode := args[0]

	a, err := app.New(c.Context(), cmd.Cfg, cmd.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.LinkService.Stats(c.Context(), shortCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("short code '%s' not found", shortCode)
		}
		return fmt.Errorf("error retrieving statistics: %w", err)
	}

	fmt.Fprintf(c.OutOrStdout(), "Statistiques pour le code court: %s\n", shortCode)
	fmt.Fprintf(c.OutOrStdout(), "URL longue: %s\n", stats.OriginalURL)
	fmt.Fprintf(c.OutOrStdout(), "Total de clics: %d\n", stats.ClickCount)
	fmt.Fprintf(c.OutOrStdout(), "Date de création: %s\n", stats.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(c.OutOrStdout(), "Dernière utilisation: %s\n", stats.LastUsedAt.Format(time.RFC3339))
	return nil
}
