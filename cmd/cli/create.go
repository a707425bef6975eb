package cli

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/axellelanca/shortener/cmd"
	"github.com/axellelanca/shortener/internal/app"
	"github.com/axellelanca/shortener/internal/services"
)

var (
	longURLFlag   string
	aliasFlag     string
	expiresInFlag time.Duration
)

// CreateCmd représente la commande 'create'
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Crée une URL courte à partir d'une URL longue.",
	Long: `Cette commande raccourcit une URL longue fournie et affiche le code court généré.

Exemple:
  shortener create --url="https://www.google.com/search?q=go+lang" --alias=golang --expires-in=48h`,
	RunE: func(c *cobra.Command, args []string) error {
		// Validation basique du format de l'URL
		if _, err := url.ParseRequestURI(longURLFlag); err != nil {
			return fmt.Errorf("invalid URL format: %w", err)
		}

		in := services.ShortenInput{OriginalURL: longURLFlag, CustomAlias: aliasFlag}
		if expiresInFlag != 0 {
			expiresAt := time.Now().UTC().Add(expiresInFlag)
			in.ExpiresAt = &expiresAt
		}

		a, err := app.New(c.Context(), cmd.Cfg, cmd.Logger)
		if err != nil {
			return err
		}
		defer a.Close()

		link, err := a.LinkService.Shorten(c.Context(), in)
		if err != nil {
			return fmt.Errorf("failed to create short link: %w", err)
		}

		fmt.Fprintf(c.OutOrStdout(), "URL courte créée avec succès:\n")
		fmt.Fprintf(c.OutOrStdout(), "Code: %s\n", link.ShortCode)
		fmt.Fprintf(c.OutOrStdout(), "URL complète: %s/links/%s\n", strings.TrimSuffix(cmd.Cfg.Server.BaseURL, "/"), link.ShortCode)
		fmt.Fprintf(c.OutOrStdout(), "Expire le: %s\n", link.ExpiresAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	CreateCmd.Flags().StringVar(&longURLFlag, "url", "", "The long URL to shorten")
	CreateCmd.Flags().StringVar(&aliasFlag, "alias", "", "Custom alias (4 to 20 characters among letters, digits, '_' and '-')")
	CreateCmd.Flags().DurationVar(&expiresInFlag, "expires-in", 0, "Lifetime of the link (default: links.default_ttl_hours)")
	_ = CreateCmd.MarkFlagRequired("url")

	cmd.RootCmd.AddCommand(CreateCmd)
}
