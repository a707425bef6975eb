package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/axellelanca/shortener/cmd"
	"github.com/axellelanca/shortener/internal/app"
)

// RunServerCmd représente la commande 'run-server' de Cobra.
// C'est le point d'entrée pour lancer le serveur de l'application.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Lance le serveur API de raccourcissement d'URLs et les processus de fond.",
	Long: `Cette commande initialise la base de données et le cache, configure les APIs,
démarre les workers asynchrones pour les clics et le nettoyage des liens expirés,
puis lance le serveur HTTP.`,
	RunE: func(c *cobra.Command, args []string) error {
		cfg, log := cmd.Cfg, cmd.Logger

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		if err := a.Start(); err != nil {
			_ = a.Close()
			return err
		}

		// Bloquer jusqu'à ce qu'un signal d'arrêt soit reçu.
		<-ctx.Done()
		log.Info("Signal d'arrêt reçu. Arrêt du serveur...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		return a.Shutdown(shutdownCtx)
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}
