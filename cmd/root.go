package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/schema-audit/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "schema-audit",
	Short: "Audit data.gouv.fr files against their schemas",
	Long:  "Validates published files against their schemas, records quality history, publishes badges, and notifies publishers of new non-conforming files through data.gouv.fr discussions.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
