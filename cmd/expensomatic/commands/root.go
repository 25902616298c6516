package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/expensomatic/internal/config"
	"github.com/dvloznov/expensomatic/internal/logger"
)

var (
	cfgPath string

	cfg *config.Config
	log zerolog.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:           "expensomatic",
		Short:         "Extract expenses from receipt images and file them as claims",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log = logger.New()

			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "path to config file")

	root.AddCommand(runCmd(), planCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
