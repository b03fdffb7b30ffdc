package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Str("error_type", string(apperrors.TypeOf(err))).Msg("Command failed")
		os.Exit(exitCode(err))
	}
}

// exitCode separates bad input from runtime failures
func exitCode(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeNotFound:
		return 2
	case apperrors.ErrorTypeConfigurationAbsent:
		return 3
	}
	return 1
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stayaudit",
		Short:         "Discharge readiness recommendations for hospital stays",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(readinessCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(reindexCmd())
	rootCmd.AddCommand(addDocumentCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(evalCmd())
	return rootCmd
}
