package cli

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/yaoapp/xbridge/config"
)

// Execute builds the root command and runs it.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command and its subcommands.
func NewRootCmd() *cobra.Command {
	var envFiles []string
	var logCloser io.Closer

	cmd := &cobra.Command{
		Use:           "xbridge",
		Short:         "xbridge: callback registration across a single-word boundary",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(envFiles...); err != nil {
				return err
			}
			logCloser = config.SetupLog(config.Conf)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringSliceVar(&envFiles, "env", []string{".env"}, "dotenv files to load")

	cmd.AddCommand(newDemoCmd())
	cmd.AddCommand(newLayoutCmd())

	cmd.Run = func(cmd *cobra.Command, args []string) { _ = cmd.Help() }

	return cmd
}
