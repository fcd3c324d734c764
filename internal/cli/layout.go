package cli

import (
	"fmt"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/yaoapp/xbridge/abi"
)

type layoutReport struct {
	Layout        abi.Layout `json:"record"`
	ReceiverWords int        `json:"receiver_words"`
	HandleWords   int        `json:"handle_words"`
}

func newLayoutCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the registration record layout of this build",
		RunE: func(cmd *cobra.Command, args []string) error {
			rep := layoutReport{
				Layout:        abi.CurrentLayout(),
				ReceiverWords: abi.Words(abi.SizeOfReceiver),
				HandleWords:   abi.Words(abi.SizeOfHandle),
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return jsoniter.NewEncoder(out).Encode(rep)
			}

			bold := color.New(color.Bold)
			bold.Fprintf(out, "record layout v%d\n", rep.Layout.Version)
			fmt.Fprintf(out, "  word size        %d\n", rep.Layout.WordSize)
			fmt.Fprintf(out, "  record size      %d\n", rep.Layout.Size)
			fmt.Fprintf(out, "  trampoline @     %d\n", rep.Layout.TrampolineOffset)
			fmt.Fprintf(out, "  cell @           %d\n", rep.Layout.CellOffset)
			fmt.Fprintf(out, "  receiver words   %d\n", rep.ReceiverWords)
			fmt.Fprintf(out, "  handle words     %d\n", rep.HandleWords)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
