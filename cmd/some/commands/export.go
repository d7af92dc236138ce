package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ekisa-team/some/internal/checkpoint"
)

var exportCompress bool

var exportCmd = &cobra.Command{
	Use:   "export src dst",
	Short: "Strip a training checkpoint down to its model parameters",
	Long: `Read a checkpoint in any supported layout and write only the model
parameters under the "model" key. Optimizer state and other training
metadata are dropped.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, dst := args[0], args[1]
		if err := checkpoint.Export(src, dst, checkpoint.WithCompression(exportCompress)); err != nil {
			return err
		}

		info, err := checkpoint.Inspect(dst)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %s parameters)\n",
			labelStyle.Render("Exported"), dst,
			humanize.Bytes(uint64(info.Size)), humanize.Comma(int64(info.Params.Numel())))
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportCompress, "compress", false, "zstd-compress the output")
	rootCmd.AddCommand(exportCmd)
}
