package commands

import (
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ekisa-team/some/internal/checkpoint"
	"github.com/ekisa-team/some/internal/tensor"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect checkpoint",
	Short: "Show the layout and parameters of a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := checkpoint.Inspect(args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if inspectJSON {
			params := make(map[string][]int, len(info.Params))
			for name, t := range info.Params {
				params[name] = t.Shape
			}
			return writeJSON(w, map[string]any{
				"path":       info.Path,
				"size":       info.Size,
				"compressed": info.Compressed,
				"layout":     info.Shape.String(),
				"params":     params,
				"numel":      info.Params.Numel(),
			}, "")
		}

		fmt.Fprintln(w, titleStyle.Render(info.Path))
		printField(w, "Layout", info.Shape.String())
		printField(w, "Size", humanize.Bytes(uint64(info.Size)))
		printField(w, "Compressed", fmt.Sprint(info.Compressed))
		printField(w, "Parameters", humanize.Comma(int64(info.Params.Numel())))

		if len(info.Metadata) > 0 {
			keys := make([]string, 0, len(info.Metadata))
			for k := range info.Metadata {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				printField(w, k, fmt.Sprint(info.Metadata[k]))
			}
		}

		t := newTable("name", "shape", "numel")
		for _, name := range info.Params.Keys() {
			p := info.Params[name]
			t.Row(name, tensor.FormatShape(p.Shape), humanize.Comma(int64(p.Numel())))
		}
		fmt.Fprintln(w, t.Render())
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(inspectCmd)
}
