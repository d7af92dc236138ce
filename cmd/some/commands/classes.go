package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/some/internal/registry"
	"github.com/ekisa-team/some/internal/task"
)

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List registered model and task classes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()

		fmt.Fprintln(w, titleStyle.Render("Registered classes"))
		t := newTable("name")
		for _, name := range registry.Names() {
			t.Row(name)
		}
		fmt.Fprintln(w, t.Render())

		fmt.Fprintln(w, titleStyle.Render("Training tasks"))
		t = newTable("task_cls", "inference")
		for _, id := range task.IDs() {
			cls, _ := task.InferenceClass(id)
			t.Row(id, cls)
		}
		fmt.Fprintln(w, t.Render())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classesCmd)
}
