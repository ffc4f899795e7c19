package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jmangroup/snowball/internal/cli/output"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List compiled models",
		Long:  `List every compiled model found under the compiled directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}
}

// modelInfo is the JSON shape of one listed model.
type modelInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func runList(cmd *cobra.Command) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	models, err := cc.Engine.DiscoverModels()
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.Mode() == output.ModeJSON {
		infos := make([]modelInfo, 0, len(models))
		for _, m := range models {
			infos = append(infos, modelInfo{Name: m.Name, Path: m.Path})
		}
		return r.JSON(infos)
	}

	if len(models) == 0 {
		r.Warning("no compiled models found in " + cc.Cfg.CompiledDir)
		return nil
	}

	rows := make([]table.Row, 0, len(models))
	for _, m := range models {
		rows = append(rows, table.Row{m.Name, m.Path})
	}
	r.Table(table.Row{"Model", "Path"}, rows)
	r.Println(fmt.Sprintf("%d model(s)", len(models)))
	return nil
}
