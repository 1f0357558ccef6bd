package cli

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/dukerupert/checklist/internal/importer"
)

func newImportCmd(app *App) *cobra.Command {
	var url, file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Merge items from a JSON array, skipping names already on the list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var src importer.Source
			switch {
			case url != "" && file != "":
				return errors.New("use only one of --url or --file")
			case url != "":
				s, err := importer.ParseSource(url, &http.Client{Timeout: app.cfg.ImportTimeout})
				if err != nil {
					return err
				}
				src = s
			case file != "":
				src = importer.FileSource{Path: file}
			default:
				return errors.New("one of --url or --file is required")
			}

			list, db, err := openList(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := list.Import(cmd.Context(), src)
			if err != nil {
				return err
			}
			return writeOut(cmd, app, res)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "http(s) or file:// URL of a JSON array of items")
	cmd.Flags().StringVar(&file, "file", "", "Path to a JSON array of items")
	return cmd
}
