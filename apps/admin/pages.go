package main

import (
	"io/fs"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/aurorarobotics/aurora/core/content"
	appfs "github.com/aurorarobotics/aurora/fs"
)

func (cli *commandLine) seedPagesCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed-pages",
		Short: "Create the default pages and their sections",
		Long: `Create the default pages and their sections from the embedded pages.yaml,
or from --file. Pages whose slug already exists are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var fsys fs.FS = appfs.FS
			name := "pages.yaml"
			if file != "" {
				fsys, name = os.DirFS("."), file
			}
			f, err := fsys.Open(name)
			if err != nil {
				return errors.Wrap(err, "opening page templates")
			}
			defer f.Close()

			tmpls, err := content.LoadTemplates(f)
			if err != nil {
				return err
			}
			created, err := cli.contentSvc.ApplyTemplates(cmd.Context(), tmpls)
			for _, slug := range created {
				cli.printf("created page %s\n", slug)
			}
			if err != nil {
				return err
			}
			cli.printf("%d page(s) created, %d skipped\n", len(created), len(tmpls)-len(created))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML file to read instead of the embedded templates (relative path)")
	return cmd
}
