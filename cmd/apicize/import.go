package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/apicize/engine/pkg/importer"
	"github.com/apicize/engine/pkg/persistence"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Build an .apicize workbook from an external collection format",
	}
	cmd.AddCommand(newImportPostmanCmd())
	cmd.AddCommand(newImportOpenAPICmd())
	return cmd
}

func newImportPostmanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "postman <collection.json> <out.apicize>",
		Short: "Import a Postman Collection v2.1 export",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			wb, err := importer.FromPostmanCollection(f)
			if err != nil {
				return err
			}
			if err := persistence.SaveWorkbook(args[1], wb); err != nil {
				return err
			}
			fmt.Printf("imported %d top-level entries into %s\n", len(wb.Requests), args[1])
			return nil
		},
	}
}

func newImportOpenAPICmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "openapi <spec.yaml|spec.json> <out.apicize>",
		Short: "Import an OpenAPI 3.x document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			wb, err := importer.FromOpenAPI(data, baseURL)
			if err != nil {
				return err
			}
			if err := persistence.SaveWorkbook(args[1], wb); err != nil {
				return err
			}
			fmt.Printf("imported %d path entries into %s\n", len(wb.Requests), args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "server URL prefixed to every imported path")
	return cmd
}
