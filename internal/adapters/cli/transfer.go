package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotebook/internal/app"
)

// stdio selects stdout for export and stdin for import.
const stdio = "-"

// resolveFormat prefers an explicit --format and falls back to the file extension.
func resolveFormat(flag, path string) (app.Format, error) {
	if flag != "" {
		return app.ParseFormat(flag)
	}

	if path == stdio {
		return app.FormatJSON, nil
	}

	return app.FormatFromFilename(path), nil
}

func addExport(topLevel *cobra.Command, o *options) {
	var output, format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every quote to a JSON or XLSX file.",
		Example: `
quotebook export
quotebook export --output backup.xlsx
quotebook export --format json --output -
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := resolveFormat(format, output)
			if err != nil {
				return err
			}

			if output == "" {
				output = f.Filename()
			}

			return o.withServices(cmd, func(ctx context.Context, rt *services, p *printer) error {
				if output == stdio {
					return rt.transfer.Export(ctx, p.out, f)
				}

				return exportFile(ctx, rt.transfer, output, f, p)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", `File to write, or "-" for stdout. Defaults to quotes.<format>.`)
	cmd.Flags().StringVarP(&format, "format", "f", "", "One of json or xlsx. Defaults to the output file extension.")

	topLevel.AddCommand(cmd)
}

func exportFile(ctx context.Context, transfer *app.Transfer, path string, format app.Format, p *printer) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	defer func() {
		err = errors.Join(err, file.Close())
	}()

	if err := transfer.Export(ctx, file, format); err != nil {
		return err
	}

	p.ok("Quotes exported to %s", path)

	return nil
}

func addImport(topLevel *cobra.Command, o *options) {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge quotes from a JSON or XLSX file. Duplicates are skipped by text.",
		Example: `
quotebook import backup.json
quotebook import --format xlsx export.bin
cat quotes.json | quotebook import -
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			f, err := resolveFormat(format, path)
			if err != nil {
				return err
			}

			return o.withServices(cmd, func(ctx context.Context, rt *services, p *printer) error {
				var in io.Reader = cmd.InOrStdin()

				if path != stdio {
					file, err := os.Open(path)
					if err != nil {
						return fmt.Errorf("opening %s: %w", path, err)
					}
					defer file.Close()

					in = file
				}

				result, err := rt.transfer.Import(ctx, in, f)
				if err != nil {
					return err
				}

				p.ok("Quotes imported successfully! %d added, %d skipped.", result.Added, result.Skipped)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "One of json or xlsx. Defaults to the file extension.")

	topLevel.AddCommand(cmd)
}
