package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

func addVersion(topLevel *cobra.Command, o *options) {
	var (
		short  bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the quotebook version.",
		Example: `
quotebook version
quotebook version --short
quotebook version --output json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if short {
				_, err := fmt.Fprintln(out, o.build.Version)
				return err
			}

			info := versionInfo{
				Version:   o.build.Version,
				Commit:    o.build.Commit,
				BuildTime: o.build.BuildTime,
				GoVersion: runtime.Version(),
			}

			switch output {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")

				return enc.Encode(info)
			case "text", "":
				newPrinter(out).table("quotebook", []statusRow{
					{"Version", info.Version},
					{"Commit", info.Commit},
					{"Built", info.BuildTime},
					{"Go", info.GoVersion},
				})

				return nil
			default:
				return fmt.Errorf("unknown output format %q: must be one of text json", output)
			}
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print just the version number.")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format. One of text or json.")

	topLevel.AddCommand(cmd)
}
