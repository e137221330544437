package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/storyindex/internal/wire"
	"github.com/Aman-CERP/storyindex/pkg/version"
)

// versionInfo is the --json shape: build info plus the formats `index`
// can write.
type versionInfo struct {
	version.BuildInfo
	Formats []wire.Format `json:"formats"`
}

func newVersionCmd() *cobra.Command {
	var jsonOutput, shortOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and index format information",
		Long: `Print the storyindex version and the index formats it serves.

/index.json is served as format v` + fmt.Sprint(version.IndexFormat) + `; /stories.json as v3, or v3-compat
when storiesV2Compatibility is on. --short prints "<version> v<format>".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			formats := wire.Formats()

			switch {
			case shortOutput:
				_, err := fmt.Fprintf(out, "%s v%d\n", version.Short(), version.IndexFormat)
				return err
			case jsonOutput:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(versionInfo{BuildInfo: version.GetInfo(), Formats: formats})
			}

			names := make([]string, len(formats))
			for i, f := range formats {
				names[i] = string(f)
			}
			_, err := fmt.Fprintf(out, "%s\nindex formats: %s\n", version.String(), strings.Join(names, ", "))
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	cmd.Flags().BoolVar(&shortOutput, "short", false, "Output the version and primary index format")
	cmd.MarkFlagsMutuallyExclusive("json", "short")

	return cmd
}
