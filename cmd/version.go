package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/abhisek/eikengen/internal/ui/theme"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build details",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("eikengen", version)
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		fmt.Println(theme.Field("Go", info.GoVersion))
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision", "vcs.time", "vcs.modified":
				fmt.Println(theme.Field(s.Key[4:], s.Value))
			}
		}
	},
}
