package cmd

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set at build time, e.g.
//
//	go build -ldflags "-X github.com/habedi/tasksctl/cmd.version=1.2.0 -X github.com/habedi/tasksctl/cmd.commit=$(git rev-parse --short HEAD)"
var (
	version   = "dev"
	commit    = ""
	buildDate = ""
)

// buildInfo holds what the version command prints.
type buildInfo struct {
	Version, Commit, BuildDate, GoVersion, Platform string
}

// currentBuildInfo fills commit and build date from the embedded VCS stamp when the
// linker did not set them.
func currentBuildInfo(read func() (*debug.BuildInfo, bool)) buildInfo {
	info := buildInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := read(); ok {
		if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Commit == "":
				info.Commit = s.Value
				if len(info.Commit) > 12 {
					info.Commit = info.Commit[:12]
				}
			case s.Key == "vcs.time" && info.BuildDate == "":
				info.BuildDate = s.Value
			}
		}
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.BuildDate == "" {
		info.BuildDate = "unknown"
	}
	return info
}

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := currentBuildInfo(debug.ReadBuildInfo)
			cmd.Println("tasksctl version:", info.Version)
			cmd.Println("Commit:", info.Commit)
			cmd.Println("Built:", info.BuildDate)
			cmd.Println("Go version:", info.GoVersion)
			cmd.Println("Platform:", info.Platform)
		},
	}
	return cmd
}
