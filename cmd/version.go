// Package cmd - version command showing build and runtime info
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var versionOutputFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and build information",
	Run:   runVersionCmd,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().StringVar(&versionOutputFormat, "format", "table", "Output format (table, json, short)")
}

type versionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

func runVersionCmd(cmd *cobra.Command, args []string) {
	info := versionInfo{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		GitCommit: cfg.GitCommit,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	switch versionOutputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(info)
	case "short":
		fmt.Printf("kestrel %s\n", info.Version)
	default:
		fmt.Printf("kestrel %s (built: %s, commit: %s)\n", info.Version, info.BuildTime, info.GitCommit)
		fmt.Printf("  %s %s/%s\n", info.GoVersion, info.OS, info.Arch)
	}
}
