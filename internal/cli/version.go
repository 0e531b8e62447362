// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

type versionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func newVersionCommand(a *app) *cobra.Command {
	return lenient(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versionInfo{
				Version:   Version,
				GitCommit: GitCommit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			return a.printer.emit(info, func(w io.Writer) {
				fmt.Fprintf(w, "threadkit %s\n", TitleStyle.Render(info.Version))
				fmt.Fprintf(w, "%s%s\n", RenderLabel("Commit"), info.GitCommit)
				fmt.Fprintf(w, "%s%s\n", RenderLabel("Built"), info.BuildDate)
				fmt.Fprintf(w, "%s%s (%s)\n", RenderLabel("Go"), info.GoVersion, info.Platform)
			})
		},
	})
}
