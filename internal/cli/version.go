package cli

import (
	"github.com/spf13/cobra"

	"github.com/iudanet/schoolsync/internal/iocli"
)

func versionCommand(info BuildInfo, io iocli.IO) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(io, info)
		},
	}
}

func printVersion(io iocli.IO, info BuildInfo) {
	io.Printf("schoolsync\n")
	io.Printf("Version:    %s\n", info.Version)
	io.Printf("Build Date: %s\n", info.BuildDate)
	io.Printf("Git Commit: %s\n", info.GitCommit)
}
