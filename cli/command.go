package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kvesta/depcheck/config"
	"github.com/kvesta/depcheck/internal/buildfile"
	"github.com/kvesta/depcheck/internal/task"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "depcheck [OPTIONS]",
		Short: "Dependency vulnerability check",
		Long: `Depcheck identifies project dependencies and checks whether they have known,
publicly disclosed vulnerabilities recorded in the NVD.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	versions = "depcheck version 1.0.0"

	buildFilePath string
	verbose       bool
	quiet         bool
	failOnError   bool
)

func Execute() error {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information and quit",
		Args:  NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(versions)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&buildFilePath, "file", "f", "", "path of the build file (default ./"+buildfile.DefaultName+" when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log verbose messages")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	rootCmd.PersistentFlags().BoolVar(&failOnError, "failOnError", true, "fail when an error occurs")

	check()
	update()
	purge()

	rootCmd.AddCommand(versionCmd)
	return rootCmd.Execute()
}

// signalContext is cancelled on interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(config.Ctx, os.Interrupt, syscall.SIGTERM)
}

// loadBuildFile reads the build file named by --file, or the default one in
// the working directory. Without either an empty project rooted at the
// working directory is returned.
func loadBuildFile() (*buildfile.BuildFile, error) {
	path := buildFilePath
	if path == "" {
		if _, err := os.Stat(buildfile.DefaultName); err != nil {
			return &buildfile.BuildFile{Project: newProject(task.NewProject("", "."))}, nil
		}
		path = buildfile.DefaultName
	}

	bf, err := buildfile.Load(path)
	if err != nil {
		return nil, err
	}
	newProject(bf.Project)
	return bf, nil
}

func newProject(p *task.Project) *task.Project {
	switch {
	case verbose:
		p.Level = task.LevelVerbose
		config.SetLogLevel(config.LogVerbose)
	case quiet:
		p.Level = task.LevelWarn
		config.SetLogLevel(config.LogWarn)
	}
	p.Out = os.Stdout
	return p
}

func boolPtr(b bool) *bool { return &b }

// applyFailOnError overrides the build file only when the flag was given.
func applyFailOnError(cmd *cobra.Command, dst **bool) {
	if cmd.Flags().Changed("failOnError") {
		*dst = boolPtr(failOnError)
	}
}
