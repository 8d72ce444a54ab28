package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/naelab/papercast/pkg/cli"
	"github.com/naelab/papercast/pkg/jobs"
	"github.com/naelab/papercast/pkg/program"
)

var (
	jobsStoreDir     string
	jobsOutputFormat string

	jobsSubmitFile  string
	jobsSubmitTitle string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage episode jobs in the local job store",
}

var jobsSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Queue an episode job for the watcher",
	RunE:  runJobsSubmit,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List episode jobs",
	RunE:  runJobsList,
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one episode job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsGet,
}

func init() {
	jobsCmd.PersistentFlags().StringVar(&jobsStoreDir, "store", "", "job store directory (default ~/.papercast/jobs)")
	jobsCmd.PersistentFlags().StringVarP(&jobsOutputFormat, "format", "F", "yaml", "output format (yaml, json)")

	jobsSubmitCmd.Flags().StringVarP(&jobsSubmitFile, "file", "f", "", "request file (YAML or JSON)")
	_ = jobsSubmitCmd.MarkFlagRequired("file")
	jobsSubmitCmd.Flags().StringVar(&jobsSubmitTitle, "title", "", "working title shown in job listings")

	jobsCmd.AddCommand(jobsSubmitCmd, jobsListCmd, jobsGetCmd)
	rootCmd.AddCommand(jobsCmd)
}

// openJobStore opens the job store, defaulting to ~/.papercast/jobs.
func openJobStore() (*jobs.Store, error) {
	dir := jobsStoreDir
	if dir == "" {
		paths, err := cli.NewPaths()
		if err != nil {
			return nil, err
		}
		if err := paths.EnsureDirs(); err != nil {
			return nil, err
		}
		dir = paths.JobsDir()
	}
	return jobs.Open(jobs.Options{Dir: dir})
}

func runJobsSubmit(cmd *cobra.Command, args []string) error {
	var opts program.Options
	if err := cli.LoadRequest(jobsSubmitFile, &opts); err != nil {
		return err
	}
	opts.Normalize()
	if err := opts.Validate(); err != nil {
		return err
	}

	store, err := openJobStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Put(cmd.Context(), &jobs.Episode{
		Title:   jobsSubmitTitle,
		Options: opts,
	})
	if err != nil {
		return err
	}
	cli.PrintSuccess("submitted episode %s", id)
	return nil
}

func runJobsList(cmd *cobra.Command, args []string) error {
	store, err := openJobStore()
	if err != nil {
		return err
	}
	defer store.Close()

	episodes, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(episodes) == 0 {
		cli.PrintInfo("no episode jobs")
		return nil
	}
	return cli.Output(episodes, cli.OutputOptions{Format: cli.OutputFormat(jobsOutputFormat)})
}

func runJobsGet(cmd *cobra.Command, args []string) error {
	store, err := openJobStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ep, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("episode %s: %w", args[0], err)
	}
	return cli.Output(ep, cli.OutputOptions{Format: cli.OutputFormat(jobsOutputFormat)})
}
