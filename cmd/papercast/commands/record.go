package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/naelab/papercast/pkg/cli"
	"github.com/naelab/papercast/pkg/program"
)

var (
	recordRequestFile string
	recordOutputDir   string
	recordWorkDir     string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Produce one program from a request file",
	Long: `Produce one program from a YAML or JSON request file.

Request fields (all but papers optional):
  papers:        source document paths
  minute:        target duration in minutes (default 15)
  language:      en, ja, or ko (default en)
  bgm:           background track path
  bgmVolume:     background mix volume (default 0.25)
  llmModel:      generation model (default gpt-4o-mini)
  ttsModel:      synthesis model (default tts-1)

Example:
  papercast record -f request.yaml -o dist`,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVarP(&recordRequestFile, "file", "f", "", "request file (YAML or JSON)")
	_ = recordCmd.MarkFlagRequired("file")
	recordCmd.Flags().StringVarP(&recordOutputDir, "output", "o", "dist", "directory for the finished program")
	recordCmd.Flags().StringVar(&recordWorkDir, "workdir", "", "scratch directory for synthesis segments (default: a temp dir)")

	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	var opts program.Options
	if err := cli.LoadRequest(recordRequestFile, &opts); err != nil {
		return err
	}

	workDir := recordWorkDir
	if workDir == "" {
		dir, err := os.MkdirTemp("", "papercast-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		workDir = dir
	}

	r := &recorder{
		opts:    opts,
		workDir: workDir,
		distDir: recordOutputDir,
		bgm:     opts.BGM,
	}
	out, err := r.produce(cmd.Context())
	if err != nil {
		return err
	}

	if info, err := os.Stat(out.Audio.Path); err == nil {
		cli.PrintSuccess("audio:  %s (%s)", out.Audio.Path, cli.FormatBytes(info.Size()))
	} else {
		cli.PrintSuccess("audio:  %s", out.Audio.Path)
	}
	cli.PrintSuccess("script: %s", out.Transcript)
	return nil
}
