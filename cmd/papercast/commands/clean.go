package commands

import (
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/spf13/cobra"

	"github.com/naelab/papercast/pkg/cli"
	"github.com/naelab/papercast/pkg/completion"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete leftover remote resources from crashed runs",
	Long: `Delete assistants, knowledge indexes, and uploaded files left behind
by runs that crashed before teardown. Only resources carrying the
` + completion.SessionNamePrefix + ` name prefix are touched.`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	client := openai.NewClient()
	provider := &completion.OpenAIProvider{Client: &client}

	n, err := provider.CleanSessions(cmd.Context())
	if err != nil {
		return err
	}
	if n == 0 {
		cli.PrintInfo("nothing to clean")
		return nil
	}
	cli.PrintSuccess("deleted %d leftover remote resources", n)
	return nil
}
