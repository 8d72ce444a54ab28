package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/naelab/papercast/pkg/cli"
	"github.com/naelab/papercast/pkg/jobs"
	"github.com/naelab/papercast/pkg/storage"
)

// Store folders for published artifacts.
const (
	radioFolder  = "radio"
	scriptFolder = "script"
)

var (
	watchRoot     string
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process pending episode jobs from the job store",
	Long: `Tail the job store and produce every pending episode submitted while
the watcher runs. Source documents and background tracks are fetched
from the file store; finished audio lands under radio/ and the script
transcript under script/.

The file store root is a local directory or an s3://bucket/prefix URL.
A failed episode is marked failed and the watcher moves on.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchRoot, "root", "", "file store root (directory or s3://bucket/prefix)")
	_ = watchCmd.MarkFlagRequired("root")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", jobs.DefaultPollInterval, "job store poll interval")
	watchCmd.Flags().StringVar(&jobsStoreDir, "store", "", "job store directory (default ~/.papercast/jobs)")

	rootCmd.AddCommand(watchCmd)
}

// openFileStore resolves a store root to a FileStore. S3 credentials come
// from the usual AWS environment variables.
func openFileStore(root string) (storage.FileStore, error) {
	rest, ok := strings.CutPrefix(root, "s3://")
	if !ok {
		return storage.NewLocal(root)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, fmt.Errorf("invalid s3 root %q", root)
	}
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	client := s3.New(s3.Options{
		Region: region,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			id := os.Getenv("AWS_ACCESS_KEY_ID")
			secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
			if id == "" || secret == "" {
				return aws.Credentials{}, fmt.Errorf("AWS credentials are not set")
			}
			return aws.Credentials{
				AccessKeyID:     id,
				SecretAccessKey: secret,
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			}, nil
		}),
	})
	return storage.NewS3(client, bucket, prefix), nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	files, err := openFileStore(watchRoot)
	if err != nil {
		return err
	}
	store, err := openJobStore()
	if err != nil {
		return err
	}
	defer store.Close()

	paths, err := cli.NewPaths()
	if err != nil {
		return err
	}
	if err := paths.EnsureDirs(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("watching for episode jobs", "root", watchRoot, "interval", watchInterval)
	for ep := range store.Watch(ctx, watchInterval) {
		processEpisode(ctx, store, files, paths, ep)
	}
	slog.Info("watcher stopped")
	return nil
}

// processEpisode produces one queued episode. Failures mark the job failed
// and never stop the watcher.
func processEpisode(ctx context.Context, store *jobs.Store, files storage.FileStore, paths *cli.Paths, ep *jobs.Episode) {
	slog.Info("episode job received", "id", ep.ID, "title", ep.Title)
	if err := store.SetStatus(ctx, ep.ID, jobs.StatusProcessing, ""); err != nil {
		slog.Error("mark processing failed", "id", ep.ID, "error", err)
		return
	}

	contentPath, scriptPath, err := produceEpisode(ctx, files, paths, ep)
	if err != nil {
		slog.Error("episode job failed", "id", ep.ID, "error", err)
		cli.PrintWarning("episode %s failed: %v", ep.ID, err)
		if serr := store.SetStatus(ctx, ep.ID, jobs.StatusFailed, err.Error()); serr != nil {
			slog.Error("mark failed failed", "id", ep.ID, "error", serr)
		}
		return
	}

	err = store.Update(ctx, ep.ID, func(e *jobs.Episode) error {
		e.Status = jobs.StatusCompleted
		e.ContentPath = contentPath
		e.ScriptPath = scriptPath
		e.Error = ""
		return nil
	})
	if err != nil {
		slog.Error("mark completed failed", "id", ep.ID, "error", err)
		return
	}
	slog.Info("episode job completed", "id", ep.ID, "content", contentPath, "script", scriptPath)
}

func produceEpisode(ctx context.Context, files storage.FileStore, paths *cli.Paths, ep *jobs.Episode) (contentPath, scriptPath string, err error) {
	workDir := filepath.Join(paths.WorkDir(), ep.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", "", err
	}
	defer os.RemoveAll(workDir)

	opts := ep.Options
	local := make([]string, len(opts.Documents))
	for i, doc := range opts.Documents {
		local[i] = filepath.Join(workDir, "src", filepath.Base(doc))
		if err := storage.Download(ctx, files, doc, local[i]); err != nil {
			return "", "", fmt.Errorf("download %s: %w", doc, err)
		}
	}
	opts.Documents = local

	bgm := ""
	if opts.BGM != "" {
		bgm = filepath.Join(workDir, "bgm", filepath.Base(opts.BGM))
		if err := storage.Download(ctx, files, opts.BGM, bgm); err != nil {
			return "", "", fmt.Errorf("download %s: %w", opts.BGM, err)
		}
	}

	r := &recorder{
		opts:    opts,
		workDir: filepath.Join(workDir, "segments"),
		distDir: filepath.Join(workDir, "dist"),
		bgm:     bgm,
	}
	out, err := r.produce(ctx)
	if err != nil {
		return "", "", err
	}

	contentPath, err = storage.Upload(ctx, files, out.Audio.Path, radioFolder)
	if err != nil {
		return "", "", fmt.Errorf("publish audio: %w", err)
	}
	scriptPath, err = storage.Upload(ctx, files, out.Transcript, scriptFolder)
	if err != nil {
		return "", "", fmt.Errorf("publish script: %w", err)
	}
	return contentPath, scriptPath, nil
}
