package audiomix

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// stubCommands routes every invocation to a shell echo so CombinedOutput
// succeeds, while recording the requested command lines.
func stubCommands(t *testing.T, output string) *[][]string {
	t.Helper()
	var recorded [][]string
	orig := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		recorded = append(recorded, append([]string{name}, args...))
		return exec.CommandContext(ctx, "sh", "-c", "printf '%s' "+output)
	}
	t.Cleanup(func() { commandContext = orig })
	return &recorded
}

func TestFFmpegConcatArgs(t *testing.T) {
	recorded := stubCommands(t, "''")
	f := &FFmpeg{}
	if err := f.Concat(context.Background(), []string{"a.wav", "b.wav"}, "out.wav"); err != nil {
		t.Fatalf("Concat: %v", err)
	}
	got := strings.Join((*recorded)[0], " ")
	want := "ffmpeg -i a.wav -i b.wav -filter_complex concat=n=2:v=0:a=1 -y out.wav"
	if got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestFFmpegMixArgs(t *testing.T) {
	recorded := stubCommands(t, "''")
	f := &FFmpeg{}
	if err := f.Mix(context.Background(), "speech.wav", "bgm.wav", 0.25, "out.wav"); err != nil {
		t.Fatalf("Mix: %v", err)
	}
	got := strings.Join((*recorded)[0], " ")
	if !strings.Contains(got, "[0:a]volume=1.9[a0];[1:a]volume=0.25[a1];[a0][a1]amix=inputs=2:duration=first") {
		t.Errorf("mix filter missing from %q", got)
	}
}

func TestFFmpegDuration(t *testing.T) {
	recorded := stubCommands(t, "90.5")
	f := &FFmpeg{}
	d, err := f.Duration(context.Background(), "speech.wav")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if d != 90500*time.Millisecond {
		t.Errorf("Duration = %v, want 1m30.5s", d)
	}
	if name := (*recorded)[0][0]; name != "ffprobe" {
		t.Errorf("probe binary = %q, want ffprobe", name)
	}
}

func TestFFmpegLoopTrimArgs(t *testing.T) {
	recorded := stubCommands(t, "''")
	f := &FFmpeg{}
	if err := f.LoopTrim(context.Background(), "bgm.mp3", 90*time.Second, "looped.wav"); err != nil {
		t.Fatalf("LoopTrim: %v", err)
	}
	got := strings.Join((*recorded)[0], " ")
	want := "ffmpeg -stream_loop -1 -t 90.000 -i bgm.mp3 -y looped.wav"
	if got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}
