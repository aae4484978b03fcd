package app

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/alchemmist/termreel/internal/recording"
)

// fzfArgs hides the leading ID column from display but keeps it in the
// selected line.
var fzfArgs = []string{
	"--prompt", "termreel> ",
	"--delimiter", "\t",
	"--with-nth", "2..",
	"--layout", "reverse",
	"--height", "100%",
}

func chooseRecordingFZF(records []recording.Record) (string, error) {
	var in strings.Builder
	for _, r := range records {
		fmt.Fprintf(&in, "%s\t%s\t%s\t%d frames\t%s\n",
			r.ID, r.Name, r.SavedAt.Local().Format(savedLayout), r.Frames, formatLength(r.Duration))
	}

	cmd := exec.Command("fzf", fzfArgs...)
	cmd.Stdin = strings.NewReader(in.String())
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("fzf selection canceled or failed: %w", err)
	}
	line := strings.TrimSpace(string(out))
	if line == "" {
		return "", errors.New("no recording selected")
	}
	id, _, _ := strings.Cut(line, "\t")
	return id, nil
}
