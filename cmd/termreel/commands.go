package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/alchemmist/termreel/internal/app"
	"github.com/alchemmist/termreel/internal/mcp"
	"github.com/alchemmist/termreel/internal/recording"
	"github.com/alchemmist/termreel/internal/script"
)

func addExportFlags(cmd *cobra.Command, opts *app.ExportOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.Cast, "cast", "", "write an asciicast v2 file")
	f.StringVar(&opts.GIF, "gif", "", "write an animated GIF")
	f.StringVar(&opts.PNG, "png", "", "write a PNG of one frame")
	f.IntVar(&opts.Frame, "frame", -1, "frame for --png, negative counts from the end")
	f.IntVar(&opts.FPS, "fps", 0, "GIF frame rate (default from config)")
}

func refArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func printRecord(w io.Writer, rec recording.Record) {
	fmt.Fprintf(w, "saved %s %s (%d frames, %s)\n", rec.ID, rec.Name, rec.Frames, rec.Duration.Round(time.Millisecond))
}

func printFiles(w io.Writer, files []string) {
	for _, f := range files {
		fmt.Fprintf(w, "wrote %s\n", f)
	}
}

func newRecordCmd(g *globalOptions) *cobra.Command {
	var opts app.RecordOptions
	cmd := &cobra.Command{
		Use:   "record SCRIPT",
		Short: "Run a YAML script in a fresh terminal and record it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := script.Load(args[0])
			if err != nil {
				return err
			}
			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Record(cmd.Context(), sc, opts)
			if err != nil {
				return err
			}
			if !opts.NoSave {
				printRecord(cmd.OutOrStdout(), res.Record)
			}
			printFiles(cmd.OutOrStdout(), res.Files)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "catalog name (default from the script title)")
	cmd.Flags().BoolVar(&opts.NoSave, "no-save", false, "export only, do not store the recording")
	addExportFlags(cmd, &opts.Export)
	return cmd
}

func newWatchCmd(g *globalOptions) *cobra.Command {
	var opts app.WatchOptions
	var export app.ExportOptions
	cmd := &cobra.Command{
		Use:   "watch [TARGET]",
		Short: "Record an existing tmux pane until it closes or you stop",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			opts.Target = refArg(args)
			rec, err := a.Watch(cmd.Context(), opts)
			if rec.ID == "" {
				return err
			}
			printRecord(cmd.OutOrStdout(), rec)
			if err != nil {
				return err
			}
			if !export.Any() {
				return nil
			}
			files, err := a.Export(rec.ID, export)
			printFiles(cmd.OutOrStdout(), files)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Name, "name", "", "catalog name (default watch-TARGET)")
	f.DurationVar(&opts.Interval, "interval", 0, "capture interval (default from config)")
	f.IntVar(&opts.MaxFrames, "max-frames", 0, "stop after this many frames")
	f.BoolVar(&opts.KeepDuplicates, "keep-duplicates", false, "record a frame on every tick even if nothing changed")
	f.BoolVar(&opts.Escapes, "escapes", false, "keep color and attribute escapes")
	addExportFlags(cmd, &export)
	return cmd
}

func newListCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved recordings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			recs, err := a.ListRecords()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range recs {
				fmt.Fprintf(out, "%s\t%s\t%s\t%d frames\t%s\t%dx%d\n",
					r.ID, r.Name, r.SavedAt.Local().Format(time.RFC3339), r.Frames, r.Duration.Round(time.Millisecond), r.Width, r.Height)
			}
			return nil
		},
	}
}

func newExportCmd(g *globalOptions) *cobra.Command {
	var opts app.ExportOptions
	cmd := &cobra.Command{
		Use:   "export [REF]",
		Short: "Export a saved recording (REF is an ID or name, default latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Any() {
				return errors.New("export requires --cast, --gif or --png")
			}
			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			files, err := a.Export(refArg(args), opts)
			printFiles(cmd.OutOrStdout(), files)
			return err
		},
	}
	addExportFlags(cmd, &opts)
	return cmd
}

func newPlayCmd(g *globalOptions) *cobra.Command {
	var opts app.PlayOptions
	var castPath string
	cmd := &cobra.Command{
		Use:   "play [REF]",
		Short: "Replay a recording or asciicast file in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if castPath != "" {
				return a.PlayCast(castPath, opts)
			}
			return a.Play(refArg(args), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&castPath, "file", "", "play this asciicast file instead of a saved recording")
	f.Float64Var(&opts.Speed, "speed", 1, "playback speed multiplier")
	f.DurationVar(&opts.MaxIdle, "max-idle", 2*time.Second, "cap pauses between frames (0 keeps them)")
	f.BoolVar(&opts.Loop, "loop", false, "start over after the last frame")
	return cmd
}

func newPickerCmd(g *globalOptions) *cobra.Command {
	var useFZF, printOnly bool
	cmd := &cobra.Command{
		Use:   "picker",
		Short: "Pick a saved recording and play it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var id string
			if useFZF {
				id, err = a.SelectWithFZF()
			} else {
				id, err = a.SelectWithTUI()
			}
			if err != nil {
				return err
			}
			if printOnly {
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}
			return a.Play(id, app.PlayOptions{Speed: 1, MaxIdle: 2 * time.Second})
		},
	}
	cmd.Flags().BoolVar(&useFZF, "fzf-engine", false, "use fzf instead of the built-in picker")
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the selected ID instead of playing it")
	return cmd
}

func newStatsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [REF]",
		Short: "Show frame timing for a recording",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.Stats(refArg(args))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newDeleteCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete REF",
		Short: "Delete a saved recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.Delete(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", rec.ID, rec.Name)
			return nil
		},
	}
}

func newMCPCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve terminal tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return mcp.Run(a, version)
		},
	}
}
