package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/leeineian/radiobox/proc"
	"github.com/leeineian/radiobox/sys"
	"github.com/spf13/cobra"
)

var tracksDir string

var tracksCmd = &cobra.Command{
	Use:   "tracks [query...]",
	Short: "List the track catalog, ranked against a query when one is given",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := tracksDir
		if dir == "" {
			_ = godotenv.Load()
			dir = strings.TrimSpace(os.Getenv("TRACK_DIRECTORY"))
		}
		if dir == "" {
			dir = sys.DefaultTrackDirectory
		}
		names, err := proc.ListTracks(dir)
		if err != nil {
			return err
		}
		return renderTracks(cmd.OutOrStdout(), names, args)
	},
}

func init() {
	tracksCmd.Flags().StringVarP(&tracksDir, "dir", "d", "", "Track directory (default $TRACK_DIRECTORY or "+sys.DefaultTrackDirectory+")")
	rootCmd.AddCommand(tracksCmd)
}

func renderTracks(w io.Writer, names []string, query []string) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	if len(query) == 0 {
		t.AppendHeader(table.Row{"#", "Track"})
		for i, name := range names {
			t.AppendRow(table.Row{i, sys.RemoveExtension(name)})
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d tracks", len(names))})
		t.Render()
		return nil
	}

	t.AppendHeader(table.Row{"Score", "Track"})
	for _, r := range proc.Rank(names, query) {
		if r.Score == 0 {
			break
		}
		t.AppendRow(table.Row{r.Score, sys.RemoveExtension(r.Name)})
	}
	if t.Length() == 0 {
		_, err := fmt.Fprintln(w, sys.ErrSelectNothingFound)
		return err
	}
	t.Render()
	return nil
}
