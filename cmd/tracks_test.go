package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderTracksList(t *testing.T) {
	var buf bytes.Buffer
	if err := renderTracks(&buf, []string{"one.mp3", "two.mp3"}, nil); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"one", "two", "2 tracks"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, ".mp3") {
		t.Errorf("extension shown:\n%s", out)
	}
}

func TestRenderTracksQuery(t *testing.T) {
	var buf bytes.Buffer
	if err := renderTracks(&buf, []string{"rock anthem.mp3", "jazz.mp3", "rock.mp3"}, []string{"rock"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "jazz") {
		t.Errorf("non-matching track listed:\n%s", out)
	}
	if strings.Index(out, "100") > strings.Index(out, "rock anthem") {
		t.Errorf("exact match not first:\n%s", out)
	}

	buf.Reset()
	if err := renderTracks(&buf, []string{"jazz.mp3"}, []string{"rock"}); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "Nothing found!" {
		t.Errorf("no-match output = %q", got)
	}
}
