package proc

import (
	"slices"
	"testing"
)

func TestRankScores(t *testing.T) {
	ranked := Rank([]string{"bar.mp3", "foo.mp3", "Foo_Bar.mp3"}, []string{"foo"})

	want := []ScoredTrack{
		{Name: "foo.mp3", Score: 100},
		{Name: "Foo_Bar.mp3", Score: 1},
		{Name: "bar.mp3", Score: 0},
	}
	if !slices.Equal(ranked, want) {
		t.Errorf("Rank = %v, want %v", ranked, want)
	}
}

func TestRankSubstringScoresOne(t *testing.T) {
	ranked := Rank([]string{"foo.mp3", "foobar.mp3", "baz.mp3"}, []string{"foo"})
	got := []int{ranked[0].Score, ranked[1].Score, ranked[2].Score}
	if !slices.Equal(got, []int{100, 1, 0}) || ranked[1].Name != "foobar.mp3" {
		t.Errorf("Rank = %v", ranked)
	}
}

func TestRankSumsTokens(t *testing.T) {
	ranked := Rank([]string{"daft punk - one more time.mp3", "one.mp3"}, []string{"one", "time"})
	want := []ScoredTrack{
		{Name: "one.mp3", Score: 100},
		{Name: "daft punk - one more time.mp3", Score: 2},
	}
	if !slices.Equal(ranked, want) {
		t.Errorf("Rank = %v, want %v", ranked, want)
	}
}

func TestRankTiesKeepCatalogOrder(t *testing.T) {
	names := []string{"z rock.mp3", "a rock.mp3", "m rock.mp3"}
	ranked := Rank(names, []string{"rock"})
	for i, r := range ranked {
		if r.Name != names[i] || r.Score != 1 {
			t.Errorf("ranked[%d] = %+v", i, r)
		}
	}
	if got := len(TopMatches(ranked)); got != 3 {
		t.Errorf("TopMatches len = %d", got)
	}
}

func TestRankNormalizesSeparators(t *testing.T) {
	ranked := Rank([]string{"never-gonna_give.mp3"}, []string{"NEVER_GONNA-GIVE"})
	if ranked[0].Score != 100 {
		t.Errorf("score = %d, want 100", ranked[0].Score)
	}
}

func TestTopMatches(t *testing.T) {
	if got := TopMatches(Rank([]string{"a.mp3", "b.mp3"}, []string{"zzz"})); got != nil {
		t.Errorf("no match TopMatches = %v", got)
	}
	if got := TopMatches(nil); got != nil {
		t.Errorf("empty TopMatches = %v", got)
	}
	top := TopMatches(Rank([]string{"foo bar.mp3", "foo.mp3", "bar.mp3"}, []string{"foo"}))
	if len(top) != 1 || top[0].Name != "foo.mp3" {
		t.Errorf("TopMatches = %v", top)
	}
}

func TestRankIgnoresEmptyTokens(t *testing.T) {
	ranked := Rank([]string{"a.mp3"}, []string{"", "_", " "})
	if ranked[0].Score != 0 {
		t.Errorf("score = %d", ranked[0].Score)
	}
}

func TestFindByName(t *testing.T) {
	names := []string{"Some  Song.mp3", "other.mp3"}
	tests := []struct {
		query string
		want  string
		ok    bool
	}{
		{"some song", "Some  Song.mp3", true},
		{"  OTHER ", "other.mp3", true},
		{"other.mp3", "", false},
		{"", "", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		got, ok := FindByName(names, tt.query)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FindByName(%q) = %q, %v", tt.query, got, ok)
		}
	}
}
