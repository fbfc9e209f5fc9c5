package proc

import (
	"context"
	"errors"
	"strings"

	"github.com/leeineian/radiobox/sys"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

var ErrNoResults = errors.New("no results")

const youtubeWatchPrefix = "https://www.youtube.com/watch?v="

// LookupVideo resolves free text to a YouTube watch URL. YouTube Music track
// search is tried first, then plain YouTube search.
func LookupVideo(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrNoResults
	}

	if id, err := lookupMusic(query); err == nil && id != "" {
		return youtubeWatchPrefix + id, nil
	} else if err != nil {
		sys.LogDownload("YouTube Music search failed for %q: %v", query, err)
	}

	c := ytsearch.NewClient(nil)
	res, err := c.Search(ctx, query)
	if err != nil {
		return "", err
	}
	for _, v := range res.Results {
		if v.VideoID != "" {
			return youtubeWatchPrefix + v.VideoID, nil
		}
	}
	return "", ErrNoResults
}

func lookupMusic(query string) (string, error) {
	res, err := ytmusic.TrackSearch(query).Next()
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", nil
	}
	for _, v := range res.Tracks {
		if v.VideoID != "" {
			return v.VideoID, nil
		}
	}
	return "", nil
}
