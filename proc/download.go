package proc

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leeineian/radiobox/sys"
	"github.com/lrstanley/go-ytdlp"
)

var (
	ErrInvalidURL   = errors.New("not a youtube link")
	ErrTrackExists  = errors.New("track already exists")
	ErrLiveContent  = errors.New("live content")
	ErrTooLong      = errors.New("video too long")
	ErrBadMetadata  = errors.New("unreadable video metadata")
	ErrDownloadFail = errors.New("download failed")
)

const (
	ProgressInterval = 5 * time.Second
	trackExtension   = ".mp3"
	mp3Quality       = "256K"
)

var youtubeURLPattern = regexp.MustCompile(`^(https?://)?((www|m|music)\.)?(youtube\.com/(watch\?(.*&)?v=|shorts/|embed/|live/|v/)|youtu\.be/)[\w-]{11}`)

var titleReplacer = strings.NewReplacer("/", "", "\\", "")

func ValidateYouTubeURL(u string) error {
	if !youtubeURLPattern.MatchString(strings.TrimSpace(u)) {
		return ErrInvalidURL
	}
	return nil
}

// TrackFileName turns a video title into a catalog file name.
func TrackFileName(title string) string {
	return strings.TrimSpace(titleReplacer.Replace(title)) + trackExtension
}

// AttachmentTrackName turns an uploaded file name into a catalog file name;
// underscores become spaces. Unnamed uploads get a generated name.
func AttachmentTrackName(name string) string {
	base := strings.TrimSpace(sys.RemoveExtension(name))
	if base == "" {
		base = fmt.Sprintf("gen-%d", 1000+rand.IntN(9000))
	}
	return strings.ReplaceAll(titleReplacer.Replace(base), "_", " ") + trackExtension
}

// VideoInfo is the subset of yt-dlp metadata checked before a download.
type VideoInfo struct {
	ID       string
	Title    string
	Duration time.Duration
	Live     bool
}

const metadataTemplate = "%(id)s\t%(title)s\t%(duration)s\t%(is_live)s"

func parseMetadata(stdout string) (VideoInfo, error) {
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		ps := strings.Split(line, "\t")
		if len(ps) < 4 || ps[1] == "" {
			continue
		}
		info := VideoInfo{ID: ps[0], Title: ps[1], Live: strings.EqualFold(ps[3], "true")}
		if ps[2] != "NA" && ps[2] != "" {
			secs, err := strconv.ParseFloat(ps[2], 64)
			if err != nil {
				return VideoInfo{}, fmt.Errorf("%w: duration %q", ErrBadMetadata, ps[2])
			}
			info.Duration = time.Duration(secs * float64(time.Second))
		} else if !info.Live {
			return VideoInfo{}, fmt.Errorf("%w: missing duration", ErrBadMetadata)
		}
		return info, nil
	}
	return VideoInfo{}, ErrBadMetadata
}

// Downloader fetches audio with yt-dlp, converts it to mp3 in the temp
// directory and moves the result into the track directory.
type Downloader struct {
	TrackDir    string
	TempDir     string
	MaxDuration time.Duration
	// Exists reports whether a catalog name is already taken.
	Exists func(name string) bool
	// Add registers a finished file with the player.
	Add func(name string) error
}

func (d *Downloader) exists(name string) bool {
	if d.Exists != nil && d.Exists(name) {
		return true
	}
	_, err := os.Stat(filepath.Join(d.TrackDir, name))
	return err == nil
}

// Inspect reads a video's metadata and checks it against the download rules.
// The returned name is the file the track would be stored under.
func (d *Downloader) Inspect(ctx context.Context, url string) (VideoInfo, string, error) {
	if err := ValidateYouTubeURL(url); err != nil {
		return VideoInfo{}, "", err
	}
	res, err := ytdlp.New().
		Print(metadataTemplate).
		NoWarnings().
		IgnoreConfig().
		NoPlaylist().
		Run(ctx, "--skip-download", url)
	if err != nil {
		return VideoInfo{}, "", fmt.Errorf("%w: %w", ErrDownloadFail, err)
	}
	info, err := parseMetadata(res.Stdout)
	if err != nil {
		return VideoInfo{}, "", err
	}

	name := TrackFileName(info.Title)
	switch {
	case d.exists(name):
		return info, name, ErrTrackExists
	case info.Live:
		return info, name, ErrLiveContent
	case d.MaxDuration > 0 && info.Duration > d.MaxDuration:
		return info, name, ErrTooLong
	}
	return info, name, nil
}

// YouTube downloads a checked video into the catalog under name.
func (d *Downloader) YouTube(ctx context.Context, url, name string, progress func(percent int)) error {
	sys.LogDownload("Downloading %s as %s", url, name)
	return d.fetch(ctx, url, name, progress)
}

// Attachment downloads an uploaded file and stores it under its derived name.
func (d *Downloader) Attachment(ctx context.Context, url, fileName string) (string, error) {
	name := AttachmentTrackName(fileName)
	if d.exists(name) {
		return name, ErrTrackExists
	}
	sys.LogDownload("Downloading attachment %s as %s", fileName, name)
	return name, d.fetch(ctx, url, name, nil)
}

func (d *Downloader) fetch(ctx context.Context, url, name string, progress func(percent int)) error {
	if err := os.MkdirAll(d.TempDir, 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrDownloadFail, err)
	}
	tmp := uuid.NewString()

	cmd := ytdlp.New().
		NoWarnings().
		IgnoreConfig().
		NoPlaylist().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality(mp3Quality).
		Output(filepath.Join(d.TempDir, tmp+".%(ext)s"))
	if progress != nil {
		cmd = cmd.ProgressFunc(ProgressInterval, func(u ytdlp.ProgressUpdate) {
			progress(int(u.Percent()))
		})
	}

	tmpPath := filepath.Join(d.TempDir, tmp+trackExtension)
	defer os.Remove(tmpPath)

	if _, err := cmd.Run(ctx, url); err != nil {
		return fmt.Errorf("%w: %w", ErrDownloadFail, err)
	}
	return d.store(tmpPath, name)
}

// store moves a finished file into the track directory and registers it.
// A catalog that already picked the file up on reload counts as success.
func (d *Downloader) store(tmpPath, name string) error {
	if err := d.install(tmpPath, name); err != nil {
		return err
	}
	if d.Add != nil {
		if err := d.Add(name); err != nil && !errors.Is(err, ErrDuplicateTrack) {
			return err
		}
	}
	sys.LogDownload("Stored %s", name)
	return nil
}

func (d *Downloader) install(tmpPath, name string) error {
	dst := filepath.Join(d.TrackDir, name)
	if d.exists(name) {
		return ErrTrackExists
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrDownloadFail, err)
	}
	return nil
}

// DeleteTrack removes a track file from disk. A file that is already gone is
// not an error.
func DeleteTrack(dir, name string) error {
	if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrCatalogIO, err)
	}
	return nil
}
