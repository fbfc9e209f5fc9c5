package sys

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

// --- Globals & Styles ---

var (
	// Level colors
	infoColor  = color.New()
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	fatalColor = color.New(color.FgRed, color.Bold)

	// Component colors
	databaseColor = color.New()
	playerColor   = color.New(color.FgMagenta)
	catalogColor  = color.New(color.FgBlue)
	voiceColor    = color.New(color.FgMagenta)
	downloadColor = color.New(color.FgGreen)
	commandColor  = color.New(color.FgCyan)

	DefaultTimeFormat = "15:04:05"
	IsSilent          = false
	Logger            *slog.Logger

	logFile *lumberjack.Logger
	logMu   sync.Mutex
)

func init() {
	InitLogger(false, "")
}

// InitLogger installs the bot log handler as the slog default. A non-empty
// logPath also mirrors output (ANSI stripped) into a rotating file.
func InitLogger(silent bool, logPath string) {
	logMu.Lock()
	defer logMu.Unlock()

	IsSilent = silent
	level := slog.LevelInfo
	if strings.ToLower(os.Getenv("DEBUG")) == "true" {
		level = slog.LevelDebug
	}

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writer io.Writer = os.Stdout
	if logPath != "" {
		logFile = &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
		writer = io.MultiWriter(os.Stdout, NewStripANSIWriter(logFile))
	}

	color.NoColor = false

	handler := NewBotLogHandler(writer, &BotLogHandlerOptions{
		Silent: IsSilent,
		Level:  level,
	})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func SetSilentMode(silent bool) {
	path := ""
	logMu.Lock()
	if logFile != nil {
		path = logFile.Filename
	}
	logMu.Unlock()
	InitLogger(silent, path)
}

// --- Public Logging API ---

func LogInfo(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

func LogWarn(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...))
}

func LogError(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...))
}

func LogDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...))
}

// Component Loggers

func LogDatabase(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "database"))
}

func LogPlayer(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "player"))
}

func LogCatalog(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "catalog"))
}

func LogVoice(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "voice"))
}

func LogDownload(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "download"))
}

func LogCommand(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "command"))
}

// --- Log Handler Implementation ---

type BotLogHandlerOptions struct {
	Silent bool
	Level  slog.Leveler
}

type BotLogHandler struct {
	w    io.Writer
	opts *BotLogHandlerOptions
	mu   *sync.Mutex
}

func NewBotLogHandler(w io.Writer, opts *BotLogHandlerOptions) *BotLogHandler {
	if opts == nil {
		opts = &BotLogHandlerOptions{Level: slog.LevelInfo}
	}
	return &BotLogHandler{
		w:    w,
		opts: opts,
		mu:   &sync.Mutex{},
	}
}

func (h *BotLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.opts.Silent {
		return false
	}
	return level >= h.opts.Level.Level()
}

func (h *BotLogHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.Silent {
		return nil
	}

	timeStr := r.Time.Format(DefaultTimeFormat)
	if r.Time.IsZero() {
		timeStr = time.Now().Format(DefaultTimeFormat)
	}

	var levelStr string
	var levelColor *color.Color
	switch {
	case r.Level >= slog.LevelError+4:
		levelStr = "FATAL"
		levelColor = fatalColor
	case r.Level >= slog.LevelError:
		levelStr = "ERROR"
		levelColor = errorColor
	case r.Level >= slog.LevelWarn:
		levelStr = "WARN"
		levelColor = warnColor
	case r.Level >= slog.LevelInfo:
		levelStr = "INFO"
		levelColor = infoColor
	default:
		levelStr = "DEBUG"
		levelColor = infoColor
	}

	component := ""
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return false
		}
		return true
	})

	fmt.Fprintf(h.w, "%s", timeStr)

	if component != "" {
		if levelStr != "INFO" {
			fmt.Fprintf(h.w, " %s", levelColor.Sprintf("[%s]", levelStr))
		}
		compColor := getComponentColor(component)
		fmt.Fprintf(h.w, " %s\n", colorizeWithResets(compColor, fmt.Sprintf("[%s] %s", component, r.Message)))
	} else {
		fmt.Fprintf(h.w, " %s\n", colorizeWithResets(levelColor, fmt.Sprintf("[%s] %s", levelStr, r.Message)))
	}

	return nil
}

func (h *BotLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *BotLogHandler) WithGroup(name string) slog.Handler       { return h }

// --- Formatting Helpers ---

func getComponentColor(name string) *color.Color {
	switch name {
	case "DATABASE":
		return databaseColor
	case "PLAYER":
		return playerColor
	case "CATALOG":
		return catalogColor
	case "VOICE":
		return voiceColor
	case "DOWNLOAD":
		return downloadColor
	case "COMMAND":
		return commandColor
	default:
		return color.New(color.FgCyan)
	}
}

func colorizeWithResets(c *color.Color, text string) string {
	if !strings.Contains(text, "\x1b[0m") {
		return c.Sprint(text)
	}

	marker := "@@@MSG@@@"
	wrapped := c.Sprint(marker)
	idx := strings.Index(wrapped, marker)
	if idx <= 0 {
		return text
	}
	startSeq := wrapped[:idx]

	modifiedText := strings.ReplaceAll(text, "\x1b[0m", "\x1b[0m"+startSeq)
	return c.Sprint(modifiedText)
}

// GetLogPath returns the active log file, or "" when logging to stdout only.
func GetLogPath() string {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile == nil {
		return ""
	}
	return logFile.Filename
}

// --- ANSI Stripper ---

type StripANSIWriter struct {
	w  io.Writer
	re *regexp.Regexp
}

func NewStripANSIWriter(w io.Writer) *StripANSIWriter {
	return &StripANSIWriter{
		w:  w,
		re: regexp.MustCompile(`\x1b\[[0-9;]*m`),
	}
}

func (s *StripANSIWriter) Write(p []byte) (n int, err error) {
	clean := s.re.ReplaceAll(p, []byte(""))
	_, err = s.w.Write(clean)
	return len(p), err
}

// --- Message Constants ---

const (
	// --- Infrastructure & Lifecycle ---
	MsgConfigFailedToLoad   = "Failed to load config: %v"
	MsgConfigMissingToken   = "DISCORD_TOKEN is not set in .env file"
	MsgDatabaseInitSuccess  = "Database initialized successfully"
	MsgDatabaseTableError   = "Failed to create table: %w"
	MsgDatabasePragmaError  = "Failed to set pragma %s: %w"
	MsgDaemonStarting       = "Starting..."
	MsgBotStarting          = "Starting %s..."
	MsgBotReady             = "%s is ready! (ID: %s) (PID: %d) (Took: %dms)"
	MsgBotShutdown          = "Shutting down %s..."
	MsgBotKillingOld        = "Killing running instance... (PID: %d)"
	MsgBotOldTerminated     = "Old instance terminated."
	MsgGenericError         = "%v"
	MsgLoaderPanicRecovered = "Panic recovered in handler: %v"
)

// @command
const (
	MsgCommandFailed    = "Command %s failed: %v"
	MsgCommandReplyFail = "Failed to reply in %s: %v"

	ErrNoPermission    = "You do not have permission to use this command"
	ErrSomethingWrong  = "Something went wrong, try again later!"
	MsgPlayingTrack    = "Playing `%s`"
	MsgPlayingDuration = "Playing: `%s` for `%s`"
)

// @player
const (
	ErrPlayerForbidSkip   = "You don't have permission to skip"
	ErrPlayerForbidBack   = "You don't have permission to switch to previous"
	ErrPlayerForbidSelect = "You don't have permission go use this command!"
	ErrSelectNoQuery      = "Provide search query!"
	ErrSelectNothingFound = "Nothing found!"
	ErrPlayerIdle         = "Nothing is playing right now!"

	MsgVolumeMode      = "Volume set to `%s`"
	MsgVolumePercent   = "Volume set to %s%%"
	MsgVolumeLoud      = "**!!! Volume set to %s%% !!!**"
	MsgVolumeMaximum   = "**!!! Volume set to _MAXIMUM_ !!!**"
	ErrVolumeMissing   = "Provide volume or volume type!"
	ErrVolumeUnknown   = "Unknown volume type! You can use %s"
	MsgLoopEnabled     = "Loop enabled"
	MsgLoopDisabled    = "Loop disabled"
	MsgSelectionFailed = "Failed to post selection: %v"
)

// @track
const (
	ErrTrackInvalidURL      = "Not valid youtube link!"
	ErrTrackExists          = "Track already exist!"
	ErrTrackLive            = "Cannot play live!"
	ErrTrackTooLong         = "Video should not be longer than %d seconds!"
	ErrTrackMetadata        = "Something went wrong try again later!"
	ErrTrackDownloadFailed  = "Failed to download"
	ErrTrackNoAttachment    = "You have to include attachment!"
	ErrTrackAttachmentFail  = "Download failed!"
	ErrTrackNotFound        = "Unable to find that track!"
	ErrTrackDeleteFailed    = "Something went wrong while trying to delete track!"
	ErrTrackQueryNotFound   = "Could not find a video for that query!"
	MsgTrackPreparing       = "Preparing..."
	MsgTrackDownloading     = "Downloading %d%%"
	MsgTrackDownloaded      = "Downloaded %s"
	MsgAttachmentPreparing  = "Preparing attachment downloader..."
	MsgAttachmentDownloaded = "Downloaded `%s`"
	MsgAttachmentExists     = "Track `%s` already exist!"
	MsgAttachmentAllDone    = "Everything downloaded successfully!"
	MsgAttachmentWithErrors = "Downloaded finished with errors!"
	MsgTrackDeleted         = "Track `%s` has been deleted"
	MsgTrackDeleteLog       = "Deleted %s"
)

// @member
const (
	ErrCurseNoMention   = "You have to mention user!"
	ErrUncurseNoMention = "Please mention user!"
	MsgCurseOne         = "Member has been cursed!"
	MsgCurseMany        = "%d members have been cursed!"
	MsgUncurseNone      = "No one got uncursed"
	MsgUncurseOne       = "Member uncursed"
	MsgUncurseMany      = "%d members uncursed"
)

// @session
const (
	MsgInfoAbout  = "%s is a 24/7 player with build in ear-rape feature"
	MsgKillReply  = "AAAAAAAAAAAAaaaa"
	MsgKillLog    = "Kill requested by %s"
	MsgStuckExit  = "Stream stuck, exiting for a restart"
	MsgSysInfoErr = "Failed to read %s: %v"
)
