package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/leeineian/radiobox/home"
	"github.com/leeineian/radiobox/proc"
	"github.com/leeineian/radiobox/sys"
)

const shutdownTimeout = 10 * time.Second

func runBot() error {
	cfg, err := sys.LoadConfig()
	if err != nil {
		return fmt.Errorf(sys.MsgConfigFailedToLoad, err)
	}
	sys.InitLogger(silent || cfg.Silent, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	sys.SetAppContext(ctx)

	if err := sys.InitDatabase(ctx, cfg.DatabasePath); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer sys.CloseDatabase()

	botName := sys.GetProjectName()
	if name, _, err := sys.GetBotUsername(ctx, cfg.Token); err == nil {
		botName = name
	} else {
		sys.LogError("Failed to get bot username: %v", err)
	}
	sys.LogInfo(sys.MsgBotStarting, botName)

	release, err := acquireInstanceLock()
	if err != nil {
		return err
	}
	defer release()

	// teardown through the deferred path so voice and the PID lock are released
	requestExit := func(code int) {
		exitCode.Store(int32(code))
		stop()
	}

	client, err := sys.CreateClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create Discord client: %w", err)
	}
	defer client.Close(context.Background())

	if err := os.MkdirAll(cfg.TrackDirectory, 0755); err != nil {
		return fmt.Errorf("create track directory: %w", err)
	}
	seed := time.Now().UnixNano()
	catalog := proc.NewCatalog(cfg.TrackDirectory, rand.New(rand.NewSource(seed)))
	if err := catalog.Load(); err != nil {
		return err
	}
	catalog.Shuffle()
	sys.LogCatalog("Loaded %d tracks from %s", catalog.Len(), cfg.TrackDirectory)

	transport := proc.NewVoiceTransport(client, cfg.GuildID, cfg.VoiceChannelID)
	presence := proc.NewPresence(nil, func(ctx context.Context, text string) error {
		return client.SetPresence(ctx,
			gateway.WithOnlineStatus(discord.OnlineStatusOnline),
			gateway.WithListeningActivity(text),
		)
	})

	var onStuck func()
	if cfg.DestroyOnError {
		onStuck = func() {
			sys.LogError(sys.MsgStuckExit)
			requestExit(1)
		}
	}

	engine := proc.NewEngine(proc.EngineConfig{
		Catalog:          catalog,
		Transport:        transport,
		Rand:             rand.New(rand.NewSource(seed + 1)),
		Status:           presence,
		Notifier:         &proc.ChannelNotifier{Client: client, ChannelID: cfg.OperatorChannelID},
		StartupFile:      cfg.StartupFile,
		MaxTrackDuration: time.Duration(cfg.MaxTrackSeconds) * time.Second,
		OnStuck:          onStuck,
	})
	transport.OnEvent = engine.Dispatch
	transport.OnDisconnect = engine.Disconnected
	sys.RegisterVoiceStateUpdateHandler(transport.OnVoiceStateUpdate)

	discordGuild := home.NewDiscord(client, cfg)

	warden := proc.NewWarden(proc.NewCurseSet(), nil)
	warden.BotChannel = discordGuild.BotVoiceChannel
	warden.Locate = discordGuild.VoiceChannelOf
	warden.Move = discordGuild.MoveMember

	env := &home.Env{
		Config: cfg,
		Player: engine,
		Chat:   discordGuild,
		Guild:  discordGuild,
		Selector: proc.NewSelector(nil, func(p proc.Prompt) {
			if err := discordGuild.Delete(p.ChannelID, p.MessageID); err != nil {
				sys.LogCommand("Failed to remove selection prompt: %v", err)
			}
		}),
		Downloader: &proc.Downloader{
			TrackDir:    cfg.TrackDirectory,
			TempDir:     cfg.TempDirectory,
			MaxDuration: time.Duration(cfg.MaxTrackSeconds) * time.Second,
			Exists:      catalog.Contains,
			Add:         engine.AddTrack,
		},
		Lookup: proc.LookupVideo,
		Warden: warden,
		Exit:   requestExit,
	}
	home.Install(home.NewDispatcher(env), cfg.GuildID, warden)

	sys.RegisterDaemon(sys.LogPlayer, func(ctx context.Context) (bool, func(), func()) {
		run := func() {
			if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				sys.LogPlayer("Engine stopped: %v", err)
			}
		}
		shutdown := func() {
			leaveCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			transport.Leave(leaveCtx)
		}
		return true, run, shutdown
	})

	var startOnce sync.Once
	sys.RegisterGuildReadyHandler(func(event *events.GuildReady) {
		if event.GuildID != cfg.GuildID {
			return
		}
		startOnce.Do(engine.Start)
	})

	if err := client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	<-ctx.Done()
	if !silent {
		fmt.Println()
	}

	sys.LogInfo("Shutting down all daemons...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	sys.ShutdownDaemons(shutdownCtx)

	if self, ok := client.Caches.SelfUser(); ok {
		sys.LogInfo(sys.MsgBotShutdown, self.Username)
	} else {
		sys.LogInfo(sys.MsgBotShutdown, botName)
	}
	return nil
}
