package home

func init() {
	RegisterCommand(&Command{
		Names: []string{"help", "?"},
		Help:  "Shows help",
		Run:   handleInfoHelp,
	})
	RegisterCommand(&Command{
		Names: []string{"playlist", "queue"},
		Help:  "Shows playlist",
		Run:   handleInfoQueue,
	})
	RegisterCommand(&Command{
		Names:  []string{"sysinfo"},
		Help:   "Shows system info",
		Hidden: true,
		Run:    handleInfoSystem,
	})
	RegisterCommand(&Command{
		Names:  []string{"np", "nowplaying", "playing"},
		Help:   "Shows what is currently playing",
		Hidden: true,
		Run:    handleInfoNowPlaying,
	})
	RegisterCommand(&Command{
		Names: []string{"info"},
		Help:  "Shows info about player",
		Run:   handleInfoAbout,
	})
}
