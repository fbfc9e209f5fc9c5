package home

func init() {
	RegisterCommand(&Command{
		Names: []string{"next", ">>", "forward"},
		Help:  "Switches to next track",
		Run:   handlePlayerNext,
	})
	RegisterCommand(&Command{
		Names: []string{"back", "<<", "previous"},
		Help:  "Switches to previous track",
		Run:   handlePlayerBack,
	})
	RegisterCommand(&Command{
		Names:      []string{"volume", "vol"},
		Help:       "Set volume",
		Permission: PermAdmin,
		Run:        handlePlayerVolume,
	})
	RegisterCommand(&Command{
		Names: []string{"select", "play", "query"},
		Help:  "Plays specified track",
		Run:   handlePlayerSelect,
	})
	RegisterCommand(&Command{
		Names:      []string{"loop", "repeat"},
		Help:       "Toggles replaying the current track",
		Permission: PermAdmin,
		Run:        handlePlayerLoop,
	})
}
