package home

func init() {
	RegisterCommand(&Command{
		Names:      []string{"ytdownload", "yt", "enqueue", "add"},
		Help:       "Download from youtube",
		Permission: PermAdmin,
		Run:        handleTrackYouTube,
	})
	RegisterCommand(&Command{
		Names:      []string{"atdownload", "download"},
		Help:       "Downloader from attachment",
		Permission: PermAdmin,
		Run:        handleTrackAttachment,
	})
	RegisterCommand(&Command{
		Names:      []string{"delete", "remove"},
		Help:       "Deletes track from the bot",
		Permission: PermAdmin,
		Run:        handleTrackDelete,
	})
}
