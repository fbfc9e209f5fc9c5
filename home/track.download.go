package home

import (
	"errors"
	"fmt"

	"github.com/leeineian/radiobox/proc"
	"github.com/leeineian/radiobox/sys"
	"github.com/samber/lo"
)

func handleTrackYouTube(c *Context) error {
	url, ok := lo.Find(c.Args[1:], func(arg string) bool {
		return proc.ValidateYouTubeURL(arg) == nil
	})
	if !ok {
		query := c.Rest()
		if query == "" || c.Lookup == nil {
			c.Reply(sys.ErrTrackInvalidURL)
			return nil
		}
		found, err := c.Lookup(c.Ctx, query)
		if err != nil {
			sys.LogDownload("Lookup for %q failed: %v", query, err)
			c.Reply(sys.ErrTrackQueryNotFound)
			return nil
		}
		url = found
	}

	status := c.Reply(sys.MsgTrackPreparing)
	edit := func(content string) {
		if status == 0 {
			return
		}
		if err := c.Chat.Edit(c.Msg.ChannelID, status, content); err != nil {
			sys.LogCommand(sys.MsgCommandReplyFail, c.Msg.ChannelID, err)
		}
	}

	info, name, err := c.Downloader.Inspect(c.Ctx, url)
	if err != nil {
		edit(inspectFailure(err, c.Config.MaxTrackSeconds))
		return nil
	}

	err = c.Downloader.YouTube(c.Ctx, url, name, func(percent int) {
		edit(fmt.Sprintf(sys.MsgTrackDownloading, percent))
	})
	if err != nil {
		sys.LogDownload("Download of %s failed: %v", url, err)
		edit(sys.ErrTrackDownloadFailed)
		return nil
	}
	edit(fmt.Sprintf(sys.MsgTrackDownloaded, info.Title))
	return nil
}

func inspectFailure(err error, maxSeconds int) string {
	switch {
	case errors.Is(err, proc.ErrInvalidURL):
		return sys.ErrTrackInvalidURL
	case errors.Is(err, proc.ErrTrackExists):
		return sys.ErrTrackExists
	case errors.Is(err, proc.ErrLiveContent):
		return sys.ErrTrackLive
	case errors.Is(err, proc.ErrTooLong):
		return fmt.Sprintf(sys.ErrTrackTooLong, maxSeconds)
	case errors.Is(err, proc.ErrBadMetadata):
		return sys.ErrTrackMetadata
	}
	sys.LogDownload("Inspect failed: %v", err)
	return sys.ErrTrackDownloadFailed
}

func handleTrackAttachment(c *Context) error {
	if len(c.Msg.Attachments) == 0 {
		c.Reply(sys.ErrTrackNoAttachment)
		return nil
	}
	status := c.Reply(sys.MsgAttachmentPreparing)

	failed := false
	for _, a := range c.Msg.Attachments {
		name, err := c.Downloader.Attachment(c.Ctx, a.URL, a.Filename)
		switch {
		case errors.Is(err, proc.ErrTrackExists):
			failed = true
			c.Replyf(sys.MsgAttachmentExists, name)
		case err != nil:
			failed = true
			sys.LogDownload("Attachment %s failed: %v", a.Filename, err)
			c.Reply(sys.ErrTrackAttachmentFail)
		default:
			c.Replyf(sys.MsgAttachmentDownloaded, name)
		}
	}

	final := sys.MsgAttachmentAllDone
	if failed {
		final = sys.MsgAttachmentWithErrors
	}
	if status != 0 {
		if err := c.Chat.Edit(c.Msg.ChannelID, status, final); err != nil {
			sys.LogCommand(sys.MsgCommandReplyFail, c.Msg.ChannelID, err)
		}
	}
	return nil
}
