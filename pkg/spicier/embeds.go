package spicier

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/dustin/go-humanize"

	"github.com/spicierbot/spicier/pkg/database"
	"github.com/spicierbot/spicier/pkg/music"
)

const (
	colorSuccess = 0x2B2D31
	colorWarning = 0xFAA61A
	colorError   = 0xED4245

	supportURL = "https://discord.gg/CKvaXz5"
	replyMark  = "↳"

	emptyHint = "Use `play` command to add songs.\n**or**\nUse `np` command to show current song."
)

func boolPtr(v bool) *bool { return &v }

func userMention(id snowflake.ID) string    { return fmt.Sprintf("<@%d>", id) }
func channelMention(id snowflake.ID) string { return fmt.Sprintf("<#%d>", id) }

// embedAuthor links action to the support server. A zero user gives no icon.
func embedAuthor(user discord.User, action string) *discord.EmbedAuthor {
	if action == "" {
		return nil
	}
	author := &discord.EmbedAuthor{Name: action, URL: supportURL}
	if user.ID != 0 {
		author.IconURL = user.EffectiveAvatarURL()
	}
	return author
}

func successEmbed(user discord.User, action, title, description string) discord.Embed {
	return discord.Embed{
		Title:       title,
		Description: description,
		Color:       colorSuccess,
		Author:      embedAuthor(user, action),
	}
}

func warningEmbed(user discord.User, action, title, description string) discord.Embed {
	return discord.Embed{
		Title:       title,
		Description: description,
		Color:       colorWarning,
		Author:      embedAuthor(user, action),
	}
}

func trackLink(t music.Track) string {
	if t.URI == "" {
		return t.Title
	}
	return fmt.Sprintf("[%s](%s)", t.Title, t.URI)
}

func trackLength(t music.Track) string {
	if t.Stream {
		return "LIVE"
	}
	return music.FormatDuration(t.Length)
}

func trackFragment(index int, t music.Track) string {
	return fmt.Sprintf("`%d.` %s `%s`\n%s **Author**: %s", index+1, trackLink(t), trackLength(t), replyMark, t.Author)
}

func connectedEmbed(user discord.User, channelName string) discord.Embed {
	return successEmbed(user, "Joined the voice channel", fmt.Sprintf("🔊 **Connected to %s**", channelName), "")
}

func disconnectedEmbed(user discord.User, channelName string) discord.Embed {
	return successEmbed(user, "Left the voice channel", fmt.Sprintf("**Disconnected from %s**", channelName), "")
}

func playEmbed(user discord.User, guildName string, res music.PlayResult) discord.Embed {
	action := guildName + " | Added to queue"
	if res.Started != nil && len(res.Tracks) == 1 {
		action = guildName + " | Now playing"
	}

	if len(res.Tracks) == 1 {
		t := res.Tracks[0]
		e := successEmbed(user, action, fmt.Sprintf("`%s`", t.Title),
			fmt.Sprintf("Added by: %s | Duration: `%s` | Position: `%d`", userMention(user.ID), trackLength(t), res.QueueLen))
		e.URL = t.URI
		return e
	}

	title := fmt.Sprintf("Playlist of **%d** tracks", len(res.Tracks))
	if res.Playlist != "" {
		title = fmt.Sprintf("%s: %s", res.Playlist, title)
	}
	e := successEmbed(user, action, title,
		fmt.Sprintf("Added by: %s | Duration: `%s` | Queue length: `%d`", userMention(user.ID), music.FormatDuration(music.TotalLength(res.Tracks)), res.QueueLen))
	if len(res.Tracks) > 0 {
		e.URL = res.Tracks[0].URI
	}
	return e
}

func queueEmptyEmbed(user discord.User) discord.Embed {
	return warningEmbed(user, "Queue is empty", "", emptyHint)
}

func queueClearedEmbed(user discord.User, n int) discord.Embed {
	return successEmbed(user, "Queue cleared", "", fmt.Sprintf("Removed %s. Queue is empty now.", humanize.Comma(int64(n))+" "+plural(n, "track")))
}

func queueEmbed(user discord.User, guildName string, st music.State, page int) discord.Embed {
	tracks, start := music.Page(st.Queue, page)
	lines := make([]string, len(tracks))
	for i, t := range tracks {
		lines[i] = trackFragment(start+i, t)
	}

	e := successEmbed(user, guildName+" | Queue display", fmt.Sprintf("**%d** songs in queue", len(st.Queue)), strings.Join(lines, "\n"))
	if st.Current != nil {
		e.Fields = append(e.Fields, discord.EmbedField{
			Name: "**Now playing**:",
			Value: fmt.Sprintf("%s `%s`\n%s **Author**: %s\n%s",
				trackLink(*st.Current), trackLength(*st.Current), replyMark, st.Current.Author,
				progress(st.Position, *st.Current)),
		})
	}
	pages := music.Pages(len(st.Queue))
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	e.Footer = &discord.EmbedFooter{
		Text: fmt.Sprintf("Page %d/%d | Total %s", page, pages, music.FormatDuration(music.TotalLength(st.Queue))),
	}
	return e
}

func progress(pos time.Duration, t music.Track) string {
	if t.Stream {
		return "🔴 LIVE"
	}
	return fmt.Sprintf("%s `%s/%s`", music.ProgressBar(pos, t.Length), music.FormatDuration(pos), music.FormatDuration(t.Length))
}

func skippedEmbed(user discord.User, guildName string, prev music.Track, next *music.Track, queueLen int) discord.Embed {
	if next == nil {
		e := successEmbed(user, "Skipped current song", fmt.Sprintf("`%s`", prev.Title), "")
		e.URL = prev.URI
		return e
	}
	e := successEmbed(user, guildName+" | Skipped, now playing", fmt.Sprintf("`%s`", next.Title),
		fmt.Sprintf("Skipped by: %s | Duration: `%s` | Queue: `%d`", userMention(user.ID), trackLength(*next), queueLen))
	e.URL = next.URI
	e.Fields = []discord.EmbedField{{
		Name:  "**Previous**:",
		Value: fmt.Sprintf("%s %s", replyMark, trackLink(prev)),
	}}
	return e
}

func skipAllEmbed(user discord.User, n int) discord.Embed {
	return successEmbed(user, "Skipped all songs", fmt.Sprintf("%s Skipped: `%d` tracks", replyMark, n), "")
}

func noTrackEmbed(user discord.User) discord.Embed {
	return warningEmbed(user, "", "No track currently", emptyHint)
}

func nowPlayingEmbed(user discord.User, guildName string, st music.State) discord.Embed {
	if st.Current == nil {
		return noTrackEmbed(user)
	}
	t := *st.Current
	source := t.Source
	if source == "" {
		source = "Unknown"
	}
	e := successEmbed(user, guildName+" | Now playing", fmt.Sprintf("`%s`", t.Title), "")
	e.URL = t.URI
	e.Fields = []discord.EmbedField{
		{Name: "**Current Volume**:", Value: fmt.Sprintf("`%d`", st.Volume), Inline: boolPtr(true)},
		{Name: "**Track's Author**:", Value: fmt.Sprintf("`%s`", t.Author), Inline: boolPtr(true)},
		{Name: "**Track's Source**:", Value: fmt.Sprintf("`%s`", source), Inline: boolPtr(true)},
		{Name: "**Position**:", Value: fmt.Sprintf("**`%s`**/`%s`\n%s", music.FormatDuration(st.Position), trackLength(t), progress(st.Position, t))},
	}
	if st.Paused {
		e.Footer = &discord.EmbedFooter{Text: "Paused"}
	}
	return e
}

// announceEmbed is posted to the music channel when the queue advances on its own.
func announceEmbed(guildName string, t music.Track, queueLen int) discord.Embed {
	e := successEmbed(discord.User{}, guildName+" | Now playing", fmt.Sprintf("`%s`", t.Title),
		fmt.Sprintf("Duration: `%s` | Queue: `%d`", trackLength(t), queueLen))
	e.URL = t.URI
	if t.RequesterID != 0 {
		e.Description += " | Requested by: " + userMention(t.RequesterID)
	}
	return e
}

func volumeEmbed(user discord.User, volume int, set bool) discord.Embed {
	if set {
		return successEmbed(user, "Volume", fmt.Sprintf("Volume set to `%d`", volume), "")
	}
	return successEmbed(user, "Volume", fmt.Sprintf("Current volume is `%d`", volume), "")
}

func seekEmbed(user discord.User, prev, next time.Duration, t music.Track) discord.Embed {
	return successEmbed(user, "Seeked time",
		fmt.Sprintf("Previously: `%s` | Current: `%s`", music.FormatDuration(prev), music.FormatDuration(next)),
		fmt.Sprintf("%s `%s`\n%s **Author**: %s", trackLink(t), trackLength(t), replyMark, t.Author))
}

func filterListEmbed(user discord.User) discord.Embed {
	e := successEmbed(user, "Filters", "Available filters: ", "")
	for _, f := range music.Filters() {
		e.Fields = append(e.Fields, discord.EmbedField{
			Name:   fmt.Sprintf("`%s`", f.Name),
			Value:  fmt.Sprintf("%s %s", replyMark, f.Description),
			Inline: boolPtr(true),
		})
	}
	return e
}

func filterSetEmbed(user discord.User, f music.Filter) discord.Embed {
	return successEmbed(user, "Filters", fmt.Sprintf("Filter set to `%s`", f.Name), "")
}

func filterClearedEmbed(user discord.User) discord.Embed {
	return successEmbed(user, "Filters", "Filters cleared", "")
}

func filterCurrentEmbed(user discord.User, f *music.Filter) discord.Embed {
	if f == nil {
		return successEmbed(user, "Filters", "none", fmt.Sprintf("%s %s", replyMark, music.NoFilterDescription))
	}
	desc := f.Description
	if desc == "" {
		desc = music.NoFilterDescription
	}
	return successEmbed(user, "Filters", f.Name, fmt.Sprintf("%s %s", replyMark, desc))
}

func playlistSavedEmbed(user discord.User, p *database.Playlist, tracks []music.Track) discord.Embed {
	return successEmbed(user, "Playlists", fmt.Sprintf("Saved `%s`", p.Name),
		fmt.Sprintf("%s %d %s | Duration: `%s`", replyMark, len(tracks), plural(len(tracks), "track"), music.FormatDuration(music.TotalLength(tracks))))
}

func playlistListEmbed(user discord.User, guildName string, lists []database.PlaylistSummary) discord.Embed {
	if len(lists) == 0 {
		return warningEmbed(user, "Playlists", "No playlists saved", "Use `playlist save <name>` while something is playing.")
	}
	lines := make([]string, len(lists))
	for i, p := range lists {
		lines[i] = fmt.Sprintf("`%d.` **%s** %d %s `%s`\n%s by %s, %s",
			i+1, p.Name, p.TrackCount, plural(p.TrackCount, "track"),
			music.FormatDuration(time.Duration(p.TotalLengthMS)*time.Millisecond),
			replyMark, userMention(p.OwnerID), humanize.Time(p.CreatedAt))
	}
	return successEmbed(user, guildName+" | Playlists", fmt.Sprintf("**%d** saved playlists", len(lists)), strings.Join(lines, "\n"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
