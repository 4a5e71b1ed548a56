package spicier

import (
	"fmt"
	"time"

	"emperror.dev/errors"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/database"
	"github.com/spicierbot/spicier/pkg/music"
	"github.com/spicierbot/spicier/pkg/router"
)

func playlistName(c *router.Context) (string, error) {
	if c.Rest == "" {
		return "", &router.MissingArgumentError{Name: "name"}
	}
	return c.Rest, nil
}

func toPlaylistTracks(tracks []music.Track) []database.PlaylistTrack {
	out := make([]database.PlaylistTrack, len(tracks))
	for i, t := range tracks {
		out[i] = database.PlaylistTrack{
			Position: i,
			Encoded:  t.Encoded,
			Title:    t.Title,
			Author:   t.Author,
			URI:      t.URI,
			LengthMS: t.Length.Milliseconds(),
		}
	}
	return out
}

func fromPlaylistTracks(tracks []database.PlaylistTrack, requester discord.User) []music.Track {
	out := make([]music.Track, len(tracks))
	for i, t := range tracks {
		out[i] = music.Track{
			Encoded:     t.Encoded,
			Title:       t.Title,
			Author:      t.Author,
			URI:         t.URI,
			Length:      time.Duration(t.LengthMS) * time.Millisecond,
			RequesterID: requester.ID,
		}
	}
	return out
}

func canDeletePlaylist(p *database.Playlist, userID snowflake.ID, perms discord.Permissions) bool {
	return p.OwnerID == userID || perms.Has(discord.PermissionAdministrator)
}

func (b *Bot) findPlaylist(c *router.Context, name string) (*database.Playlist, []database.PlaylistTrack, error) {
	p, tracks, err := b.DB.PlaylistByName(c, c.GuildID(), name)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil, &music.ArgumentError{Msg: "Playlist not found."}
	}
	return p, tracks, err
}

func (b *Bot) playlistSave(c *router.Context) error {
	name, err := playlistName(c)
	if err != nil {
		return err
	}
	st, err := b.Music.State(c.GuildID())
	if err != nil {
		return err
	}
	var tracks []music.Track
	if st.Current != nil {
		tracks = append(tracks, *st.Current)
	}
	tracks = append(tracks, st.Queue...)

	p, err := b.DB.CreatePlaylist(c, database.Playlist{
		GuildID: c.GuildID(),
		OwnerID: c.Author().ID,
		Name:    name,
	}, toPlaylistTracks(tracks))
	if errors.Is(err, database.ErrPlaylistExists) {
		return &music.ArgumentError{Msg: "A playlist with this name already exists."}
	}
	if err != nil {
		return err
	}
	b.Log.Info("Saved playlist", "guild_id", c.GuildID(), "playlist", p.Name, "tracks", len(tracks))
	return reply(c, playlistSavedEmbed(c.Author(), p, tracks))
}

func (b *Bot) playlistLoad(c *router.Context) error {
	name, err := playlistName(c)
	if err != nil {
		return err
	}
	p, stored, err := b.findPlaylist(c, name)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return &music.QueueEmptyError{Msg: "Playlist is empty."}
	}

	if _, connected := b.voice.BotChannel(c.GuildID()); !connected {
		if _, err := b.Music.Connect(c, c.GuildID(), c.Author().ID, nil); err != nil {
			return err
		}
	}
	tracks := fromPlaylistTracks(stored, c.Author())
	started, queued, err := b.Music.Enqueue(c, c.GuildID(), tracks...)
	if err != nil {
		return err
	}
	return reply(c, playEmbed(c.Author(), b.guildName(c.GuildID()), music.PlayResult{
		Tracks:   tracks,
		Playlist: p.Name,
		Started:  started,
		QueueLen: queued,
	}))
}

func (b *Bot) playlistList(c *router.Context) error {
	lists, err := b.DB.Playlists(c, c.GuildID())
	if err != nil {
		return err
	}
	return reply(c, playlistListEmbed(c.Author(), b.guildName(c.GuildID()), lists))
}

func (b *Bot) playlistDelete(c *router.Context) error {
	name, err := playlistName(c)
	if err != nil {
		return err
	}
	p, _, err := b.findPlaylist(c, name)
	if err != nil {
		return err
	}
	if !canDeletePlaylist(p, c.Author().ID, c.Permissions()) {
		return &music.ArgumentError{Msg: "Only the owner or an administrator can delete this playlist."}
	}
	if err := b.DB.DeletePlaylist(c, p.ID); err != nil {
		return err
	}
	b.Log.Info("Deleted playlist", "guild_id", c.GuildID(), "playlist", p.Name, "user_id", c.Author().ID)
	return reply(c, successEmbed(c.Author(), "Playlists", fmt.Sprintf("Deleted `%s`", p.Name), ""))
}
