package music

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/disgoorg/snowflake/v2"
)

// DefaultVolume is the volume a new player starts with.
const DefaultVolume = 100

// Player controls playback for one guild on the audio node.
type Player interface {
	Play(ctx context.Context, track Track) error
	Stop(ctx context.Context) error
	SetPaused(ctx context.Context, paused bool) error
	SetVolume(ctx context.Context, volume int) error
	Seek(ctx context.Context, position time.Duration) error
	SetFilter(ctx context.Context, f Filter) error
	Position() time.Duration
	Destroy(ctx context.Context) error
}

// Audio is the audio node the players live on.
type Audio interface {
	Player(guildID snowflake.ID) Player
	RemovePlayer(guildID snowflake.ID)
	Load(ctx context.Context, identifier string) (LoadResult, error)
}

// Voice moves the bot between voice channels and reports who is where.
type Voice interface {
	Join(ctx context.Context, guildID, channelID snowflake.ID) error
	Leave(ctx context.Context, guildID snowflake.ID) error
	BotChannel(guildID snowflake.ID) (snowflake.ID, bool)
	UserChannel(guildID, userID snowflake.ID) (snowflake.ID, bool)
	// Members counts everyone in the voice channel, the bot included.
	Members(guildID, channelID snowflake.ID) int
	ChannelInGuild(guildID, channelID snowflake.ID) bool
}

// Recorder receives playback metrics.
type Recorder interface {
	TrackStarted(ctx context.Context, guildID snowflake.ID)
	PlayersChanged(ctx context.Context, delta int64)
}

type nopRecorder struct{}

func (nopRecorder) TrackStarted(context.Context, snowflake.ID) {}
func (nopRecorder) PlayersChanged(context.Context, int64)       {}

type session struct {
	mu      sync.Mutex
	player  Player
	queue   Queue
	current *Track
	paused  bool
	volume  int
	filter  *Filter
}

// State is a snapshot of a guild's playback.
type State struct {
	Current  *Track
	Position time.Duration
	Paused   bool
	Volume   int
	Filter   *Filter
	Queue    []Track
}

// PlayResult describes what a play request did.
type PlayResult struct {
	// Connected is set when play only joined a voice channel.
	Connected *snowflake.ID
	Resumed   bool
	Tracks    []Track
	Playlist  string
	// Started is the track that began playing, if playback was idle.
	Started  *Track
	QueueLen int
}

// Service owns the per-guild queues and drives the audio players.
type Service struct {
	audio    Audio
	voice    Voice
	recorder Recorder
	log      *slog.Logger

	mu       sync.Mutex
	sessions map[snowflake.ID]*session
}

func NewService(audio Audio, voice Voice, recorder Recorder, log *slog.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		audio:    audio,
		voice:    voice,
		recorder: recorder,
		log:      log.With("component", "music"),
		sessions: make(map[snowflake.ID]*session),
	}
}

func (s *Service) session(guildID snowflake.ID) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[guildID]
}

func (s *Service) ensureSession(ctx context.Context, guildID snowflake.ID) *session {
	s.mu.Lock()
	sess, ok := s.sessions[guildID]
	if !ok {
		sess = &session{player: s.audio.Player(guildID), volume: DefaultVolume}
		s.sessions[guildID] = sess
	}
	s.mu.Unlock()
	if !ok {
		s.recorder.PlayersChanged(ctx, 1)
	}
	return sess
}

func (s *Service) dropSession(ctx context.Context, guildID snowflake.ID) *session {
	s.mu.Lock()
	sess, ok := s.sessions[guildID]
	delete(s.sessions, guildID)
	s.mu.Unlock()
	if ok {
		s.recorder.PlayersChanged(ctx, -1)
	}
	return sess
}

// Players reports how many guilds have a player.
func (s *Service) Players() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Playing reports whether the bot is connected in guildID and has a current
// track.
func (s *Service) Playing(guildID snowflake.ID) bool {
	if _, ok := s.voice.BotChannel(guildID); !ok {
		return false
	}
	sess := s.session(guildID)
	if sess == nil {
		return false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.current != nil
}

// Connect joins channelID, or the author's channel when channelID is nil.
func (s *Service) Connect(ctx context.Context, guildID, userID snowflake.ID, channelID *snowflake.ID) (snowflake.ID, error) {
	userCh, userOk := s.voice.UserChannel(guildID, userID)
	botCh, botOk := s.voice.BotChannel(guildID)

	if botOk && userOk && botCh == userCh {
		return 0, &VoiceError{Msg: "Already in voice channel."}
	}
	if botOk && s.voice.Members(guildID, botCh) > 1 {
		return 0, &VoiceError{Msg: "In voice channel with someone."}
	}
	if channelID != nil && !s.voice.ChannelInGuild(guildID, *channelID) {
		return 0, &ArgumentError{Msg: "Channel not found."}
	}

	target := userCh
	if channelID != nil {
		target = *channelID
	} else if !userOk {
		return 0, &VoiceError{}
	}

	if err := s.voice.Join(ctx, guildID, target); err != nil {
		return 0, errors.WrapIfWithDetails(err, "joining voice channel", "guild_id", guildID, "channel_id", target)
	}
	s.ensureSession(ctx, guildID)
	s.log.Info("Connected to voice", "guild_id", guildID, "channel_id", target)
	return target, nil
}

// Disconnect clears the queue, destroys the player and leaves voice. It
// returns the channel that was left.
func (s *Service) Disconnect(ctx context.Context, guildID snowflake.ID) (snowflake.ID, error) {
	ch, ok := s.voice.BotChannel(guildID)
	if !ok {
		return 0, ErrNotConnected
	}
	s.teardown(ctx, guildID)
	if err := s.voice.Leave(ctx, guildID); err != nil {
		return ch, errors.WrapIfWithDetails(err, "leaving voice channel", "guild_id", guildID)
	}
	s.log.Info("Disconnected from voice", "guild_id", guildID, "channel_id", ch)
	return ch, nil
}

// BotDisconnected cleans up after the bot was removed from voice by someone
// else.
func (s *Service) BotDisconnected(ctx context.Context, guildID snowflake.ID) {
	if s.session(guildID) == nil {
		return
	}
	s.log.Info("Bot left voice, destroying player", "guild_id", guildID)
	s.teardown(ctx, guildID)
}

func (s *Service) teardown(ctx context.Context, guildID snowflake.ID) {
	sess := s.dropSession(ctx, guildID)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	sess.queue.Clear()
	sess.current = nil
	if err := sess.player.Destroy(ctx); err != nil {
		s.log.Warn("Failed to destroy player", "guild_id", guildID, "error", err)
	}
	sess.mu.Unlock()
	s.audio.RemovePlayer(guildID)
}

// Play resolves query and enqueues the result, connecting to the author's
// channel first when needed. With no query it connects or resumes.
func (s *Service) Play(ctx context.Context, guildID, userID snowflake.ID, query string) (PlayResult, error) {
	query = strings.TrimSpace(query)
	_, connected := s.voice.BotChannel(guildID)

	if query == "" && !connected {
		ch, err := s.Connect(ctx, guildID, userID, nil)
		if err != nil {
			return PlayResult{}, err
		}
		return PlayResult{Connected: &ch}, nil
	}

	if query == "" {
		sess := s.ensureSession(ctx, guildID)
		sess.mu.Lock()
		resumable := sess.paused && sess.current != nil
		sess.mu.Unlock()
		if resumable {
			if err := s.Resume(ctx, guildID); err != nil {
				return PlayResult{}, err
			}
			return PlayResult{Resumed: true}, nil
		}
		return PlayResult{}, &MissingArgumentError{Name: "Track"}
	}

	var userCh snowflake.ID
	if !connected {
		var ok bool
		if userCh, ok = s.voice.UserChannel(guildID, userID); !ok {
			return PlayResult{}, &VoiceError{}
		}
	}

	search := !IsURL(query)
	identifier := query
	if search {
		identifier = SearchPrefix + query
	}

	res, err := s.audio.Load(ctx, identifier)
	if err != nil {
		s.log.Debug("Track load failed", "guild_id", guildID, "query", query, "error", err)
		return PlayResult{}, &ArgumentError{Msg: "Invalid search query."}
	}
	if len(res.Tracks) == 0 {
		return PlayResult{}, &SearchNotFoundError{Query: query}
	}

	// Join only once there is something to play.
	if !connected {
		if err := s.voice.Join(ctx, guildID, userCh); err != nil {
			return PlayResult{}, errors.WrapIfWithDetails(err, "joining voice channel", "guild_id", guildID)
		}
	}

	tracks := res.Tracks
	if search && res.Playlist == "" {
		tracks = tracks[:1]
	}
	for i := range tracks {
		tracks[i].RequesterID = userID
	}

	started, queued, err := s.Enqueue(ctx, guildID, tracks...)
	if err != nil {
		return PlayResult{}, err
	}
	return PlayResult{
		Tracks:   tracks,
		Playlist: res.Playlist,
		Started:  started,
		QueueLen: queued,
	}, nil
}

// Enqueue appends tracks and starts the first queued one if nothing is
// playing. It returns the started track and the queue length afterwards.
func (s *Service) Enqueue(ctx context.Context, guildID snowflake.ID, tracks ...Track) (*Track, int, error) {
	sess := s.ensureSession(ctx, guildID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.queue.Add(tracks...)
	if sess.current != nil {
		return nil, sess.queue.Len(), nil
	}
	next, err := s.playNext(ctx, guildID, sess)
	return next, sess.queue.Len(), err
}

// playNext pops and plays the next track. sess.mu must be held.
func (s *Service) playNext(ctx context.Context, guildID snowflake.ID, sess *session) (*Track, error) {
	next, ok := sess.queue.Next()
	if !ok {
		return nil, nil
	}
	if err := sess.player.Play(ctx, next); err != nil {
		return nil, errors.WrapIfWithDetails(err, "playing track", "guild_id", guildID, "title", next.Title)
	}
	sess.current = &next
	sess.paused = false
	s.recorder.TrackStarted(ctx, guildID)
	s.log.Debug("Playing track", "guild_id", guildID, "title", next.Title)
	return &next, nil
}

func (s *Service) active(guildID snowflake.ID) (*session, error) {
	sess := s.session(guildID)
	if sess == nil {
		return nil, ErrPlayerNotPlaying
	}
	return sess, nil
}

// State returns a snapshot of the guild's playback.
func (s *Service) State(guildID snowflake.ID) (State, error) {
	sess, err := s.active(guildID)
	if err != nil {
		return State{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	st := State{
		Paused: sess.paused,
		Volume: sess.volume,
		Filter: sess.filter,
		Queue:  sess.queue.Tracks(),
	}
	if sess.current != nil {
		cur := *sess.current
		st.Current = &cur
		st.Position = sess.player.Position()
	}
	return st, nil
}

// Clear empties the queue and returns how many tracks were removed.
func (s *Service) Clear(guildID snowflake.ID) int {
	sess := s.session(guildID)
	if sess == nil {
		return 0
	}
	return sess.queue.Clear()
}

// Skip plays the next queued track, or stops when the queue is empty.
func (s *Service) Skip(ctx context.Context, guildID snowflake.ID) (Track, *Track, error) {
	sess, err := s.active(guildID)
	if err != nil {
		return Track{}, nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.current == nil {
		return Track{}, nil, ErrPlayerNotPlaying
	}
	prev := *sess.current

	if sess.queue.Len() > 0 {
		next, err := s.playNext(ctx, guildID, sess)
		return prev, next, err
	}
	if err := sess.player.Stop(ctx); err != nil {
		return prev, nil, errors.WrapIfWithDetails(err, "stopping player", "guild_id", guildID)
	}
	sess.current = nil
	return prev, nil, nil
}

// SkipAll clears the queue and stops playback.
func (s *Service) SkipAll(ctx context.Context, guildID snowflake.ID) (int, error) {
	sess, err := s.active(guildID)
	if err != nil {
		return 0, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.queue.Len() == 0 {
		return 0, &QueueEmptyError{Msg: "Queue is already empty."}
	}
	n := sess.queue.Clear()
	if err := sess.player.Stop(ctx); err != nil {
		return n, errors.WrapIfWithDetails(err, "stopping player", "guild_id", guildID)
	}
	sess.current = nil
	return n, nil
}

// ForceSkip stops the current track and plays the next one.
func (s *Service) ForceSkip(ctx context.Context, guildID snowflake.ID) (*Track, *Track, error) {
	sess, err := s.active(guildID)
	if err != nil {
		return nil, nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.queue.Len() == 0 {
		return nil, nil, &QueueEmptyError{Msg: "Queue is already empty."}
	}
	prev := sess.current
	if err := sess.player.Stop(ctx); err != nil {
		return prev, nil, errors.WrapIfWithDetails(err, "stopping player", "guild_id", guildID)
	}
	sess.current = nil
	next, err := s.playNext(ctx, guildID, sess)
	return prev, next, err
}

func (s *Service) setPaused(ctx context.Context, guildID snowflake.ID, paused bool) error {
	sess, err := s.active(guildID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.player.SetPaused(ctx, paused); err != nil {
		return errors.WrapIfWithDetails(err, "setting pause", "guild_id", guildID, "paused", paused)
	}
	sess.paused = paused
	return nil
}

func (s *Service) Pause(ctx context.Context, guildID snowflake.ID) error {
	return s.setPaused(ctx, guildID, true)
}

func (s *Service) Resume(ctx context.Context, guildID snowflake.ID) error {
	return s.setPaused(ctx, guildID, false)
}

// Volume returns the guild's player volume.
func (s *Service) Volume(guildID snowflake.ID) int {
	sess := s.session(guildID)
	if sess == nil {
		return DefaultVolume
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.volume
}

// SetVolume accepts 1 to 200.
func (s *Service) SetVolume(ctx context.Context, guildID snowflake.ID, volume int) error {
	if volume <= 0 || volume >= 201 {
		return ErrInvalidVolume
	}
	sess, err := s.active(guildID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.player.SetVolume(ctx, volume); err != nil {
		return errors.WrapIfWithDetails(err, "setting volume", "guild_id", guildID)
	}
	sess.volume = volume
	return nil
}

// Seek moves the current track to the position given by arg and returns the
// old and new positions.
func (s *Service) Seek(ctx context.Context, guildID snowflake.ID, arg string) (time.Duration, time.Duration, error) {
	sess, err := s.active(guildID)
	if err != nil {
		return 0, 0, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.current == nil {
		return 0, 0, ErrPlayerNotPlaying
	}

	prev := sess.player.Position()
	pos, err := ParseSeek(arg, sess.current.Length)
	if err != nil {
		return prev, 0, err
	}
	if err := sess.player.Seek(ctx, pos); err != nil {
		return prev, 0, errors.WrapIfWithDetails(err, "seeking", "guild_id", guildID)
	}
	return prev, pos, nil
}

// SetFilter applies the preset called name.
func (s *Service) SetFilter(ctx context.Context, guildID snowflake.ID, name string) (Filter, error) {
	f, ok := LookupFilter(strings.ToLower(name))
	if !ok {
		return Filter{}, &ArgumentError{Msg: "Invalid filter mode."}
	}
	sess, err := s.active(guildID)
	if err != nil {
		return Filter{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.player.SetFilter(ctx, f); err != nil {
		return Filter{}, errors.WrapIfWithDetails(err, "setting filter", "guild_id", guildID, "filter", f.Name)
	}
	sess.filter = &f
	return f, nil
}

// ResetFilter switches back to a flat equalizer.
func (s *Service) ResetFilter(ctx context.Context, guildID snowflake.ID) error {
	sess, err := s.active(guildID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.player.SetFilter(ctx, Flat); err != nil {
		return errors.WrapIfWithDetails(err, "resetting filter", "guild_id", guildID)
	}
	sess.filter = nil
	return nil
}

// CurrentFilter returns the active preset, or nil.
func (s *Service) CurrentFilter(guildID snowflake.ID) *Filter {
	sess := s.session(guildID)
	if sess == nil {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.filter
}

// TrackEnded handles the end of the track with the given encoding. When
// mayStartNext is set and that track is still current, the next queued track
// is started and returned.
func (s *Service) TrackEnded(ctx context.Context, guildID snowflake.ID, encoded string, mayStartNext bool) (*Track, error) {
	if !mayStartNext {
		return nil, nil
	}
	sess := s.session(guildID)
	if sess == nil {
		return nil, nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.current == nil || sess.current.Encoded != encoded {
		return nil, nil
	}
	sess.current = nil
	return s.playNext(ctx, guildID, sess)
}

// Close destroys every player.
func (s *Service) Close(ctx context.Context) {
	s.mu.Lock()
	ids := make([]snowflake.ID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.teardown(ctx, id)
	}
}

// SearchPrefix makes the audio node search YouTube.
const SearchPrefix = "ytsearch:"

// IsURL reports whether query should be loaded directly instead of searched.
func IsURL(query string) bool {
	u, err := url.Parse(query)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
