package music

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"emperror.dev/errors"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"

	"github.com/spicierbot/spicier/pkg/config"
)

var ErrNoNode = errors.New("no lavalink node available")

// Lavalink adapts a disgolink client to Audio.
type Lavalink struct {
	client disgolink.Client
	log    *slog.Logger
}

// NewLavalink creates the client for the bot user. Event listeners are passed
// as disgolink options.
func NewLavalink(userID snowflake.ID, log *slog.Logger, opts ...disgolink.ConfigOpt) *Lavalink {
	log = log.With("component", "lavalink")
	opts = append([]disgolink.ConfigOpt{disgolink.WithLogger(log)}, opts...)
	return &Lavalink{
		client: disgolink.New(userID, opts...),
		log:    log,
	}
}

// AddNodes connects to every configured node. A node that fails is logged
// and skipped; an error is returned only when none connected.
func (l *Lavalink) AddNodes(ctx context.Context, nodes []config.LavalinkNode) error {
	var connected int
	for _, n := range nodes {
		node, err := l.client.AddNode(ctx, disgolink.NodeConfig{
			Name:     n.Name,
			Address:  n.Address,
			Password: n.Password,
			Secure:   n.Secure,
		})
		if err != nil {
			l.log.Error("Failed to add lavalink node", "node", n.Name, "address", n.Address, "error", err)
			continue
		}
		version, err := node.Version(ctx)
		if err != nil {
			l.log.Warn("Failed to fetch lavalink version", "node", n.Name, "error", err)
		}
		l.log.Info("Lavalink node connected", "node", n.Name, "version", version)
		connected++
	}
	if connected == 0 {
		return ErrNoNode
	}
	return nil
}

// Client exposes the disgolink client for voice forwarding.
func (l *Lavalink) Client() disgolink.Client {
	return l.client
}

func (l *Lavalink) Player(guildID snowflake.ID) Player {
	return &lavalinkPlayer{p: l.client.Player(guildID)}
}

func (l *Lavalink) RemovePlayer(guildID snowflake.ID) {
	l.client.RemovePlayer(guildID)
}

// Load resolves identifier on the best node.
func (l *Lavalink) Load(ctx context.Context, identifier string) (LoadResult, error) {
	node := l.client.BestNode()
	if node == nil {
		return LoadResult{}, ErrNoNode
	}

	var (
		res     LoadResult
		loadErr error
	)
	node.LoadTracksHandler(ctx, identifier, disgolink.NewResultHandler(
		func(track lavalink.Track) {
			res.Tracks = []Track{TrackFromLavalink(track)}
		},
		func(playlist lavalink.Playlist) {
			res.Playlist = playlist.Info.Name
			res.Tracks = make([]Track, 0, len(playlist.Tracks))
			for _, t := range playlist.Tracks {
				res.Tracks = append(res.Tracks, TrackFromLavalink(t))
			}
		},
		func(tracks []lavalink.Track) {
			res.Tracks = make([]Track, 0, len(tracks))
			for _, t := range tracks {
				res.Tracks = append(res.Tracks, TrackFromLavalink(t))
			}
		},
		func() {},
		func(err error) {
			loadErr = err
		},
	))
	if loadErr != nil {
		return LoadResult{}, errors.WrapIfWithDetails(loadErr, "loading tracks", "identifier", identifier)
	}
	return res, nil
}

func (l *Lavalink) Close() {
	l.client.Close()
}

// TrackFromLavalink converts a node track.
func TrackFromLavalink(t lavalink.Track) Track {
	track := Track{
		Encoded: t.Encoded,
		Title:   t.Info.Title,
		Author:  t.Info.Author,
		Source:  t.Info.SourceName,
		Length:  time.Duration(t.Info.Length) * time.Millisecond,
		Stream:  t.Info.IsStream,
	}
	if t.Info.URI != nil {
		track.URI = *t.Info.URI
	}
	return track
}

type lavalinkPlayer struct {
	p disgolink.Player
}

func (p *lavalinkPlayer) Play(ctx context.Context, track Track) error {
	uri := track.URI
	return p.p.Update(ctx, lavalink.WithTrack(lavalink.Track{
		Encoded: track.Encoded,
		Info: lavalink.TrackInfo{
			Title:      track.Title,
			Author:     track.Author,
			URI:        &uri,
			SourceName: track.Source,
			Length:     lavalink.Duration(track.Length.Milliseconds()),
			IsStream:   track.Stream,
		},
	}))
}

func (p *lavalinkPlayer) Stop(ctx context.Context) error {
	return p.p.Update(ctx, lavalink.WithNullTrack())
}

func (p *lavalinkPlayer) SetPaused(ctx context.Context, paused bool) error {
	return p.p.Update(ctx, lavalink.WithPaused(paused))
}

func (p *lavalinkPlayer) SetVolume(ctx context.Context, volume int) error {
	return p.p.Update(ctx, lavalink.WithVolume(volume))
}

func (p *lavalinkPlayer) Seek(ctx context.Context, position time.Duration) error {
	return p.p.Update(ctx, lavalink.WithPosition(lavalink.Duration(position.Milliseconds())))
}

func (p *lavalinkPlayer) SetFilter(ctx context.Context, f Filter) error {
	filters, err := LavalinkFilters(f)
	if err != nil {
		return err
	}
	return p.p.Update(ctx, lavalink.WithFilters(filters))
}

func (p *lavalinkPlayer) Position() time.Duration {
	return time.Duration(p.p.Position()) * time.Millisecond
}

func (p *lavalinkPlayer) Destroy(ctx context.Context) error {
	return p.p.Destroy(ctx)
}

type equalizerBand struct {
	Band int     `json:"band"`
	Gain float64 `json:"gain"`
}

type wireTimescale struct {
	Speed float64 `json:"speed"`
	Pitch float64 `json:"pitch"`
	Rate  float64 `json:"rate"`
}

type wireRotation struct {
	RotationHz float64 `json:"rotationHz"`
}

type wireDistortion struct {
	SinOffset float64 `json:"sinOffset"`
	SinScale  float64 `json:"sinScale"`
	CosOffset float64 `json:"cosOffset"`
	CosScale  float64 `json:"cosScale"`
	TanOffset float64 `json:"tanOffset"`
	TanScale  float64 `json:"tanScale"`
	Offset    float64 `json:"offset"`
	Scale     float64 `json:"scale"`
}

type wireFilters struct {
	Equalizer  []equalizerBand `json:"equalizer,omitempty"`
	Timescale  *wireTimescale  `json:"timescale,omitempty"`
	Rotation   *wireRotation   `json:"rotation,omitempty"`
	Distortion *wireDistortion `json:"distortion,omitempty"`
}

// WireFilters renders f in the node's REST filter format.
func WireFilters(f Filter) ([]byte, error) {
	var w wireFilters
	if f.Equalizer != nil {
		for i, gain := range f.Equalizer {
			w.Equalizer = append(w.Equalizer, equalizerBand{Band: i, Gain: gain})
		}
	}
	if f.Timescale != nil {
		w.Timescale = &wireTimescale{Speed: f.Timescale.Speed, Pitch: f.Timescale.Pitch, Rate: f.Timescale.Rate}
	}
	if f.RotationHz != 0 {
		w.Rotation = &wireRotation{RotationHz: f.RotationHz}
	}
	if d := f.Distortion; d != nil {
		w.Distortion = &wireDistortion{
			SinOffset: d.SinOffset,
			SinScale:  d.SinScale,
			CosOffset: d.CosOffset,
			CosScale:  d.CosScale,
			TanScale:  1,
			Offset:    d.Offset,
			Scale:     d.Scale,
		}
	}
	return json.Marshal(w)
}

// LavalinkFilters converts f by way of WireFilters.
func LavalinkFilters(f Filter) (lavalink.Filters, error) {
	data, err := WireFilters(f)
	if err != nil {
		return lavalink.Filters{}, errors.WrapIf(err, "encoding filter")
	}
	var filters lavalink.Filters
	if err := json.Unmarshal(data, &filters); err != nil {
		return lavalink.Filters{}, errors.WrapIfWithDetails(err, "decoding filter", "filter", f.Name)
	}
	return filters, nil
}
