package music

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Track is a playable item as returned by the audio node.
type Track struct {
	Encoded     string
	Title       string
	Author      string
	URI         string
	Source      string
	Length      time.Duration
	Stream      bool
	RequesterID snowflake.ID
}

// TotalLength sums the lengths of tracks.
func TotalLength(tracks []Track) time.Duration {
	var total time.Duration
	for _, t := range tracks {
		total += t.Length
	}
	return total
}

// LoadResult is the outcome of resolving a query on the audio node.
type LoadResult struct {
	Tracks []Track
	// Playlist is set when the query resolved to a playlist.
	Playlist string
}
