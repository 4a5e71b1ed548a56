package music

import "sync"

// PageSize is how many tracks one queue page shows.
const PageSize = 8

// Queue is a FIFO of tracks waiting to be played.
type Queue struct {
	mu     sync.Mutex
	tracks []Track
}

func (q *Queue) Add(tracks ...Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, tracks...)
}

// Next pops the first track.
func (q *Queue) Next() (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) == 0 {
		return Track{}, false
	}
	t := q.tracks[0]
	q.tracks[0] = Track{}
	q.tracks = q.tracks[1:]
	return t, true
}

// Clear empties the queue and returns how many tracks were dropped.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.tracks)
	q.tracks = nil
	return n
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks)
}

// Tracks returns a copy of the queued tracks.
func (q *Queue) Tracks() []Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// Pages returns the number of PageSize pages, at least 1.
func Pages(n int) int {
	if n <= 0 {
		return 1
	}
	return (n + PageSize - 1) / PageSize
}

// Page returns the tracks on the 1-based page and the index of its first
// track. Out of range pages are clamped.
func Page(tracks []Track, page int) ([]Track, int) {
	pages := Pages(len(tracks))
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * PageSize
	if start >= len(tracks) {
		return nil, start
	}
	end := min(start+PageSize, len(tracks))
	return tracks[start:end], start
}
