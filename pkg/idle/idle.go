package idle

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Run blocks, driving one guild's leave timer.
//
// A true on aloneCh arms the timer (if it is not already running), a false
// disarms it. When the timer fires, leave is called. If leave returns true
// the loop exits; otherwise it waits to be armed again.
func Run(delay time.Duration, aloneCh <-chan bool, stopCh <-chan struct{}, leave func() bool) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	timerC := func() <-chan time.Time {
		if timer == nil {
			return nil
		}
		return timer.C
	}

	disarm := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer = nil
	}

	for {
		select {
		case <-stopCh:
			return

		case alone := <-aloneCh:
			if !alone {
				disarm()
			} else if timer == nil {
				timer = time.NewTimer(delay)
			}

		case <-timerC():
			timer = nil
			if leave() {
				return
			}
		}
	}
}

type loop struct {
	aloneCh chan bool
	stopCh  chan struct{}
}

// Tracker runs a leave timer per guild.
type Tracker struct {
	leave func(guildID snowflake.ID) bool

	mu    sync.Mutex
	delay time.Duration
	loops map[snowflake.ID]*loop
	wg    sync.WaitGroup
}

// NewTracker returns a Tracker that calls leave for a guild once it has been
// alone for delay. leave should report whether the bot actually left.
func NewTracker(delay time.Duration, leave func(guildID snowflake.ID) bool) *Tracker {
	return &Tracker{
		leave: leave,
		delay: delay,
		loops: make(map[snowflake.ID]*loop),
	}
}

// SetDelay changes the delay used for timers armed after the call.
func (t *Tracker) SetDelay(d time.Duration) {
	t.mu.Lock()
	t.delay = d
	t.mu.Unlock()
}

// Alone arms the guild's timer.
func (t *Tracker) Alone(guildID snowflake.ID) {
	t.signal(guildID, true)
}

// Joined disarms the guild's timer.
func (t *Tracker) Joined(guildID snowflake.ID) {
	t.mu.Lock()
	l, ok := t.loops[guildID]
	t.mu.Unlock()
	if ok {
		t.send(l, false)
	}
}

func (t *Tracker) signal(guildID snowflake.ID, alone bool) {
	t.mu.Lock()
	l, ok := t.loops[guildID]
	if !ok {
		l = &loop{aloneCh: make(chan bool), stopCh: make(chan struct{})}
		t.loops[guildID] = l
		delay := t.delay
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			Run(delay, l.aloneCh, l.stopCh, func() bool {
				if !t.leave(guildID) {
					return false
				}
				t.remove(guildID, l)
				return true
			})
		}()
	}
	t.mu.Unlock()
	t.send(l, alone)
}

func (t *Tracker) send(l *loop, alone bool) {
	select {
	case l.aloneCh <- alone:
	case <-l.stopCh:
	}
}

func (t *Tracker) remove(guildID snowflake.ID, l *loop) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.loops[guildID]; ok && cur == l {
		delete(t.loops, guildID)
		close(l.stopCh)
	}
}

// Stop cancels the guild's timer.
func (t *Tracker) Stop(guildID snowflake.ID) {
	t.mu.Lock()
	l, ok := t.loops[guildID]
	t.mu.Unlock()
	if ok {
		t.remove(guildID, l)
	}
}

// Len reports how many guilds have a running loop.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.loops)
}

// Close stops every timer and waits for the loops to exit.
func (t *Tracker) Close() {
	t.mu.Lock()
	for id, l := range t.loops {
		delete(t.loops, id)
		close(l.stopCh)
	}
	t.mu.Unlock()
	t.wg.Wait()
}
