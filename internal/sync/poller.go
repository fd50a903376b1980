package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

// DefaultInterval is how often the feed is refreshed when no interval is
// configured.
const DefaultInterval = 30 * time.Second

// fetchTimeout is the maximum time allowed for a single refresh.
const fetchTimeout = 20 * time.Second

// Refresher is anything that can re-synchronize itself with the backend.
// *feed.Feed satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshedMsg is a tea.Msg sent after every refresh attempt.
type RefreshedMsg struct {
	At    time.Time
	Error error
}

// Poller drives a Refresher on a fixed interval: once immediately, then on
// every tick, and whenever RefreshNow is called.
type Poller struct {
	target    Refresher
	interval  time.Duration
	log       logrus.FieldLogger
	resultCh  chan RefreshedMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	stopOnce  gosync.Once
	mu        gosync.Mutex
	running   bool
	lastSync  time.Time
	lastErr   error
}

// New creates a Poller for target. A non-positive interval uses
// DefaultInterval.
func New(target Refresher, interval time.Duration, log logrus.FieldLogger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Poller{
		target:    target,
		interval:  interval,
		log:       log,
		resultCh:  make(chan RefreshedMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a tea.Cmd that waits
// for the first result. Calling Start again, or after Stop, returns nil.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running || p.stopped() {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts polling. It is safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

// RefreshNow requests an immediate refresh without blocking. Requests made
// while one is already pending are coalesced.
func (p *Poller) RefreshNow() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// LastSync returns the time of the last successful refresh and the error
// of the most recent attempt.
func (p *Poller) LastSync() (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSync, p.lastErr
}

// WaitForNextResult returns a tea.Cmd that waits for the next refresh
// result. Call it after handling each RefreshedMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}

func (p *Poller) stopped() bool {
	select {
	case <-p.stopCh:
		return true
	default:
		return false
	}
}

// loop runs until Stop is called.
func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.refresh()
		case <-p.triggerCh:
			p.refresh()
		}
	}
}

// refresh performs one refresh and publishes its outcome.
func (p *Poller) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	err := p.target.Refresh(ctx)
	now := time.Now()

	p.mu.Lock()
	p.lastErr = err
	if err == nil {
		p.lastSync = now
	}
	p.mu.Unlock()

	if err != nil {
		p.log.WithError(err).Debug("poll refresh failed")
	}

	if p.stopped() {
		return
	}
	p.sendResult(RefreshedMsg{At: now, Error: err})
}

// sendResult sends a RefreshedMsg on the result channel without blocking.
func (p *Poller) sendResult(msg RefreshedMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// waitForResult returns a tea.Cmd that waits for the next result from the
// result channel, or returns nil once the poller is stopped.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		if p.stopped() {
			return nil
		}
		select {
		case result := <-p.resultCh:
			return result
		case <-p.stopCh:
			return nil
		}
	}
}
