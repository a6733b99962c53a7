package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"somniadash/internal/poller"
)

var (
	// ErrUnknownView is returned for a view name that is not registered
	ErrUnknownView = errors.New("unknown view")
	// ErrClosed is returned after Stop
	ErrClosed = errors.New("dashboard stopped")
)

const subscriberBuffer = 32

// FetchFunc loads the data of one view
type FetchFunc func(ctx context.Context) (any, error)

// View describes a dashboard view and how often it refreshes
type View struct {
	Name     string
	Interval time.Duration
	Disabled bool
	Fetch    FetchFunc
}

// State is the latest known state of a view. A failed refresh keeps the
// previous Data and UpdatedAt and only records Error.
type State struct {
	View      string    `json:"view"`
	Data      any       `json:"data"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
	CheckedAt time.Time `json:"checkedAt"`
	Loading   bool      `json:"loading"`
	Interval  float64   `json:"intervalSeconds"`
}

// HasData reports whether the view has loaded successfully at least once
func (s State) HasData() bool {
	return !s.UpdatedAt.IsZero()
}

// Update is published to subscribers after every refresh
type Update struct {
	View  string
	State State
}

// Dashboard keeps one polling loop per view and the latest state of each
type Dashboard struct {
	views  map[string]View
	order  []string
	states map[string]*State
	mu     sync.RWMutex

	pollers []*poller.Poller

	subs       map[int]chan Update
	nextID     int
	subsClosed bool
	subsMu     sync.Mutex

	now     func() time.Time
	closed  bool
	started bool

	logger zerolog.Logger
}

// New creates a dashboard for views. Names must be unique.
func New(views []View, logger zerolog.Logger) (*Dashboard, error) {
	d := &Dashboard{
		views:  make(map[string]View, len(views)),
		states: make(map[string]*State, len(views)),
		subs:   make(map[int]chan Update),
		now:    time.Now,
		logger: logger.With().Str("component", "dashboard").Logger(),
	}

	for _, v := range views {
		if v.Name == "" || v.Fetch == nil {
			return nil, fmt.Errorf("view must have a name and a fetch function")
		}
		if _, exists := d.views[v.Name]; exists {
			return nil, fmt.Errorf("duplicate view '%s'", v.Name)
		}
		d.views[v.Name] = v
		d.order = append(d.order, v.Name)
		d.states[v.Name] = &State{
			View:     v.Name,
			Loading:  true,
			Interval: v.Interval.Seconds(),
		}
	}

	return d, nil
}

// Views returns the registered view names in registration order
func (d *Dashboard) Views() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Start launches a poller for every enabled view
func (d *Dashboard) Start() {
	d.mu.Lock()
	if d.started || d.closed {
		d.mu.Unlock()
		return
	}
	d.started = true

	for _, name := range d.order {
		v := d.views[name]
		if v.Disabled {
			d.logger.Info().Str("view", name).Msg("view disabled")
			continue
		}
		p := poller.New(name, v.Interval, func(ctx context.Context) {
			_ = d.refresh(ctx, v)
		}, d.logger)
		d.pollers = append(d.pollers, p)
	}
	pollers := d.pollers
	d.mu.Unlock()

	for _, p := range pollers {
		p.Start()
	}

	d.logger.Info().Int("views", len(pollers)).Msg("dashboard started")
}

// Stop halts all pollers and closes every subscription
func (d *Dashboard) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	pollers := d.pollers
	d.mu.Unlock()

	var wg sync.WaitGroup
	for _, p := range pollers {
		wg.Add(1)
		go func(p *poller.Poller) {
			defer wg.Done()
			p.Stop()
		}(p)
	}
	wg.Wait()

	d.subsMu.Lock()
	d.subsClosed = true
	for id, ch := range d.subs {
		close(ch)
		delete(d.subs, id)
	}
	d.subsMu.Unlock()

	d.logger.Info().Msg("dashboard stopped")
}

// Snapshot returns the current state of one view
func (d *Dashboard) Snapshot(name string) (State, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	st, ok := d.states[name]
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownView, name)
	}
	return *st, nil
}

// Snapshots returns the state of every view in registration order
func (d *Dashboard) Snapshots() []State {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]State, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, *d.states[name])
	}
	return out
}

// Refresh reloads one view now and returns the fetch error, if any
func (d *Dashboard) Refresh(ctx context.Context, name string) (State, error) {
	v, ok := d.views[name]
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownView, name)
	}

	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return State{}, ErrClosed
	}

	err := d.refresh(ctx, v)
	st, _ := d.Snapshot(name)
	return st, err
}

// Subscribe returns a channel receiving every view update and a function
// that cancels the subscription. Slow subscribers miss updates.
func (d *Dashboard) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, subscriberBuffer)

	// subsClosed is checked under the lock that guards subs so a subscription
	// racing Stop is either closed by Stop or never registered
	d.subsMu.Lock()
	if d.subsClosed {
		d.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := d.nextID
	d.nextID++
	d.subs[id] = ch
	d.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.subsMu.Lock()
			if c, ok := d.subs[id]; ok {
				close(c)
				delete(d.subs, id)
			}
			d.subsMu.Unlock()
		})
	}
}

func (d *Dashboard) refresh(ctx context.Context, v View) error {
	d.mu.Lock()
	d.states[v.Name].Loading = true
	d.mu.Unlock()

	data, err := v.Fetch(ctx)
	now := d.now()

	d.mu.Lock()
	st := d.states[v.Name]
	st.Loading = false
	if err != nil && ctx.Err() != nil {
		// Shutdown or caller gave up, the previous state still stands
		d.mu.Unlock()
		return err
	}
	st.CheckedAt = now
	if err != nil {
		st.Error = err.Error()
	} else {
		st.Data = data
		st.Error = ""
		st.UpdatedAt = now
	}
	snapshot := *st
	d.mu.Unlock()

	if err != nil {
		d.logger.Warn().Err(err).Str("view", v.Name).Msg("failed to refresh view")
	} else {
		d.logger.Debug().Str("view", v.Name).Msg("view refreshed")
	}

	d.publish(Update{View: v.Name, State: snapshot})
	return err
}

func (d *Dashboard) publish(u Update) {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()

	for id, ch := range d.subs {
		select {
		case ch <- u:
		default:
			d.logger.Debug().Int("subscriber", id).Str("view", u.View).Msg("subscriber full, dropping update")
		}
	}
}
