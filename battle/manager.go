package battle

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"showdown-bot/parser"
)

const inboxSize = 64

// GlobalHandler receives frames that do not belong to a battle room.
type GlobalHandler func(room string, lines []parser.Line)

// Manager owns the battle rooms of one connection. Each room runs on its own
// goroutine and processes its inbox strictly in order; timers post back into
// the same inbox.
type Manager struct {
	opts   Options
	deps   Deps
	global GlobalHandler
	log    *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	rooms map[string]*roomLoop
}

type roomLoop struct {
	room  *Room
	inbox chan func()
	quit  chan struct{}
	once  sync.Once
}

func (l *roomLoop) stop() {
	l.once.Do(func() { close(l.quit) })
}

func NewManager(opts Options, deps Deps, global GlobalHandler) *Manager {
	if deps.Log == nil {
		deps.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		opts:   opts,
		deps:   deps,
		global: global,
		log:    deps.Log,
		ctx:    ctx,
		cancel: cancel,
		rooms:  make(map[string]*roomLoop),
	}
}

// Dispatch routes one raw frame from the server.
func (m *Manager) Dispatch(frame string) {
	room, lines := parser.SplitBlock(frame)
	if !strings.HasPrefix(room, "battle-") {
		if m.global != nil {
			m.global(room, lines)
		}
		return
	}

	l, ok := m.loop(room)
	switch {
	case !ok && len(lines) > 0 && lines[0].Kind() == "init" && lines[0].Arg(2) == "battle":
		l = m.open(room)
	case !ok:
		m.log.WithField("room", room).Debug("frame for unknown room dropped")
		return
	}

	if hasKind(lines, "deinit") {
		l.post(m.ctx, func() {
			l.room.Receive(lines)
			l.room.Close()
		})
		return
	}
	l.post(m.ctx, func() { l.room.Receive(lines) })
}

// Inspect runs fn on the room's goroutine and waits for it. It reports false
// when the room is unknown or stops first.
func (m *Manager) Inspect(id string, fn func(*Room)) bool {
	l, ok := m.loop(id)
	if !ok {
		return false
	}
	done := make(chan struct{})
	if !l.post(m.ctx, func() { fn(l.room); close(done) }) {
		return false
	}
	select {
	case <-done:
		return true
	case <-l.quit:
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}

// Rooms lists the ids of the open rooms.
func (m *Manager) Rooms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close stops every room loop and waits for them to exit.
func (m *Manager) Close() {
	m.cancel()
	m.mu.Lock()
	for id, l := range m.rooms {
		l.stop()
		delete(m.rooms, id)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) loop(id string) (*roomLoop, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rooms[id]
	return l, ok
}

func (m *Manager) open(id string) *roomLoop {
	l := &roomLoop{
		inbox: make(chan func(), inboxSize),
		quit:  make(chan struct{}),
	}
	deps := m.deps
	deps.Schedule = func(d time.Duration, fn func()) {
		time.AfterFunc(d, func() { l.post(m.ctx, fn) })
	}
	l.room = NewRoom(id, m.opts, deps)

	m.mu.Lock()
	m.rooms[id] = l
	m.mu.Unlock()

	m.log.WithField("room", id).Info("joined battle room")
	m.wg.Add(1)
	go m.run(l)
	return l
}

func (m *Manager) run(l *roomLoop) {
	defer m.wg.Done()
	for {
		select {
		case fn := <-l.inbox:
			m.exec(l.room, fn)
			if l.room.Closed() {
				m.remove(l)
				return
			}
		case <-l.quit:
			return
		case <-m.ctx.Done():
			return
		}
	}
}

// exec runs fn with the same panic boundary Receive has, so deferred actions
// are covered too.
func (m *Manager) exec(r *Room, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.fail("", fmt.Errorf("panic: %v", rec))
		}
	}()
	fn()
}

func (m *Manager) remove(l *roomLoop) {
	m.mu.Lock()
	if cur, ok := m.rooms[l.room.ID()]; ok && cur == l {
		delete(m.rooms, l.room.ID())
	}
	m.mu.Unlock()
	l.stop()
	m.log.WithField("room", l.room.ID()).Info("left battle room")
}

func (l *roomLoop) post(ctx context.Context, fn func()) bool {
	select {
	case l.inbox <- fn:
		return true
	case <-l.quit:
		return false
	case <-ctx.Done():
		return false
	}
}

func hasKind(lines []parser.Line, kind string) bool {
	for _, l := range lines {
		if l.Kind() == kind {
			return true
		}
	}
	return false
}
