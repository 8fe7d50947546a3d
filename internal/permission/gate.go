package permission

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoPrompt is returned when a decision arrives with no prompt open.
var ErrNoPrompt = errors.New("no pending permission prompt")

// Gate tracks whether the user has allowed notifications. It asks at most
// once per process; a decision is final until restart.
type Gate struct {
	mu     sync.RWMutex
	status Status
	prompt *Prompt
	nextID int

	// Subscribers for real-time updates
	subMu   sync.RWMutex
	subs    map[int]chan Prompt
	nextSub int
}

// NewGate creates a gate. When required is false the gate starts granted
// and never prompts.
func NewGate(required bool) *Gate {
	g := &Gate{
		status: StatusGranted,
		subs:   make(map[int]chan Prompt),
	}
	if required {
		g.status = StatusPending
	}
	return g
}

// Request opens the permission prompt. Calling it again while a prompt is
// open, or after a decision, returns the existing prompt.
func (g *Gate) Request(message string) Prompt {
	g.mu.Lock()
	if g.prompt != nil || g.status != StatusPending {
		p := g.current()
		g.mu.Unlock()
		return p
	}

	g.nextID++
	g.prompt = &Prompt{
		ID:        fmt.Sprintf("permission-%d", g.nextID),
		CreatedAt: time.Now(),
		Message:   message,
		Status:    StatusPending,
	}
	p := *g.prompt
	g.mu.Unlock()

	g.notifySubscribers(p)
	return p
}

// Grant allows notifications.
func (g *Gate) Grant() error {
	return g.resolve(StatusGranted)
}

// Deny refuses notifications.
func (g *Gate) Deny() error {
	return g.resolve(StatusDenied)
}

func (g *Gate) resolve(status Status) error {
	g.mu.Lock()
	if g.status != StatusPending || g.prompt == nil {
		g.mu.Unlock()
		return ErrNoPrompt
	}

	g.status = status
	now := time.Now()
	g.prompt.Status = status
	g.prompt.DecidedAt = &now
	p := *g.prompt
	g.mu.Unlock()

	g.notifySubscribers(p)
	return nil
}

// Allowed reports whether notifications may be sent.
func (g *Gate) Allowed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status == StatusGranted
}

// Status returns the current permission state.
func (g *Gate) Status() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

// Prompt returns the open or decided prompt, if one was ever requested.
func (g *Gate) Prompt() (Prompt, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.prompt == nil {
		return Prompt{}, false
	}
	return *g.prompt, true
}

// current must be called with g.mu held.
func (g *Gate) current() Prompt {
	if g.prompt != nil {
		return *g.prompt
	}
	return Prompt{Status: g.status}
}

// Subscribe returns a channel that receives prompt changes.
func (g *Gate) Subscribe() (<-chan Prompt, func()) {
	g.subMu.Lock()
	defer g.subMu.Unlock()

	ch := make(chan Prompt, 8)
	id := g.nextSub
	g.nextSub++
	g.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			g.subMu.Lock()
			defer g.subMu.Unlock()
			delete(g.subs, id)
			close(ch)
		})
	}

	return ch, cancel
}

func (g *Gate) notifySubscribers(p Prompt) {
	g.subMu.RLock()
	defer g.subMu.RUnlock()

	for _, ch := range g.subs {
		select {
		case ch <- p:
		default:
		}
	}
}
