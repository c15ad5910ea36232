// edulearn/services/auth/provider.go
package auth

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed-in"
	case SignedOut:
		return "signed-out"
	}
	return "unknown"
}

type Event struct {
	Kind EventKind
	User User // zero on SignedOut
}

// Listener is called synchronously, in subscription order, for every transition.
type Listener func(ctx context.Context, ev Event)

// Provider tracks the signed-in user of one client and fans out transitions.
type Provider struct {
	mu        sync.Mutex
	current   *User
	nextID    int
	listeners map[int]Listener
	order     []int
}

func NewProvider() *Provider {
	return &Provider{listeners: map[int]Listener{}}
}

func (p *Provider) CurrentUser() (User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return User{}, false
	}
	return *p.current, true
}

// Subscribe registers l and returns a function removing it.
func (p *Provider) Subscribe(l Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	p.order = append(p.order, id)
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Provider) SignIn(ctx context.Context, u User) {
	p.mu.Lock()
	p.current = &u
	ls := p.snapshotLocked()
	p.mu.Unlock()
	for _, l := range ls {
		l(ctx, Event{Kind: SignedIn, User: u})
	}
}

// SignOut is a no-op when nobody is signed in.
func (p *Provider) SignOut(ctx context.Context) {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return
	}
	p.current = nil
	ls := p.snapshotLocked()
	p.mu.Unlock()
	for _, l := range ls {
		l(ctx, Event{Kind: SignedOut})
	}
}

func (p *Provider) snapshotLocked() []Listener {
	out := make([]Listener, 0, len(p.listeners))
	kept := p.order[:0]
	for _, id := range p.order {
		if l, ok := p.listeners[id]; ok {
			out = append(out, l)
			kept = append(kept, id)
		}
	}
	p.order = kept
	return out
}

var ownerNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://edulearn.ai/users"))

var nonLetters = regexp.MustCompile(`[^a-zA-Z ]`)

// UserFromEmail derives a stable user from an email address. The id is a
// UUIDv5 of the lower-cased address.
func UserFromEmail(email string) User {
	email = strings.TrimSpace(email)
	local, _, _ := strings.Cut(email, "@")
	name := strings.TrimSpace(nonLetters.ReplaceAllString(local, ""))
	if name == "" {
		name = "User"
	} else {
		words := strings.Fields(name)
		for i, w := range words {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
		name = strings.Join(words, " ")
	}
	return User{
		ID:          uuid.NewSHA1(ownerNamespace, []byte(strings.ToLower(email))).String(),
		DisplayName: name,
		Email:       email,
	}
}
