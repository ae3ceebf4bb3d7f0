// Package identity supplies the display name shown on the reveal screen.
//
// The sign-in backend is a strategy picked once at startup by Select;
// call sites only ever see a Provider.
package identity

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultDisplayName labels users without a display name.
const DefaultDisplayName = "Hunter"

// Strategy names accepted by Select.
const (
	StrategyAnonymous = "anonymous"
	StrategyStatic    = "static"
	StrategySession   = "session"
)

// User is the subset of an account the application reads.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// Provider exposes the current user and change notifications.
type Provider interface {
	// CurrentUser returns nil when nobody is signed in.
	CurrentUser() *User
	// OnChange registers fn and returns a function that removes it.
	OnChange(fn func(*User)) (unsubscribe func())
}

// Config selects and parameterizes a strategy.
type Config struct {
	Strategy    string `yaml:"strategy" env:"STRATEGY"`
	DisplayName string `yaml:"display_name" env:"DISPLAY_NAME"`
}

// Select builds the provider named by cfg.Strategy. An empty strategy is anonymous.
func Select(cfg Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Strategy)) {
	case "", StrategyAnonymous:
		return Anonymous{}, nil
	case StrategyStatic:
		return NewStatic(cfg.DisplayName), nil
	case StrategySession:
		s := NewSession()
		if cfg.DisplayName != "" {
			s.SignIn(User{UID: "local", DisplayName: cfg.DisplayName})
		}
		return s, nil
	default:
		return nil, fmt.Errorf("identity: unknown strategy %q", cfg.Strategy)
	}
}

// DisplayName returns the current user's display name, or DefaultDisplayName.
func DisplayName(p Provider) string {
	if p == nil {
		return DefaultDisplayName
	}
	return NameOf(p.CurrentUser())
}

// NameOf is the label for u, DefaultDisplayName when u is nil or unnamed.
func NameOf(u *User) string {
	if u != nil && strings.TrimSpace(u.DisplayName) != "" {
		return u.DisplayName
	}
	return DefaultDisplayName
}

// Anonymous never has a user.
type Anonymous struct{}

func (Anonymous) CurrentUser() *User { return nil }

func (Anonymous) OnChange(func(*User)) func() { return func() {} }

// Static always returns the same user.
type Static struct {
	user *User
}

// NewStatic returns a provider for a fixed display name. An empty name yields no user.
func NewStatic(displayName string) *Static {
	if strings.TrimSpace(displayName) == "" {
		return &Static{}
	}
	return &Static{user: &User{UID: "static", DisplayName: displayName}}
}

func (s *Static) CurrentUser() *User {
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Static) OnChange(func(*User)) func() { return func() {} }

// Session is an in-process sign-in state with subscribers.
// It is safe for concurrent use.
type Session struct {
	mu   sync.Mutex
	user *User
	subs map[int]func(*User)
	next int
}

// NewSession returns a signed-out session.
func NewSession() *Session {
	return &Session{subs: make(map[int]func(*User))}
}

func (s *Session) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) OnChange(fn func(*User)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SignIn replaces the current user and notifies subscribers.
func (s *Session) SignIn(u User) {
	s.set(&u)
}

// SignOut clears the current user and notifies subscribers.
func (s *Session) SignOut() {
	s.set(nil)
}

func (s *Session) set(u *User) {
	s.mu.Lock()
	s.user = u
	subs := make([]func(*User), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		if u == nil {
			fn(nil)
			continue
		}
		cp := *u
		fn(&cp)
	}
}
