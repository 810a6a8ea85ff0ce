package session

import (
	"sync"
	"time"

	"align-bot/internal/brand"
	"align-bot/internal/pipeline"
)

// Prompt is the free-text answer a chat is waiting for.
type Prompt string

const (
	PromptNone             Prompt = ""
	PromptBrandName        Prompt = "brand_name"
	PromptBrandMission     Prompt = "brand_mission"
	PromptBrandTone        Prompt = "brand_tone"
	PromptBrandConstraints Prompt = "brand_constraints"
	PromptTopic            Prompt = "topic"
	PromptContext          Prompt = "context"
	PromptAudience         Prompt = "audience"
)

// Chat is the bot-side state of one user in one chat: the brand being set up,
// the campaign draft, and the controller running it.
type Chat struct {
	Brand    brand.Profile
	Preset   brand.VisualPreset
	Topic    string
	Context  string
	Audience string
	Awaiting Prompt

	Controller *pipeline.Controller

	UpdatedAt time.Time
}

type chatKey struct {
	ChatID int64
	UserID int64
}

type ChatStore struct {
	mu  sync.Mutex
	m   map[chatKey]*Chat
	now func() time.Time
}

func NewChatStore() *ChatStore {
	return &ChatStore{m: make(map[chatKey]*Chat), now: time.Now}
}

func (s *ChatStore) Get(chatID, userID int64) Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(chatID, userID)
}

// Update applies fn under the store lock and returns the result. fn must not
// block or call controller actions; an action waits for the controller's
// OnChange, which may itself update the store.
func (s *ChatStore) Update(chatID, userID int64, fn func(*Chat)) Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(chatID, userID)
	if fn != nil {
		fn(st)
	}
	st.UpdatedAt = s.now()
	return *st
}

// Reset clears the campaign draft and closes the chat's controller. The brand
// profile is kept.
func (s *ChatStore) Reset(chatID, userID int64) Chat {
	var old *pipeline.Controller
	st := s.Update(chatID, userID, func(c *Chat) {
		old = c.Controller
		*c = Chat{Brand: c.Brand, Preset: brand.DefaultPreset(c.Brand.Archetype)}
	})
	if old != nil {
		old.Close()
	}
	return st
}

// Sweep forgets chats idle for longer than ttl and closes their controllers.
func (s *ChatStore) Sweep(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	var stale []*pipeline.Controller
	n := 0
	for key, st := range s.m {
		if st.UpdatedAt.After(cutoff) {
			continue
		}
		if st.Controller != nil {
			if st.Controller.Snapshot().State.Busy() {
				continue
			}
			stale = append(stale, st.Controller)
		}
		delete(s.m, key)
		n++
	}
	s.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	return n
}

func (s *ChatStore) CloseAll() {
	s.mu.Lock()
	all := s.m
	s.m = make(map[chatKey]*Chat)
	s.mu.Unlock()

	for _, st := range all {
		if st.Controller != nil {
			st.Controller.Close()
		}
	}
}

func (s *ChatStore) getOrCreateLocked(chatID, userID int64) *Chat {
	key := chatKey{ChatID: chatID, UserID: userID}
	if st, ok := s.m[key]; ok {
		return st
	}
	profile := brand.DefaultProfile()
	st := &Chat{
		Brand:     profile,
		Preset:    brand.DefaultPreset(profile.Archetype),
		UpdatedAt: s.now(),
	}
	s.m[key] = st
	return st
}
