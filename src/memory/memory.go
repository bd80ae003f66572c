package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const previewLength = 200

// Turn is a single user/assistant exchange.
type Turn struct {
	Timestamp   time.Time        `json:"timestamp"`
	UserMessage string           `json:"user_message"`
	BotResponse string           `json:"bot_response"`
	Metadata    map[string]Value `json:"metadata"`
}

// UserMemory is the durable per-user record: bounded conversation
// history plus mutable preferences.
type UserMemory struct {
	UserID        string           `json:"user_id"`
	CreatedAt     time.Time        `json:"created_at"`
	Conversations []Turn           `json:"conversations"`
	Preferences   map[string]Value `json:"preferences"`
}

// Store persists one JSON file per user under a memory directory.
// Reads that fail (missing or corrupt files) fall back to a fresh
// record so a broken memory file can never block a chat session;
// write failures propagate to the caller.
//
// No internal locking: the process handles one query at a time.
// Concurrent appends for the same user would race read-modify-write
// and must be serialized externally.
type Store struct {
	dir        string
	maxHistory int
}

// NewStore creates the memory directory if needed.
func NewStore(dir string, maxHistory int) (*Store, error) {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create memory directory: %w", err)
	}
	return &Store{dir: dir, maxHistory: maxHistory}, nil
}

// MaxHistory reports the configured retention cap.
func (s *Store) MaxHistory() int { return s.maxHistory }

// sanitizeUserID strips everything but alphanumerics, hyphen and
// underscore so a raw id can never escape the memory directory or
// produce an invalid filename. Every operation resolves ids through
// this same mapping.
func sanitizeUserID(userID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return -1
		}
	}, userID)
}

func (s *Store) userPath(userID string) string {
	return filepath.Join(s.dir, sanitizeUserID(userID)+".json")
}

func defaultMemory(userID string) *UserMemory {
	return &UserMemory{
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		Conversations: []Turn{},
		Preferences: map[string]Value{
			"name":             String(userID),
			"known_conditions": List(),
			"allergies":        List(),
		},
	}
}

// Load returns the persisted memory for userID, or a freshly
// initialized record when none exists or the file is unreadable.
// Users are created lazily; there is no explicit registration.
func (s *Store) Load(userID string) *UserMemory {
	data, err := os.ReadFile(s.userPath(userID))
	if err != nil {
		return defaultMemory(userID)
	}
	var m UserMemory
	if err := json.Unmarshal(data, &m); err != nil {
		// Corrupt storage is swallowed: the session must still start.
		return defaultMemory(userID)
	}
	if m.Conversations == nil {
		m.Conversations = []Turn{}
	}
	if m.Preferences == nil {
		m.Preferences = defaultMemory(userID).Preferences
	}
	return &m
}

func (s *Store) save(userID string, m *UserMemory) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode memory for %q: %w", userID, err)
	}
	// Whole-record rewrite, atomic via temp file + rename.
	path := s.userPath(userID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write memory for %q: %w", userID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("persist memory for %q: %w", userID, err)
	}
	return nil
}

// Append records a conversation turn, evicting the oldest turns once
// the record exceeds the retention cap.
func (s *Store) Append(userID, userMessage, botResponse string, metadata map[string]Value) error {
	m := s.Load(userID)
	if metadata == nil {
		metadata = map[string]Value{}
	}
	m.Conversations = append(m.Conversations, Turn{
		Timestamp:   time.Now().UTC(),
		UserMessage: userMessage,
		BotResponse: botResponse,
		Metadata:    metadata,
	})
	if over := len(m.Conversations) - s.maxHistory; over > 0 {
		m.Conversations = m.Conversations[over:]
	}
	return s.save(userID, m)
}

// History returns the stored turns, most recent last.
func (s *Store) History(userID string) []Turn {
	return s.Load(userID).Conversations
}

// FormattedHistory renders the last maxTurns turns as alternating
// "User:"/"Assistant:" lines for prompt context. Bot responses are
// previewed at 200 characters to bound prompt size. Empty history
// renders as the empty string.
func (s *Store) FormattedHistory(userID string, maxTurns int) string {
	turns := s.History(userID)
	if len(turns) == 0 || maxTurns <= 0 {
		return ""
	}
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("User: ")
		b.WriteString(turn.UserMessage)
		b.WriteString("\nAssistant: ")
		if len(turn.BotResponse) > previewLength {
			b.WriteString(turn.BotResponse[:previewLength])
			b.WriteString("...")
		} else {
			b.WriteString(turn.BotResponse)
		}
	}
	return b.String()
}

// UpdatePreferences merges patch into the stored preferences key-wise;
// existing keys not in the patch are kept.
func (s *Store) UpdatePreferences(userID string, patch map[string]Value) error {
	m := s.Load(userID)
	for k, v := range patch {
		m.Preferences[k] = v
	}
	return s.save(userID, m)
}

// Preferences returns the current preference mapping for userID.
func (s *Store) Preferences(userID string) map[string]Value {
	return s.Load(userID).Preferences
}

// Clear resets the record to its default empty shape and persists it.
// The file stays; only its contents are re-initialized.
func (s *Store) Clear(userID string) error {
	return s.save(userID, defaultMemory(userID))
}

// ListUsers enumerates ids with a record in storage.
func (s *Store) ListUsers() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var users []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		users = append(users, strings.TrimSuffix(name, ".json"))
	}
	return users
}
