package prompt

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/voxmate/voxmate/pkg/provider/llm"
)

// encodingName is the tiktoken encoding used for history budgeting.
const encodingName = "cl100k_base"

// ReductionStrategy shrinks a history that exceeds the token limit.
type ReductionStrategy interface {
	Reduce(history []llm.Message, count func(string) int, limit int) []llm.Message
}

// RemoveOldestStrategy drops the oldest non-system entries until the
// history fits. The leading system entry is never evicted.
type RemoveOldestStrategy struct{}

func (RemoveOldestStrategy) Reduce(history []llm.Message, count func(string) int, limit int) []llm.Message {
	total := func() int {
		n := 0
		for _, e := range history {
			n += count(e.Content)
		}
		return n
	}
	for total() > limit && len(history) > 1 {
		history = append(history[:1], history[2:]...)
	}
	return history
}

// Option configures a new Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to [slog.Default].
func WithManagerLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithReductionStrategy overrides the default RemoveOldestStrategy.
func WithReductionStrategy(s ReductionStrategy) Option {
	return func(m *Manager) { m.strategy = s }
}

// WithTokenCounter replaces the tiktoken counter, mainly for tests.
func WithTokenCounter(count func(string) int) Option {
	return func(m *Manager) { m.count = count }
}

// WithClock overrides the time source for the timestamp primer.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager keeps one chat history per mode, each seeded with the mode's
// system prompt behind the timestamp primer. Safe for concurrent use.
type Manager struct {
	mu        sync.Mutex
	mode      Mode
	histories map[Mode][]llm.Message

	strategy ReductionStrategy
	count    func(string) int
	now      func() time.Time
	log      *slog.Logger
}

// NewManager creates a Manager starting in the given mode.
func NewManager(initial Mode, opts ...Option) (*Manager, error) {
	if _, ok := templates[initial]; !ok {
		return nil, fmt.Errorf("prompt: unsupported mode %q", initial)
	}
	m := &Manager{
		mode:      initial,
		histories: make(map[Mode][]llm.Message, len(Modes())),
		strategy:  RemoveOldestStrategy{},
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	if m.count == nil {
		enc, err := tiktoken.GetEncoding(encodingName)
		if err != nil {
			return nil, fmt.Errorf("prompt: load %s encoding: %w", encodingName, err)
		}
		m.count = func(text string) int {
			return len(enc.Encode(text, nil, nil))
		}
	}
	for _, mode := range Modes() {
		m.histories[mode] = []llm.Message{m.systemEntry(mode)}
	}
	return m, nil
}

// systemEntry builds the seeded system message of a mode.
func (m *Manager) systemEntry(mode Mode) llm.Message {
	return llm.Message{
		Role:    llm.RoleSystem,
		Content: m.Timestamp() + templates[mode].SystemPrompt,
	}
}

// Mode returns the current mode.
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// SetMode switches the active history and template.
func (m *Manager) SetMode(mode Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.histories[mode]; !ok {
		return fmt.Errorf("prompt: unsupported mode %q", mode)
	}
	m.mode = mode
	m.log.Info("mode set", "mode", mode)
	return nil
}

// History returns a copy of the current mode's history.
func (m *Manager) History() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Message(nil), m.histories[m.mode]...)
}

// SetHistory replaces the current mode's history after validating the
// entries.
func (m *Manager) SetHistory(history []llm.Message) error {
	for _, e := range history {
		if e.Role != llm.RoleSystem && e.Role != llm.RoleUser && e.Role != llm.RoleAssistant {
			return fmt.Errorf("prompt: invalid role %q in history entry", e.Role)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories[m.mode] = append([]llm.Message(nil), history...)
	return nil
}

// EmptyHistory resets the current mode's history to a fresh system
// entry carrying the current timestamp primer.
func (m *Manager) EmptyHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories[m.mode] = []llm.Message{m.systemEntry(m.mode)}
	m.log.Info("history emptied", "mode", m.mode)
}

// LastEntry returns the most recent entry of the current history.
func (m *Manager) LastEntry() (llm.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.histories[m.mode]
	if len(h) == 0 {
		return llm.Message{}, false
	}
	return h[len(h)-1], true
}

// AddUserEntry appends a user message to the current history.
func (m *Manager) AddUserEntry(content string) llm.Message {
	return m.add(llm.Message{Role: llm.RoleUser, Content: content})
}

// AddAssistantEntry appends an assistant message to the current
// history.
func (m *Manager) AddAssistantEntry(content string) llm.Message {
	return m.add(llm.Message{Role: llm.RoleAssistant, Content: content})
}

func (m *Manager) add(entry llm.Message) llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories[m.mode] = append(m.histories[m.mode], entry)
	return entry
}

// CountTokens returns the token count of a text.
func (m *Manager) CountTokens(text string) int { return m.count(text) }

// CountHistoryTokens sums the token counts of the current history.
func (m *Manager) CountHistoryTokens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, e := range m.histories[m.mode] {
		total += m.count(e.Content)
	}
	return total
}

// ReduceHistory shrinks the current history to the token limit using
// the configured strategy.
func (m *Manager) ReduceHistory(limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.histories[m.mode]
	total := 0
	for _, e := range h {
		total += m.count(e.Content)
	}
	if total <= limit {
		return
	}
	m.log.Info("token limit exceeded, reducing history",
		"mode", m.mode, "tokens", total, "limit", limit)
	reduced := m.strategy.Reduce(h, m.count, limit)
	m.histories[m.mode] = reduced

	total = 0
	for _, e := range reduced {
		total += m.count(e.Content)
	}
	if total > limit {
		m.log.Warn("history does not fit the token limit, keeping it as-is",
			"mode", m.mode, "tokens", total, "limit", limit)
	}
}

// SystemPrompt renders the current mode's system prompt with optional
// {key} substitutions.
func (m *Manager) SystemPrompt(context map[string]string) string {
	m.mu.Lock()
	mode := m.mode
	m.mu.Unlock()
	return templates[mode].Format(context)
}

// PrettyPrintHistory renders the current history for log output.
func (m *Manager) PrettyPrintHistory() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b strings.Builder
	for _, e := range m.histories[m.mode] {
		role := e.Role
		if role != "" {
			role = strings.ToUpper(role[:1]) + role[1:]
		}
		fmt.Fprintf(&b, "%s: %s\n", role, e.Content)
	}
	return b.String()
}

// germanWeekdays maps [time.Weekday] to German names.
var germanWeekdays = [...]string{
	"Sonntag", "Montag", "Dienstag", "Mittwoch",
	"Donnerstag", "Freitag", "Samstag",
}

// Timestamp renders the German date/time primer, e.g.
// "Es ist Montag, der 30.12.2024 um 13:48 UTC. ".
func (m *Manager) Timestamp() string {
	now := m.now().UTC()
	return fmt.Sprintf("Es ist %s, der %s um %s UTC. ",
		germanWeekdays[now.Weekday()],
		now.Format("02.01.2006"),
		now.Format("15:04"))
}
