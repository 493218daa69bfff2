package prompt

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/voxmate/voxmate/pkg/provider/llm"
)

// wordCounter approximates tokens by counting words, keeping the tests
// independent of the real encoding data.
func wordCounter(s string) int { return len(strings.Fields(s)) }

func newTestManager(t *testing.T, initial Mode) *Manager {
	t.Helper()
	m, err := NewManager(initial,
		WithTokenCounter(wordCounter),
		WithClock(func() time.Time {
			return time.Date(2024, 12, 30, 13, 48, 0, 0, time.UTC)
		}),
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

// ─── modes and templates ───

func TestParseMode(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"CHAT", ModeChat, true},
		{"chat", ModeChat, true},
		{" Exit ", ModeExit, true},
		{"LEDCONTROL", ModeLEDControl, true},
		{"UNSINN", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseMode(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseModeReply(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want Mode
	}{
		{"EXIT", ModeExit},
		{"CHAT: weil es Small Talk ist", ModeChat},
		{"LEDCONTROL\nweitere Erklärung", ModeLEDControl},
		{"\"STATUS\"", ModeStatus},
		{"Ich wähle GARBAGEINPUT", ModeChat}, // mode must come first
		{"völlig daneben", ModeChat},
		{"", ModeChat},
		{"MODUS_SELECTION", ModeChat}, // never a valid pick
	}
	for _, tc := range cases {
		if got := ParseModeReply(tc.in); got != tc.want {
			t.Errorf("ParseModeReply(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSelectionPromptListsAllPickableModes(t *testing.T) {
	t.Parallel()
	p := TemplateFor(ModeModusSelection).SystemPrompt
	for _, m := range Modes() {
		if m == ModeModusSelection {
			continue
		}
		if !strings.Contains(p, string(m)) {
			t.Errorf("selection prompt is missing mode %s", m)
		}
	}
	if strings.Contains(p, "MODUS_SELECTION,") {
		t.Error("selection prompt must not offer MODUS_SELECTION itself")
	}
}

func TestTemplateFormat_SubstitutesPlaceholders(t *testing.T) {
	t.Parallel()
	tpl := Template{SystemPrompt: "Der Status ist {status} um {zeit}."}
	got := tpl.Format(map[string]string{"status": "gut", "zeit": "12:00"})
	if got != "Der Status ist gut um 12:00." {
		t.Errorf("got %q", got)
	}
}

// ─── histories ───

func TestManager_SeedsSystemEntryPerMode(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, ModeChat)
	for _, mode := range Modes() {
		if err := m.SetMode(mode); err != nil {
			t.Fatalf("SetMode(%s): %v", mode, err)
		}
		h := m.History()
		if len(h) != 1 || h[0].Role != llm.RoleSystem {
			t.Errorf("mode %s: history %v, want one system entry", mode, h)
		}
		if !strings.HasPrefix(h[0].Content, "Es ist Montag, der 30.12.2024 um 13:48 UTC. ") {
			t.Errorf("mode %s: system entry lacks timestamp primer: %q", mode, h[0].Content)
		}
	}
}

func TestManager_HistoriesAreIndependentPerMode(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, ModeChat)
	m.AddUserEntry("Erzähl mir einen Witz")
	if err := m.SetMode(ModeLEDControl); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if len(m.History()) != 1 {
		t.Error("LEDCONTROL history must not see CHAT entries")
	}
	if err := m.SetMode(ModeChat); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	h := m.History()
	if len(h) != 2 || h[1].Content != "Erzähl mir einen Witz" {
		t.Errorf("CHAT history lost its entry: %v", h)
	}
}

func TestManager_AddAndLastEntry(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, ModeChat)
	m.AddUserEntry("Hallo")
	m.AddAssistantEntry("Hallo! Wie kann ich helfen?")
	last, ok := m.LastEntry()
	if !ok || last.Role != llm.RoleAssistant {
		t.Fatalf("LastEntry = %v, %v", last, ok)
	}
}

func TestManager_EmptyHistoryReseedsSystemPrompt(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, ModeChat)
	m.AddUserEntry("eins")
	m.AddAssistantEntry("zwei")
	m.EmptyHistory()
	h := m.History()
	if len(h) != 1 || h[0].Role != llm.RoleSystem {
		t.Fatalf("history after empty: %v", h)
	}
	if !strings.Contains(h[0].Content, "freundlicher und zuvorkommender Helfer") {
		t.Errorf("system prompt missing after reset: %q", h[0].Content)
	}
}

func TestManager_SetHistoryValidatesRoles(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, ModeChat)
	err := m.SetHistory([]llm.Message{{Role: "robot", Content: "beep"}})
	if err == nil {
		t.Error("expected an error for an unknown role")
	}
}

func TestManager_SetModeRejectsUnknown(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, ModeChat)
	if err := m.SetMode(Mode("TANZEN")); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}

// ─── token budgeting ───

func TestManager_ReduceHistoryKeepsSystemEntry(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, ModeChat)
	m.AddUserEntry("eins zwei drei vier fünf")
	m.AddAssistantEntry("sechs sieben acht neun zehn")
	m.AddUserEntry("elf zwölf")

	systemTokens := wordCounter(m.History()[0].Content)
	m.ReduceHistory(systemTokens + 3)

	h := m.History()
	if h[0].Role != llm.RoleSystem {
		t.Fatal("system entry was evicted")
	}
	if got := m.CountHistoryTokens(); got > systemTokens+3 {
		t.Errorf("history still has %d tokens, limit %d", got, systemTokens+3)
	}
	if last := h[len(h)-1]; last.Content != "elf zwölf" {
		t.Errorf("newest entry was evicted: %v", h)
	}
}

// recordingHandler captures slog records for log assertions.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.records = append(h.records, r)
	h.mu.Unlock()
	return nil
}
func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) hasLevel(level slog.Level) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.Level == level {
			return true
		}
	}
	return false
}

func TestManager_ReduceHistoryWarnsWhenLimitUnreachable(t *testing.T) {
	t.Parallel()
	h := &recordingHandler{}
	m, err := NewManager(ModeChat,
		WithTokenCounter(wordCounter),
		WithManagerLogger(slog.New(h)),
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.AddUserEntry("viel zu lang für das Budget")

	// The system entry alone already exceeds one token, so the limit
	// cannot be met no matter how much is evicted.
	m.ReduceHistory(1)

	hist := m.History()
	if len(hist) != 1 || hist[0].Role != llm.RoleSystem {
		t.Fatalf("history = %v, want only the system entry", hist)
	}
	if !h.hasLevel(slog.LevelWarn) {
		t.Error("expected a warning when the limit cannot be met")
	}
}

func TestManager_ReduceHistoryNoopUnderLimit(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, ModeChat)
	m.AddUserEntry("kurz")
	before := len(m.History())
	m.ReduceHistory(100000)
	if len(m.History()) != before {
		t.Error("history changed although it was under the limit")
	}
}

// ─── timestamp primer ───

func TestTimestamp_GermanFormat(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, ModeChat)
	got := m.Timestamp()
	want := "Es ist Montag, der 30.12.2024 um 13:48 UTC. "
	if got != want {
		t.Errorf("Timestamp() = %q, want %q", got, want)
	}
}
