// Package whisperws implements stt.Provider against a remote Whisper
// server's streaming WebSocket endpoint. The server accepts raw
// pcm_s16le mono 16 kHz frames as binary messages and answers with
// JSON messages carrying the cumulative transcript; this adapter
// scrubs known dataset-bias phrases and turns the cumulative texts
// into deltas.
package whisperws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/coder/websocket"
	"github.com/voxmate/voxmate/pkg/provider"
	"github.com/voxmate/voxmate/pkg/provider/stt"
)

// datasetBias lists phrases the Whisper German training data leaks
// into transcriptions of silence or noise. They are removed before a
// transcript is accepted.
// See https://github.com/openai/whisper/discussions/1536.
var datasetBias = []string{
	"Untertitel Vielen Dank für's Zuschauen und bis zum nächsten Mal!",
	"Vielen Dank für's Zuschauen",
	"Vielen Dank für Ihre Aufmerksamkeit",
	"Das war's. Bis zum nächsten Mal.",
	"Untertitelung aufgrund der Amara.org-Community",
	"Untertitel im Auftrag des ZDF für funk, 2017",
	"Untertitel von Stephanie Geiges",
	"Untertitel der Amara.org-Community",
	"Mehr Infos auf www .sommers -radio .de",
	"Ich danke Ihnen für Ihre Aufmerksamkeit.",
	"Die Amara.org-Community:",
	"Wir sehen uns im nächsten Video. Bis dann.",
	"Untertitel der Amara .org -Community",
	"der Amara .org -Community",
	"und bis zum nächsten Mal!",
	"Untertitel im Auftrag des ZDF, 2017",
	"Untertitel im Auftrag des ZDF, 2020",
	"Untertitel im Auftrag des ZDF, 2018",
	"Untertitel im Auftrag des ZDF, 2021",
	"Untertitelung im Auftrag des ZDF, 2021",
	"Copyright WDR 2021",
	"Copyright WDR 2020",
	"Copyright WDR 2019",
	"SWR 2021",
	"SWR 2020",
	"Bis zum nächsten Mal.",
	"Untertitel",
	"-Community",
	"Vielen Dank.",
	" Und tschau.",
	"Das war's.",
}

// minTranscriptLen is the rune count a scrubbed transcript must exceed
// to be treated as real speech.
const minTranscriptLen = 8

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// Provider implements stt.Provider backed by a Whisper WebSocket
// server.
type Provider struct {
	name     string
	endpoint string
	priority int
	log      *slog.Logger
}

var _ stt.Provider = (*Provider)(nil)

// New creates a Provider for the given HTTP endpoint. The WebSocket
// URL is derived by swapping the scheme.
func New(name, endpoint string, priority int, opts ...Option) (*Provider, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("whisperws: endpoint must not be empty")
	}
	p := &Provider{name: name, endpoint: endpoint, priority: priority, log: slog.Default()}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *Provider) Name() string                    { return p.name }
func (p *Provider) Capability() provider.Capability { return provider.CapabilitySTT }
func (p *Provider) Priority() int                   { return p.priority }
func (p *Provider) ConfigString() string            { return "endpoint: " + p.endpoint }

// CheckAvailability probes the endpoint's TCP port.
func (p *Provider) CheckAvailability(ctx context.Context) bool {
	return provider.ProbeTCP(ctx, p.endpoint)
}

// TranscribeStream dials the WebSocket endpoint and pumps audio frames
// in and text deltas out until the audio channel closes, ctx is
// cancelled, or the connection drops.
func (p *Provider) TranscribeStream(ctx context.Context, audio <-chan []byte, cb stt.Callbacks) (<-chan string, error) {
	wsURL := strings.Replace(p.endpoint, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("whisperws: dial %s: %w", wsURL, err)
	}
	if cb.OnOpen != nil {
		cb.OnOpen()
	}

	s := &session{
		conn:    conn,
		audio:   audio,
		deltas:  make(chan string, 16),
		onClose: cb.OnClose,
		log:     p.log,
	}
	go s.writeLoop(ctx)
	go s.readLoop(ctx)
	return s.deltas, nil
}

// session is one live transcription run over a single connection.
type session struct {
	conn    *websocket.Conn
	audio   <-chan []byte
	deltas  chan string
	onClose func()

	closeOnce sync.Once
	log       *slog.Logger
}

// fireClose runs the close callback exactly once.
func (s *session) fireClose() {
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
	})
}

// writeLoop forwards audio frames as binary messages. When the audio
// channel closes it closes the connection, which in turn ends the read
// loop.
func (s *session) writeLoop(ctx context.Context) {
	defer s.conn.Close(websocket.StatusNormalClosure, "audio stream ended")
	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				return
			}
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				s.log.Debug("transcription socket write ended", "err", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// readLoop parses transcript messages and emits the new suffix of each
// cumulative transcript.
func (s *session) readLoop(ctx context.Context) {
	defer close(s.deltas)
	defer s.fireClose()

	var tracker deltaTracker
	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			return
		}
		text, ok := parseTranscript(msg)
		if !ok {
			continue
		}
		delta := tracker.next(text)
		if delta == "" {
			continue
		}
		s.log.Info("transcribed", "delta", delta)
		select {
		case s.deltas <- delta:
		case <-ctx.Done():
			return
		}
	}
}

// deltaTracker turns cumulative transcripts into suffix deltas.
// Concatenating every returned delta reproduces the last cumulative
// text.
type deltaTracker struct {
	prev string
}

func (d *deltaTracker) next(full string) string {
	if len(full) < len(d.prev) {
		// The recognizer revised earlier text; re-emit the whole thing.
		d.prev = full
		return full
	}
	delta := full[len(d.prev):]
	d.prev = full
	return delta
}

// parseTranscript extracts and scrubs the transcript from one server
// message. Non-JSON messages and hallucinated filler are dropped.
func parseTranscript(msg []byte) (string, bool) {
	var res struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(msg, &res); err != nil {
		return "", false
	}
	return scrub(res.Text)
}

// scrub trims the transcript, collapses double spaces, removes
// dataset-bias phrases, and rejects anything at or below the minimum
// length.
func scrub(text string) (string, bool) {
	t := strings.ReplaceAll(strings.TrimSpace(text), "  ", " ")
	for _, phrase := range datasetBias {
		t = strings.ReplaceAll(t, phrase, "")
	}
	t = strings.TrimSpace(t)
	if utf8.RuneCountInString(t) <= minTranscriptLen {
		return "", false
	}
	return t, true
}
