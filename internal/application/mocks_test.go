package application_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"sprachbot/internal/domain"
)

// callLog records provider calls in the order they happen.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(prefix string) int {
	n := 0
	for _, c := range l.all() {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

type mockSTT struct {
	log      *callLog
	text     string
	err      error
	block    chan struct{}
	mu       sync.Mutex
	received [][]byte
}

func (m *mockSTT) Transcribe(_ context.Context, audio []byte) (string, error) {
	m.log.add("transcribe:" + string(audio))
	m.mu.Lock()
	m.received = append(m.received, audio)
	m.mu.Unlock()
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

type mockGenerator struct {
	log       *callLog
	answer    string
	err       error
	panicWith string
}

func (m *mockGenerator) Generate(_ context.Context, text string) (string, error) {
	m.log.add("generate:" + text)
	if m.panicWith != "" {
		panic(m.panicWith)
	}
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

type mockExtractor struct {
	log *callLog
	err error
}

func (m *mockExtractor) Extract(_ context.Context, text string) (string, error) {
	m.log.add("extract:" + text)
	if m.err != nil {
		return "", m.err
	}
	return "Wort - word - " + text, nil
}

type mockSynth struct {
	log   *callLog
	audio []byte
	err   error
}

func (m *mockSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	m.log.add("synthesize:" + text)
	if m.err != nil {
		return nil, m.err
	}
	return m.audio, nil
}

type sentMessage struct {
	ChatID int64
	Kind   string
	Text   string
	Audio  []byte
	ID     int
}

type mockPlatform struct {
	mu      sync.Mutex
	log     *callLog
	nextID  int
	sent    []sentMessage
	deleted []int
	actions []string
	files   map[string][]byte
	sendErr error
	onSent  func(sentMessage)
}

func newMockPlatform() *mockPlatform {
	return &mockPlatform{nextID: 100, files: make(map[string][]byte)}
}

func (m *mockPlatform) record(msg sentMessage) {
	m.mu.Lock()
	m.nextID++
	msg.ID = m.nextID
	m.sent = append(m.sent, msg)
	onSent := m.onSent
	m.mu.Unlock()
	if onSent != nil {
		onSent(msg)
	}
}

func (m *mockPlatform) SendText(_ context.Context, chatID int64, text string) (int, error) {
	if m.sendErr != nil {
		return 0, m.sendErr
	}
	m.record(sentMessage{ChatID: chatID, Kind: "text", Text: text})
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextID, nil
}

func (m *mockPlatform) SendVoice(_ context.Context, chatID int64, audio []byte) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.record(sentMessage{ChatID: chatID, Kind: "voice", Audio: audio})
	return nil
}

func (m *mockPlatform) SendChatAction(_ context.Context, _ int64, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action)
	return nil
}

func (m *mockPlatform) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	if m.log != nil {
		m.log.add("delete:" + strconv.Itoa(messageID))
	}
	return nil
}

func (m *mockPlatform) DownloadFile(_ context.Context, fileID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", fileID)
	}
	return data, nil
}

func (m *mockPlatform) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

// visible returns the messages that were sent and not deleted afterwards.
func (m *mockPlatform) visible() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := make(map[int]bool, len(m.deleted))
	for _, id := range m.deleted {
		deleted[id] = true
	}
	var out []sentMessage
	for _, msg := range m.sent {
		if !deleted[msg.ID] {
			out = append(out, msg)
		}
	}
	return out
}

// recordingNotifier also records how many messages the platform had sent
// when each notification went out.
type recordingNotifier struct {
	mu           sync.Mutex
	platform     *mockPlatform
	messages     []string
	sentAtNotify []int
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	if n.platform != nil {
		n.sentAtNotify = append(n.sentAtNotify, len(n.platform.messages()))
	}
	return nil
}

// chanSource is an UpdateSource fed by a channel.
type chanSource struct {
	events chan domain.Event
}

func newChanSource() *chanSource {
	return &chanSource{events: make(chan domain.Event, 64)}
}

func (s *chanSource) Start(_ context.Context) error { return nil }
func (s *chanSource) Stop() error                   { return nil }
func (s *chanSource) Name() string                  { return "chan" }

func (s *chanSource) Next(ctx context.Context) (domain.Event, error) {
	select {
	case <-ctx.Done():
		return domain.Event{}, ctx.Err()
	case ev, ok := <-s.events:
		if !ok {
			return domain.Event{}, errors.New("source closed")
		}
		return ev, nil
	}
}

// lockedBuffer is a bytes.Buffer safe for a logger and a test reading it
// concurrently.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func providerErr(op string) error {
	return &domain.ProviderError{Provider: "mock", Op: op, Err: errors.New("quota exceeded")}
}
