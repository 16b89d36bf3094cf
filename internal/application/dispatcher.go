package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"sprachbot/internal/domain"
)

const defaultWorkerIdleTimeout = 5 * time.Minute

type DispatcherConfig struct {
	// MaxConcurrency bounds how many chats are handled at once.
	MaxConcurrency int
	// WorkerIdleTimeout is how long a chat worker waits for the next event
	// before it exits.
	WorkerIdleTimeout time.Duration
}

// Dispatcher reads events from an UpdateSource on a single loop and hands
// them to one worker per chat. Events of a chat are handled in arrival
// order; a semaphore bounds how many chats are handled at once.
type Dispatcher struct {
	source      UpdateSource
	platform    ChatPlatform
	relay       *Relay
	sessions    *SessionStore
	notifier    Notifier
	logger      *slog.Logger
	sem         *semaphore.Weighted
	idleTimeout time.Duration
	now         func() time.Time

	mu      sync.Mutex
	workers map[int64]*chatWorker
	wg      sync.WaitGroup
}

// chatWorker holds the events of one chat that are waiting to be handled.
// pending is guarded by Dispatcher.mu.
type chatWorker struct {
	chatID  int64
	pending []domain.Event
	wake    chan struct{}
}

func NewDispatcher(
	source UpdateSource,
	platform ChatPlatform,
	relay *Relay,
	sessions *SessionStore,
	notifier Notifier,
	logger *slog.Logger,
	cfg DispatcherConfig,
) *Dispatcher {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.WorkerIdleTimeout <= 0 {
		cfg.WorkerIdleTimeout = defaultWorkerIdleTimeout
	}
	return &Dispatcher{
		source:      source,
		platform:    platform,
		relay:       relay,
		sessions:    sessions,
		notifier:    notifier,
		logger:      logger,
		sem:         semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		idleTimeout: cfg.WorkerIdleTimeout,
		now:         time.Now,
		workers:     make(map[int64]*chatWorker),
	}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("starting update source", "source", d.source.Name())
	if err := d.source.Start(ctx); err != nil {
		return fmt.Errorf("starting update source: %w", err)
	}
	defer d.source.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer d.wg.Wait()
	defer cancel()

	d.logger.Info("dispatcher ready, waiting for messages")

	for {
		ev, err := d.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("receiving update: %w", err)
		}
		d.enqueue(ctx, ev)
	}
}

// enqueue appends ev to its chat's pending list and never blocks.
func (d *Dispatcher) enqueue(ctx context.Context, ev domain.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.workers[ev.ChatID]
	if !ok {
		w = &chatWorker{chatID: ev.ChatID, wake: make(chan struct{}, 1)}
		d.workers[ev.ChatID] = w
		d.wg.Add(1)
		go d.work(ctx, w)
	}
	w.pending = append(w.pending, ev)

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// ActiveWorkers returns the number of chats that currently have a worker.
func (d *Dispatcher) ActiveWorkers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.workers)
}

func (d *Dispatcher) work(ctx context.Context, w *chatWorker) {
	defer d.wg.Done()

	idle := time.NewTimer(d.idleTimeout)
	defer idle.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		if ev, ok := d.next(w); ok {
			d.process(ctx, ev)
			idle.Reset(d.idleTimeout)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-w.wake:
		case <-idle.C:
			if d.retire(w) {
				d.logger.Debug("chat worker idle, exiting", "chat_id", w.chatID)
				return
			}
			idle.Reset(d.idleTimeout)
		}
	}
}

func (d *Dispatcher) next(w *chatWorker) (domain.Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(w.pending) == 0 {
		return domain.Event{}, false
	}
	ev := w.pending[0]
	w.pending[0] = domain.Event{}
	w.pending = w.pending[1:]
	return ev, true
}

// retire removes w from the worker map if no event arrived in the meantime.
// The next event for the chat starts a new worker.
func (d *Dispatcher) retire(w *chatWorker) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(w.pending) > 0 {
		return false
	}
	if d.workers[w.chatID] == w {
		delete(d.workers, w.chatID)
	}
	return true
}

func (d *Dispatcher) process(ctx context.Context, ev domain.Event) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer d.sem.Release(1)

	// A started cycle runs to completion even during shutdown.
	if err := d.safeHandle(context.WithoutCancel(ctx), ev); err != nil {
		d.logger.Error("exception while handling an update",
			"chat_id", ev.ChatID,
			"kind", ev.Kind,
			"error", err,
		)
	}
}

func (d *Dispatcher) safeHandle(ctx context.Context, ev domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.PlatformDispatchError{Kind: ev.Kind, ChatID: ev.ChatID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return d.Handle(ctx, ev)
}

// Handle processes a single event synchronously. Provider failures are
// answered with the apology message and reported as handled; any other
// failure is returned as a *domain.PlatformDispatchError without replying.
func (d *Dispatcher) Handle(ctx context.Context, ev domain.Event) error {
	switch ev.Kind {
	case domain.EventCommand:
		return d.handleCommand(ctx, ev)

	case domain.EventText:
		session := d.sessions.Get(ev.ChatID)
		replies, err := d.relay.HandleText(ctx, session, ev.Text)
		if err != nil {
			return d.fail(ctx, ev, d.logger.With("chat_id", ev.ChatID), err)
		}
		return d.send(ctx, ev, replies)

	case domain.EventVoice:
		return d.handleVoice(ctx, ev)

	default:
		return &domain.PlatformDispatchError{Kind: ev.Kind, ChatID: ev.ChatID, Err: fmt.Errorf("unsupported event kind %q", ev.Kind)}
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, ev domain.Event) error {
	var text string
	switch ev.Command {
	case "start":
		text = StartMessage
	case "help":
		text = HelpMessage
	case "time":
		text = formatTime(d.now())
	default:
		d.logger.Debug("ignoring unknown command", "chat_id", ev.ChatID, "command", ev.Command)
		return nil
	}
	return d.send(ctx, ev, []domain.Reply{domain.TextReply(text)})
}

func (d *Dispatcher) handleVoice(ctx context.Context, ev domain.Event) error {
	logger := d.logger.With("cycle_id", uuid.NewString(), "chat_id", ev.ChatID)
	logger.Info("received voice message", "from", ev.From)

	noticeID, err := d.platform.SendText(ctx, ev.ChatID, MessageProcessing)
	if err != nil {
		return dispatchError(ev, fmt.Errorf("sending processing notice: %w", err))
	}
	noticeShown := true
	removeNotice := func() {
		if !noticeShown {
			return
		}
		noticeShown = false
		if err := d.platform.DeleteMessage(ctx, ev.ChatID, noticeID); err != nil {
			logger.Warn("deleting processing notice", "error", err)
		}
	}
	defer removeNotice()

	if err := d.platform.SendChatAction(ctx, ev.ChatID, ChatActionRecordVoice); err != nil {
		logger.Debug("sending chat action", "error", err)
	}

	audio, err := d.platform.DownloadFile(ctx, ev.VoiceFileID)
	if err != nil {
		return dispatchError(ev, fmt.Errorf("downloading voice message: %w", err))
	}
	logger.Info("downloaded voice message", "bytes", len(audio))

	transcript, err := d.relay.Transcribe(ctx, audio)
	removeNotice()
	if err != nil {
		return d.fail(ctx, ev, logger, err)
	}
	logger.Info("transcribed", "text", transcript)

	session := d.sessions.Get(ev.ChatID)
	replies, err := d.relay.HandleTranscript(ctx, session, transcript)
	if err != nil {
		return d.fail(ctx, ev, logger, err)
	}
	logger.Info("handling cycle complete", "mode", session.Mode, "replies", len(replies))

	return d.send(ctx, ev, replies)
}

// fail reports a failed cycle. Errors with a user-facing message are
// answered and alerted; the rest become dispatch errors.
func (d *Dispatcher) fail(ctx context.Context, ev domain.Event, logger *slog.Logger, err error) error {
	text, ok := userMessageFor(err)
	if !ok {
		return dispatchError(ev, err)
	}

	logger.Error("provider call failed", "kind", ev.Kind, "error", err)

	_, sendErr := d.platform.SendText(ctx, ev.ChatID, text)

	if notifyErr := d.notifier.Notify(ctx, fmt.Sprintf("Fehler in Chat %d: %s", ev.ChatID, err.Error())); notifyErr != nil {
		logger.Error("notifying error", "error", notifyErr)
	}

	if sendErr != nil {
		return dispatchError(ev, fmt.Errorf("sending apology: %w", sendErr))
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, ev domain.Event, replies []domain.Reply) error {
	for _, reply := range replies {
		var err error
		switch reply.Kind {
		case domain.ReplyVoice:
			err = d.platform.SendVoice(ctx, ev.ChatID, reply.Audio)
		default:
			_, err = d.platform.SendText(ctx, ev.ChatID, reply.Text)
		}
		if err != nil {
			return dispatchError(ev, fmt.Errorf("sending %s reply: %w", reply.Kind, err))
		}
	}
	return nil
}

func dispatchError(ev domain.Event, err error) error {
	var dispatchErr *domain.PlatformDispatchError
	if errors.As(err, &dispatchErr) {
		return err
	}
	return &domain.PlatformDispatchError{Kind: ev.Kind, ChatID: ev.ChatID, Err: err}
}
