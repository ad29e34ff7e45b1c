package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/xonecas/relic-console/internal/config"
	"github.com/xonecas/relic-console/internal/constants"
	"github.com/xonecas/relic-console/internal/protocol"
	"github.com/xonecas/relic-console/internal/telemetry"
)

var (
	// ErrDisconnected is returned by Send when no connection is open. The
	// command is not queued.
	ErrDisconnected = errors.New("gateway disconnected")

	// ErrSendQueueFull is returned by Send when the writer is backed up.
	ErrSendQueueFull = errors.New("send queue full")
)

// LinkConfig holds the settings for a gateway link.
type LinkConfig struct {
	Endpoint         string
	HandshakeTimeout time.Duration
	SendQueue        int
	Reconnect        bool
	Backoff          Backoff
	MaxAttempts      int // 0 = retry forever
	BreakerFailures  int
	BreakerTimeout   time.Duration
}

// LinkConfigFrom maps the [gateway] config section.
func LinkConfigFrom(cfg config.GatewayConfig) LinkConfig {
	b := DefaultBackoff()
	b.Initial = cfg.BackoffInitial.Duration
	b.Max = cfg.BackoffMax.Duration

	return LinkConfig{
		Endpoint:         cfg.Endpoint,
		HandshakeTimeout: cfg.HandshakeTimeout.Duration,
		SendQueue:        cfg.SendQueue,
		Reconnect:        cfg.Reconnect,
		Backoff:          b,
		MaxAttempts:      cfg.MaxAttempts,
		BreakerFailures:  cfg.BreakerFailures,
		BreakerTimeout:   cfg.BreakerTimeout.Duration,
	}
}

type outbound struct {
	cmd  protocol.Command
	data []byte
}

// Link owns the single WebSocket connection to the gateway. Inbound frames
// are decoded and published on the bus; outbound commands go through Send.
type Link struct {
	cfg     LinkConfig
	bus     *EventBus
	dialer  *websocket.Dialer
	breaker *gobreaker.CircuitBreaker

	mu     sync.RWMutex
	state  LinkState
	outbox chan outbound // nil unless a connection is being served
}

// NewLink creates a link. Nothing is dialed until Run.
func NewLink(cfg LinkConfig, bus *EventBus) *Link {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = constants.HandshakeTimeout
	}
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = constants.DefaultSendQueueSize
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = constants.BreakerConsecutiveFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = constants.BreakerOpenTimeout
	}

	l := &Link{
		cfg: cfg,
		bus: bus,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		state: LinkDisconnected,
	}

	failures := uint32(cfg.BreakerFailures)
	l.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gateway-dial",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Dial breaker state changed")
		},
	})

	return l
}

// State returns the current link state.
func (l *Link) State() LinkState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Endpoint returns the gateway address.
func (l *Link) Endpoint() string {
	return l.cfg.Endpoint
}

// Send queues a command for the socket writer without blocking. It returns
// ErrDisconnected when no connection is open and ErrSendQueueFull when the
// writer is backed up; in both cases nothing reaches the network.
func (l *Link) Send(cmd protocol.Command) error {
	data, err := cmd.Encode()
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.state != LinkConnected || l.outbox == nil {
		telemetry.CommandsTotal.WithLabelValues(string(cmd.Kind), "disconnected").Inc()
		log.Debug().Str("command", string(cmd.Kind)).Str("id", cmd.ID).Msg("Command not sent: disconnected")
		return ErrDisconnected
	}

	select {
	case l.outbox <- outbound{cmd: cmd, data: data}:
		return nil
	default:
		telemetry.CommandsTotal.WithLabelValues(string(cmd.Kind), "queue_full").Inc()
		return ErrSendQueueFull
	}
}

// Run connects and serves the link until ctx is cancelled. The socket is
// closed on every exit path and the final state is LinkDisconnected. With
// reconnect enabled, lost or failed connections are retried on the Backoff
// schedule, which restarts from Initial after every successful connect.
func (l *Link) Run(ctx context.Context) error {
	defer l.setState(LinkDisconnected, 0)

	var sched backoff.BackOff = l.cfg.Backoff.Schedule()
	if l.cfg.MaxAttempts > 0 {
		sched = backoff.WithMaxRetries(sched, uint64(l.cfg.MaxAttempts))
	}
	sched = backoff.WithContext(sched, ctx)

	attempt := 0
	for {
		if attempt == 0 {
			l.setState(LinkConnecting, 0)
		}

		conn, err := l.dial(ctx)
		if err == nil {
			attempt = 0
			sched.Reset()
			err = l.serve(ctx, conn)
		}

		if ctx.Err() != nil {
			return nil
		}

		log.Warn().Err(err).Str("endpoint", l.cfg.Endpoint).Int("attempt", attempt).Msg("Gateway link lost")
		l.bus.Publish(Event{
			Type:      EventLinkError,
			Data:      ErrorData{Error: err.Error()},
			Timestamp: time.Now(),
		})

		if !l.cfg.Reconnect {
			return err
		}

		delay := sched.NextBackOff()
		if delay == backoff.Stop {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("gateway unreachable after %d attempts: %w", l.cfg.MaxAttempts, err)
		}

		attempt++
		telemetry.ReconnectsTotal.Inc()
		l.setState(LinkReconnecting, attempt)
		log.Debug().Dur("delay", delay).Int("attempt", attempt).Msg("Reconnect scheduled")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// dial opens a connection through the circuit breaker. While the breaker is
// open it fails fast with gobreaker.ErrOpenState.
func (l *Link) dial(ctx context.Context) (*websocket.Conn, error) {
	res, err := l.breaker.Execute(func() (interface{}, error) {
		conn, resp, err := l.dialer.DialContext(ctx, l.cfg.Endpoint, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", l.cfg.Endpoint, err)
	}
	return res.(*websocket.Conn), nil
}

// serve pumps one connection until it fails or ctx is cancelled.
func (l *Link) serve(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()
	conn.SetReadLimit(constants.MaxFrameBytes)

	// Unblock ReadMessage on unmount.
	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
	})
	defer stop()

	outbox := make(chan outbound, l.cfg.SendQueue)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.writeLoop(conn, outbox, done)
	}()

	l.mu.Lock()
	l.outbox = outbox
	l.mu.Unlock()
	l.setState(LinkConnected, 0)
	log.Info().Str("endpoint", l.cfg.Endpoint).Msg("Gateway connected")

	defer func() {
		l.mu.Lock()
		l.outbox = nil
		l.mu.Unlock()

		close(done)
		wg.Wait()

		l.discardQueued(outbox)
	}()

	return l.readLoop(ctx, conn)
}

func (l *Link) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		msgType, frame, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		if msgType != websocket.TextMessage {
			log.Debug().Int("type", msgType).Msg("Ignoring non-text frame")
			continue
		}

		if err := l.handleFrame(ctx, frame); err != nil {
			return err
		}
	}
}

// handleFrame decodes one frame and hands it to the bus. Malformed frames are
// logged and dropped; only a cancelled ctx stops the loop.
func (l *Link) handleFrame(ctx context.Context, frame []byte) error {
	msg, err := protocol.Decode(frame)
	if err != nil {
		telemetry.DecodeErrorsTotal.Inc()
		log.Warn().Err(err).Msg("Dropping malformed frame")
		l.bus.Publish(Event{
			Type:      EventDecodeError,
			Data:      ErrorData{Error: err.Error()},
			Timestamp: time.Now(),
		})
		return nil
	}

	telemetry.FramesTotal.WithLabelValues(kindLabel(msg.Kind)).Inc()

	return l.bus.PublishWait(ctx, Event{
		Type:      EventFrame,
		Data:      FrameData{Message: msg},
		Timestamp: time.Now(),
	})
}

func (l *Link) writeLoop(conn *websocket.Conn, outbox <-chan outbound, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case out := <-outbox:
			conn.SetWriteDeadline(time.Now().Add(constants.WriteTimeout))
			err := conn.WriteMessage(websocket.TextMessage, out.data)

			result := "sent"
			if err != nil {
				result = "failed"
				log.Error().Err(err).Str("command", string(out.cmd.Kind)).Str("id", out.cmd.ID).Msg("Command write failed")
			} else {
				log.Debug().Str("command", string(out.cmd.Kind)).Str("id", out.cmd.ID).Msg("Command sent")
			}
			telemetry.CommandsTotal.WithLabelValues(string(out.cmd.Kind), result).Inc()

			l.bus.Publish(Event{
				Type:      EventCommand,
				Data:      CommandData{Command: out.cmd, Err: err},
				Timestamp: time.Now(),
			})

			if err != nil {
				// A failed write leaves the socket unusable; close it so the
				// reader returns and Run can reconnect.
				conn.Close()
				return
			}
		}
	}
}

// discardQueued fails every command still buffered when a connection
// closes, publishing one CommandData with ErrDisconnected per command.
func (l *Link) discardQueued(outbox chan outbound) {
	dropped := 0
	for {
		select {
		case out := <-outbox:
			dropped++
			telemetry.CommandsTotal.WithLabelValues(string(out.cmd.Kind), "disconnected").Inc()
			l.bus.Publish(Event{
				Type:      EventCommand,
				Data:      CommandData{Command: out.cmd, Err: ErrDisconnected},
				Timestamp: time.Now(),
			})
		default:
			if dropped > 0 {
				log.Warn().Int("dropped", dropped).Msg("Discarded commands queued on a closed connection")
			}
			return
		}
	}
}

func (l *Link) setState(state LinkState, attempt int) {
	l.mu.Lock()
	old := l.state
	l.state = state
	l.mu.Unlock()

	if old == state {
		return
	}

	telemetry.LinkState.Set(float64(state))
	l.bus.Publish(Event{
		Type:      EventLinkState,
		Data:      LinkStateData{OldState: old, NewState: state, Attempt: attempt},
		Timestamp: time.Now(),
	})
}

func kindLabel(kind protocol.Kind) string {
	switch kind {
	case protocol.KindTick, protocol.KindSysEvent, protocol.KindRoster:
		return string(kind)
	default:
		return "other"
	}
}
