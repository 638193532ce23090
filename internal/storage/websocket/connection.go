package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/dronemap/footprints/pkg/streaming"
	ws "github.com/gorilla/websocket"
)

const (
	outboxSize  = 4096
	ackBuffer   = 16
	maxRedials  = 10
	maxDelay    = 30 * time.Second
	writeWait   = 10 * time.Second
	pingPeriod  = 30 * time.Second
	ackTimeout  = 10 * time.Second
	secretParam = "secret"
)

var errLinkClosed = errors.New("viewer link closed")

// link owns one viewer connection. A single goroutine writes frames in
// order and redials on failure; a reader goroutine per connection routes acks.
type link struct {
	endpoint   string
	secret     string
	retryDelay time.Duration
	logger     *slog.Logger

	outbox chan []byte
	acks   chan streaming.AckMessage
	stop   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	header  []byte
	dropped int
	stopped bool
}

func newLink(endpoint, secret string, logger *slog.Logger) *link {
	return &link{
		endpoint:   endpoint,
		secret:     secret,
		retryDelay: time.Second,
		logger:     logger,
		outbox:     make(chan []byte, outboxSize),
		acks:       make(chan streaming.AckMessage, ackBuffer),
		stop:       make(chan struct{}),
	}
}

func (l *link) dial() (*ws.Conn, error) {
	u, err := url.Parse(l.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid viewer URL %q: %w", l.endpoint, err)
	}
	q := u.Query()
	q.Set(secretParam, l.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing viewer %s: %w", u.Host, err)
	}
	return conn, nil
}

// open dials once; later failures are handled by redialing in the background.
func (l *link) open() error {
	conn, err := l.dial()
	if err != nil {
		return err
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for conn != nil {
			conn = l.serve(conn)
		}
	}()
	return nil
}

// serve pumps the outbox into conn until it fails or the link stops.
// It returns the replacement connection, or nil when there is none.
func (l *link) serve(conn *ws.Conn) *ws.Conn {
	readErr := make(chan error, 1)
	go l.readAcks(conn, readErr)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	var failure error
	for failure == nil {
		select {
		case <-l.stop:
			l.drain(conn)
			_ = conn.WriteControl(ws.CloseMessage,
				ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
			_ = conn.Close()
			<-readErr
			return nil
		case failure = <-readErr:
			_ = conn.Close()
			l.logger.Warn("Viewer connection lost", "error", failure)
			return l.redial()
		case frame := <-l.outbox:
			failure = write(conn, frame)
		case <-ping.C:
			failure = conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait))
		}
	}

	l.logger.Warn("Viewer write failed", "error", failure)
	_ = conn.Close()
	<-readErr
	return l.redial()
}

func write(conn *ws.Conn, frame []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, frame)
}

// drain flushes frames queued before shutdown.
func (l *link) drain(conn *ws.Conn) {
	for {
		select {
		case frame := <-l.outbox:
			if err := write(conn, frame); err != nil {
				l.logger.Warn("Dropping queued frames on shutdown", "error", err, "queued", len(l.outbox))
				return
			}
		default:
			return
		}
	}
}

func (l *link) readAcks(conn *ws.Conn, done chan<- error) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			done <- err
			return
		}
		var ack streaming.AckMessage
		if err := json.Unmarshal(msg, &ack); err != nil || ack.Type != streaming.TypeAck {
			l.logger.Debug("Ignoring viewer message", "raw", string(msg))
			continue
		}
		select {
		case l.acks <- ack:
		default:
			l.logger.Debug("Ack buffer full", "for", ack.For)
		}
	}
}

// redial retries with doubling delay and replays the current shoot header so
// the viewer can attach the following features to it.
func (l *link) redial() *ws.Conn {
	delay := l.retryDelay
	for attempt := 1; attempt <= maxRedials; attempt++ {
		select {
		case <-l.stop:
			return nil
		case <-time.After(delay):
		}

		conn, err := l.dial()
		if err != nil {
			l.logger.Warn("Viewer redial failed", "attempt", attempt, "error", err)
			delay = min(2*delay, maxDelay)
			continue
		}

		l.mu.Lock()
		header := l.header
		l.mu.Unlock()
		if header != nil {
			if err := write(conn, header); err != nil {
				l.logger.Warn("Replaying shoot header failed", "attempt", attempt, "error", err)
				_ = conn.Close()
				continue
			}
		}
		l.logger.Info("Viewer reconnected", "attempt", attempt)
		return conn
	}
	l.logger.Error("Giving up on viewer connection", "attempts", maxRedials)
	return nil
}

// setHeader records the frame replayed after a redial; nil clears it.
func (l *link) setHeader(frame []byte) {
	l.mu.Lock()
	l.header = frame
	l.mu.Unlock()
}

// push queues a frame without blocking the pipeline.
func (l *link) push(frame []byte) {
	select {
	case l.outbox <- frame:
	default:
		l.mu.Lock()
		l.dropped++
		n := l.dropped
		l.mu.Unlock()
		l.logger.Warn("Viewer outbox full, dropping frame", "dropped", n)
	}
}

// request queues a frame and waits for the viewer to ack its type.
func (l *link) request(frame []byte, kind string, timeout time.Duration) error {
	l.push(frame)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-l.acks:
			if ack.For == kind {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("no %s ack from viewer within %s", kind, timeout)
		case <-l.stop:
			return fmt.Errorf("awaiting %s ack: %w", kind, errLinkClosed)
		}
	}
}

func (l *link) droppedFrames() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// shutdown flushes queued frames, closes the connection and waits for the
// writer to exit. Safe to call more than once or before open.
func (l *link) shutdown() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.mu.Unlock()

	close(l.stop)
	l.wg.Wait()
}
