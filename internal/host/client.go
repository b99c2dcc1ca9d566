package host

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jwulff/trustguard/internal/protocol"
)

const maxLine = 1024 * 1024

// SocketPath returns the default bridge socket path.
func SocketPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "trustguard", "host.sock")
}

// handlerSlot wraps a registered handler so removal can tell whether it is
// still the current registration.
type handlerSlot struct {
	fn func(protocol.Message)
}

// Client talks to the host bridge. Requests use one connection, one at a
// time; pushes arrive on a second connection opened by Listen.
type Client struct {
	socketPath string
	timeout    time.Duration

	mu      sync.Mutex
	conn    net.Conn
	scanner *bufio.Scanner

	handler atomic.Pointer[handlerSlot]
}

// NewClient returns a client for the bridge at socketPath without connecting.
// The request connection is dialed by the first request, so a bridge that
// is not up yet only fails requests until it appears. timeout bounds every
// request; zero means requests are bounded only by their context.
func NewClient(socketPath string, timeout time.Duration) *Client {
	return &Client{socketPath: socketPath, timeout: timeout}
}

// Dial is NewClient followed by an immediate connect.
func Dial(socketPath string, timeout time.Duration) (*Client, error) {
	c := NewClient(socketPath, timeout)
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connectLocked() error {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("connect to host bridge: %w", err)
	}
	c.conn = conn
	c.scanner = newScanner(conn)
	return nil
}

func newScanner(conn net.Conn) *bufio.Scanner {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	return scanner
}

// Close shuts down the request connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.scanner = nil
	return err
}

// ActiveTab returns the focused tab, or ErrNoActiveTab.
func (c *Client) ActiveTab(ctx context.Context) (Tab, error) {
	resp, err := c.Do(ctx, Request{Op: OpActiveTab})
	if err != nil {
		return Tab{}, err
	}
	if resp.Tab == nil {
		return Tab{}, ErrNoActiveTab
	}
	return *resp.Tab, nil
}

// SendToTab delivers msg to the content script of a tab.
func (c *Client) SendToTab(ctx context.Context, tabID int, msg protocol.Message) (protocol.Reply, error) {
	return c.send(ctx, Request{Op: OpSendTab, TabID: tabID, Message: &msg})
}

// SendToRuntime delivers msg to the background process.
func (c *Client) SendToRuntime(ctx context.Context, msg protocol.Message) (protocol.Reply, error) {
	return c.send(ctx, Request{Op: OpSendRuntime, Message: &msg})
}

func (c *Client) send(ctx context.Context, req Request) (protocol.Reply, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return protocol.Reply{}, err
	}
	if resp.Reply == nil {
		return protocol.Reply{}, fmt.Errorf("%s %s: no reply", req.Op, req.Message.Type)
	}
	return *resp.Reply, nil
}

// Do sends one request and reads its response. A broken connection is
// dropped and redialed by the next call; nothing is retried here.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connectLocked(); err != nil {
			return Response{}, err
		}
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')

	deadline, ok := ctx.Deadline()
	if c.timeout > 0 {
		if d := time.Now().Add(c.timeout); !ok || d.Before(deadline) {
			deadline, ok = d, true
		}
	}
	if !ok {
		deadline = time.Time{}
	}
	_ = c.conn.SetDeadline(deadline)

	conn := c.conn
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := c.conn.Write(data); err != nil {
		c.dropLocked()
		return Response{}, fmt.Errorf("write request: %w", err)
	}

	if !c.scanner.Scan() {
		err := c.scanner.Err()
		c.dropLocked()
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		if err != nil {
			return Response{}, fmt.Errorf("read response: %w", err)
		}
		return Response{}, errors.New("connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		c.dropLocked()
		return Response{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.ID != "" && resp.ID != req.ID {
		c.dropLocked()
		return Response{}, fmt.Errorf("response id %s does not match request %s", resp.ID, req.ID)
	}
	if !resp.OK {
		if resp.Error == "" {
			return Response{}, fmt.Errorf("%s failed", req.Op)
		}
		return Response{}, fmt.Errorf("%s: %s", req.Op, resp.Error)
	}
	return resp, nil
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.scanner = nil
}

// OnMessage registers the push handler. There is only one slot: a new
// registration replaces the previous handler instead of adding to it. The
// returned function removes fn if it is still the registered handler.
func (c *Client) OnMessage(fn func(protocol.Message)) (remove func()) {
	slot := &handlerSlot{fn: fn}
	c.handler.Store(slot)
	return func() {
		c.handler.CompareAndSwap(slot, nil)
	}
}

// Listen opens the push connection, subscribes, and dispatches each pushed
// message to the registered handler until ctx is cancelled or the
// connection fails. Lines that are not protocol messages are skipped.
func (c *Client) Listen(ctx context.Context) error {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("connect push feed: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	scanner := newScanner(conn)

	data, _ := json.Marshal(Request{ID: uuid.NewString(), Op: OpSubscribe})
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	if !scanner.Scan() {
		return readErr(ctx, scanner, "read subscribe response")
	}
	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("unmarshal subscribe response: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("subscribe: %s", resp.Error)
	}

	for scanner.Scan() {
		msg, err := protocol.ParseMessage(scanner.Bytes())
		if err != nil {
			continue
		}
		if slot := c.handler.Load(); slot != nil {
			slot.fn(msg)
		}
	}
	return readErr(ctx, scanner, "read push")
}

// KeepListening runs Listen until ctx is done, subscribing again every
// interval after the feed fails or closes. Each failure is passed to onErr
// when it is not nil.
func (c *Client) KeepListening(ctx context.Context, interval time.Duration, onErr func(error)) {
	for {
		err := c.Listen(ctx)
		if ctx.Err() != nil {
			return
		}
		if onErr != nil {
			onErr(err)
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func readErr(ctx context.Context, scanner *bufio.Scanner, what string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%s: connection closed", what)
}
