package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

// Client is a websocket connection to a battle server. Sends are serialised;
// reads happen only inside Listen.
type Client struct {
	conn *websocket.Conn
	log  *logrus.Entry

	wmu       sync.Mutex
	closeOnce sync.Once
}

func Dial(ctx context.Context, serverURL string, log *logrus.Entry) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "client")

	log.WithField("url", u.String()).Info("connecting")
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Host, err)
	}
	log.Info("connected")
	return &Client{conn: conn, log: log}, nil
}

// Send writes "room|msg". The global room is "".
func (c *Client) Send(room, msg string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.log.WithField("room", room).Debugf("send: %s", msg)
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(room+"|"+msg)); err != nil {
		return fmt.Errorf("send to %q: %w", room, err)
	}
	return nil
}

// Listen delivers every inbound frame to handle until the connection drops
// or ctx ends. A ctx cancellation or a normal close returns nil.
func (c *Client) Listen(ctx context.Context, handle func(frame string)) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		c.log.Tracef("recv: %s", message)
		handle(string(message))
	}
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		// WriteControl may run concurrently with WriteMessage.
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = c.conn.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}
