package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showdown-bot/parser"
)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// echoServer replies to every text frame with ">echo\n" + frame.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if err := conn.WriteMessage(websocket.TextMessage, []byte("|challstr|4|abc")); err != nil {
			return
		}
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, append([]byte(">echo\n"), msg...)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientSendAndListen(t *testing.T) {
	srv := echoServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), quietLog())
	require.NoError(t, err)

	var mu sync.Mutex
	var frames []string
	done := make(chan error, 1)
	go func() {
		done <- c.Listen(ctx, func(frame string) {
			mu.Lock()
			frames = append(frames, frame)
			mu.Unlock()
		})
	}()

	require.NoError(t, c.Send("battle-gen9randombattle-1", "/choose move 1|3"))
	require.NoError(t, c.Send("", "/trn bot,0,xyz"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(frames) == 3
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{
		"|challstr|4|abc",
		">echo\nbattle-gen9randombattle-1|/choose move 1|3",
		">echo\n|/trn bot,0,xyz",
	}, frames)
	mu.Unlock()

	room, lines := parser.SplitBlock(frames[1])
	assert.Equal(t, "echo", room)
	assert.Equal(t, "/choose move 1", lines[0].Arg(1))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
	assert.NoError(t, c.Close())
}

func TestDialRejectsBadURL(t *testing.T) {
	_, err := Dial(context.Background(), "://nope", quietLog())
	assert.Error(t, err)
}

func TestLoginAssertion(t *testing.T) {
	tests := []struct {
		name     string
		password string
		body     string
		want     string
		wantErr  error
	}{
		{"unregistered name", "", "assert-guest\n", "assert-guest", nil},
		{"registered name without password", "", ";", "", ErrLoginRejected},
		{"password login", "hunter2", `]{"actionsuccess":true,"assertion":"assert-pw"}`, "assert-pw", nil},
		{"wrong password", "nope", `]{"actionsuccess":false,"assertion":";;bad"}`, "", ErrLoginRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs := make(chan *http.Request, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.NoError(t, r.ParseForm())
				reqs <- r
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			l := Login{URL: srv.URL, Username: "Bot Name", Password: tt.password}
			assertion, err := l.Assertion(context.Background(), "4|abc")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, assertion)
			got := <-reqs
			assert.Equal(t, "4|abc", got.Form.Get("challstr"))
			if tt.password == "" {
				assert.Equal(t, http.MethodGet, got.Method)
				assert.Equal(t, "getassertion", got.Form.Get("act"))
				assert.Equal(t, "botname", got.Form.Get("userid"))
			} else {
				assert.Equal(t, http.MethodPost, got.Method)
				assert.Equal(t, "login", got.Form.Get("act"))
				assert.Equal(t, "Bot Name", got.Form.Get("name"))
				assert.Equal(t, tt.password, got.Form.Get("pass"))
			}
		})
	}
}

func TestLoginServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := Login{URL: srv.URL, Username: "bot"}.Assertion(context.Background(), "4|abc")
	assert.ErrorContains(t, err, "502")
	assert.False(t, errors.Is(err, ErrLoginRejected))
}
