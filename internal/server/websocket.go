package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kode4food/waypoint/internal/engine"
	"github.com/kode4food/waypoint/internal/events"
	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/log"
)

type (
	// Client represents a WebSocket connection streaming the events of a
	// single run
	Client struct {
		conn  *websocket.Conn
		sub   *events.Subscription
		runID api.RunID
		done  chan struct{}
		once  sync.Once
	}

	// startFunc starts a run once the client has sent its request
	startFunc func(
		context.Context, api.State,
	) (api.RunID, *events.Subscription, error)
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	requestWait    = 30 * time.Second
	maxMessageSize = 1 << 20
	wsBufferSize   = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamRun follows a run that is already in progress. A run that has
// finished is reported with a single synthesized execution_complete event
func (s *Server) streamRun(c *gin.Context) {
	id := api.RunID(c.Param("runID"))
	ctx := c.Request.Context()

	sub, err := s.engine.Subscribe(ctx, id)
	var final *api.Event
	if errors.Is(err, engine.ErrRunFinished) {
		r, gerr := s.engine.GetRun(ctx, id)
		if gerr != nil {
			respondError(c, gerr)
			return
		}
		final = completionEvent(r)
	} else if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.RunID(id),
			log.Error(err))
		if sub != nil {
			sub.Close()
		}
		return
	}

	if final != nil {
		writeFinal(conn, final)
		return
	}
	go s.serve(newClient(conn, id, sub))
}

// streamExecute waits for the client to send its initial state, then starts
// a run of the graph and streams its events
func (s *Server) streamExecute(c *gin.Context) {
	graphID := api.GraphID(c.Param("graphID"))
	if _, err := s.engine.GetGraph(c.Request.Context(), graphID); err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.GraphID(graphID),
			log.Error(err))
		return
	}

	go s.execute(conn, func(
		ctx context.Context, init api.State,
	) (api.RunID, *events.Subscription, error) {
		return s.engine.StartAndSubscribe(ctx, graphID, init)
	})
}

func (s *Server) execute(conn *websocket.Conn, start startFunc) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(requestWait))

	var req api.ExecuteRequest
	if err := conn.ReadJSON(&req); err != nil {
		writeError(conn, ErrInvalidJSON, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	id, sub, err := start(ctx, req.InitialState)
	if err != nil {
		writeError(conn, err, statusFor(err))
		return
	}
	s.serve(newClient(conn, id, sub))
}

func (s *Server) serve(cl *Client) {
	s.registerWebSocket(cl)
	defer s.unregisterWebSocket(cl)
	cl.run()
}

func newClient(
	conn *websocket.Conn, id api.RunID, sub *events.Subscription,
) *Client {
	return &Client{
		conn:  conn,
		sub:   sub,
		runID: id,
		done:  make(chan struct{}),
	}
}

// Close ends the client's stream and its connection
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Client) run() {
	defer func() {
		c.sub.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	gone := make(chan struct{})
	go c.readMessages(gone)

	for {
		select {
		case <-c.done:
			c.sendClose()
			return

		case <-gone:
			return

		case ev, ok := <-c.sub.Events():
			if !ok {
				c.sendClose()
				return
			}
			if !c.send(ev) {
				return
			}
			if ev.IsTerminal() {
				c.sendClose()
				return
			}

		case <-ticker.C:
			if !c.sendPing() {
				return
			}
		}
	}
}

// readMessages drains the connection so that control frames are processed.
// Clients have nothing further to say once a stream has begun
func (c *Client) readMessages(gone chan struct{}) {
	defer close(gone)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) send(ev *api.Event) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(ev); err != nil {
		slog.Error("WebSocket write failed",
			log.RunID(c.runID),
			log.Error(err))
		return false
	}
	return true
}

func (c *Client) sendPing() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.PingMessage, nil)
	return err == nil
}

func (c *Client) sendClose() {
	closeConn(c.conn)
}

func completionEvent(r *api.Run) *api.Event {
	ev := api.NewEvent(r.ID, 0, api.EventTypeExecutionComplete,
		&api.ExecutionCompleteEvent{
			FinalState: r.State,
			Status:     r.Status,
			Error:      r.Error,
			Note:       r.Note,
			Duration:   r.Duration().Milliseconds(),
		},
	)
	if !r.CompletedAt.IsZero() {
		ev.Timestamp = r.CompletedAt.UnixMilli()
	}
	return ev
}

func writeFinal(conn *websocket.Conn, ev *api.Event) {
	defer func() { _ = conn.Close() }()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(ev); err != nil {
		slog.Error("WebSocket write failed",
			log.RunID(ev.RunID),
			log.Error(err))
		return
	}
	closeConn(conn)
}

func writeError(conn *websocket.Conn, err error, status int) {
	defer func() { _ = conn.Close() }()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(api.ErrorResponse{
		Error:  err.Error(),
		Status: status,
	})
	closeConn(conn)
}

func closeConn(conn *websocket.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
}
