package push

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fluxorio/mtp/pkg/core"
	"github.com/fluxorio/mtp/pkg/i18n"
	"github.com/fluxorio/mtp/pkg/navigation"
	"github.com/fluxorio/mtp/pkg/transactions"
	"github.com/fluxorio/mtp/pkg/web/middleware/auth"
	"github.com/gorilla/websocket"
)

// conn is one websocket client and its navigation session
type conn struct {
	ws        *websocket.Conn
	server    *Server
	principal *auth.Principal
	registry  *navigation.Registry
	session   *navigation.Session
	loader    *i18n.Loader
	logger    core.Logger

	writeMu sync.Mutex
	done    chan struct{}
}

// navPrincipal returns the navigation principal; nil for anonymous clients
func (c *conn) navPrincipal() navigation.Principal {
	if c.principal == nil {
		return nil
	}
	return c.principal
}

// pushSnapshot is the transactions manager sink
func (c *conn) pushSnapshot(ctx context.Context, snapshot transactions.Snapshot) error {
	return c.write(FrameSnapshot, SnapshotFrame{Type: FrameSnapshot, Snapshot: snapshot})
}

func (c *conn) write(frameType string, v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.server.opts.WriteTimeout)); err != nil {
		return err
	}
	if err := c.ws.WriteJSON(v); err != nil {
		return fmt.Errorf("write %s frame: %w", frameType, err)
	}
	if m := c.server.opts.Metrics; m != nil {
		m.FrameOut(frameType)
	}
	return nil
}

func (c *conn) writeError(code, message string) error {
	return c.write(FrameError, ErrorFrame{Type: FrameError, Code: code, Message: message})
}

// readLoop delivers frames to the session one at a time until the client
// goes away
func (c *conn) readLoop(ctx context.Context) {
	pongWait := 2 * c.server.opts.PingInterval
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame ClientFrame
		if err := c.ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("websocket read failed:", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		if m := c.server.opts.Metrics; m != nil {
			m.FrameIn(frameLabel(frame.Type))
		}

		if err := c.handle(ctx, frame); err != nil {
			c.logger.Error("websocket write failed:", err)
			return
		}
	}
}

func (c *conn) handle(ctx context.Context, frame ClientFrame) error {
	if frame.Type != FrameNavigate {
		return c.writeError("BAD_FRAME", fmt.Sprintf("unsupported frame type %q", frame.Type))
	}

	var (
		state navigation.State
		err   error
	)
	switch {
	case frame.State != "":
		// unknown names stay out of the transition metric labels
		if _, ok := c.registry.State(frame.State); !ok {
			return c.writeError(navigation.ErrStateNotFound.Code, frame.State+": "+navigation.ErrStateNotFound.Message)
		}
		state, err = c.session.Go(ctx, frame.State, c.navPrincipal())
	case frame.URL != "":
		state, err = c.session.GoURL(ctx, frame.URL, c.navPrincipal())
	default:
		return c.writeError("BAD_FRAME", "navigate needs a state or a url")
	}
	if err != nil {
		return c.writeError(errorCode(err), err.Error())
	}

	frameOut := NavigatedFrame{Type: FrameNavigated, State: state.Name, URL: state.URL}
	if state.PageTitle != "" {
		frameOut.Title = c.loader.Translate(state.PageTitle)
	}
	return c.write(FrameNavigated, frameOut)
}

// keepalive pings the client until the connection is done
func (c *conn) keepalive() {
	ticker := time.NewTicker(c.server.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.server.opts.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				_ = c.ws.Close()
				return
			}
		}
	}
}

func errorCode(err error) string {
	var ce *core.Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return "NAVIGATION_FAILED"
}

// frameLabel bounds the metric label values a client can create
func frameLabel(frameType string) string {
	if frameType == FrameNavigate {
		return frameType
	}
	return "unknown"
}
