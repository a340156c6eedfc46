package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/erps/internal/auth"
	"github.com/jason-s-yu/erps/internal/bus"
	"github.com/jason-s-yu/erps/internal/middleware"
	"github.com/jason-s-yu/erps/internal/router"
	"github.com/sirupsen/logrus"
)

const (
	gatewaySubprotocol = "erps"
	gatewayReadLimit   = 8 << 10
	pingInterval       = 30 * time.Second
)

var (
	actionRE = regexp.MustCompile(`^[a-z_]+$`)
	// roomRE admits one topic level with no wildcards.
	roomRE = regexp.MustCompile(`^[^/+#]+$`)
)

// clientFrame is what browsers send: an inbound action plus its payload, or a
// watch request for a room they were invited to.
type clientFrame struct {
	Action  string          `json:"action"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// serverFrame relays one bus message to the browser.
type serverFrame struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// gatewaySession is one authenticated websocket connection.
type gatewaySession struct {
	id     string
	member string
	bus    bus.Bus
	out    chan serverFrame
	log    logrus.FieldLogger

	mu      sync.Mutex
	subs    []bus.Subscription
	watched map[string]bool
}

// GatewayWSHandler bridges a browser to the bus. Actions are published as
// /member/<token subject>/<action> and refused when their payload names
// another member as the actor; replies addressed to that member, to the room it owns and to rooms it
// watches are relayed back.
func GatewayWSHandler(logger logrus.FieldLogger, b bus.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := auth.AuthenticateJWT(auth.TokenFromRequest(r))
		if err != nil {
			logger.WithError(err).WithField("remote", r.RemoteAddr).Debug("gateway auth failed")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{gatewaySubprotocol},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != gatewaySubprotocol {
			c.Close(BadSubprotocolError, "client must speak the erps subprotocol")
			return
		}
		c.SetReadLimit(gatewayReadLimit)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		s := &gatewaySession{
			id:      uuid.NewString(),
			member:  member,
			bus:     b,
			out:     make(chan serverFrame, 32),
			log:     logger.WithFields(logrus.Fields{"member": member}),
			watched: make(map[string]bool),
		}
		defer s.closeSubs()

		if err := s.subscribe(ctx,
			fmt.Sprintf("member/%s/res/#", member),
			fmt.Sprintf("room/%s/res/#", member),
		); err != nil {
			s.log.WithError(err).Error("gateway subscribe failed")
			c.Close(websocket.StatusInternalError, "bus unavailable")
			return
		}
		s.log = s.log.WithField("conn", s.id)
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, member)

		go s.writePump(ctx, c)
		s.send(ctx, "hello", map[string]string{"member": member, "conn": s.id})

		err = s.readPump(ctx, c)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, member, err)
	}
}

func (s *gatewaySession) subscribe(ctx context.Context, patterns ...string) error {
	sub, err := s.bus.Subscribe(ctx, patterns...)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	go s.relay(ctx, sub)
	return nil
}

func (s *gatewaySession) closeSubs() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

func (s *gatewaySession) relay(ctx context.Context, sub bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-sub.Messages():
			if !ok {
				return
			}
			payload := json.RawMessage(m.Payload)
			if !json.Valid(payload) {
				payload, _ = json.Marshal(string(m.Payload))
			}
			select {
			case s.out <- serverFrame{Topic: m.Topic, Payload: payload}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// send queues a gateway-originated frame.
func (s *gatewaySession) send(ctx context.Context, topic string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case s.out <- serverFrame{Topic: topic, Payload: data}:
	case <-ctx.Done():
	}
}

func (s *gatewaySession) readPump(ctx context.Context, c *websocket.Conn) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var f clientFrame
		if err := json.Unmarshal(msg, &f); err != nil || !actionRE.MatchString(f.Action) {
			s.send(ctx, "error", map[string]string{"error": "invalid frame"})
			continue
		}

		if f.Action == "watch" {
			s.watch(ctx, f.Room)
			continue
		}

		payload := []byte(f.Payload)
		if len(payload) == 0 {
			payload = []byte("{}")
		}
		topic := router.MemberTopic(s.member, f.Action)
		cmd, err := router.Parse(topic, payload)
		if err == nil {
			err = router.ActsFor(s.member, cmd)
		}
		if err != nil {
			s.log.WithError(err).WithField("action", f.Action).Debug("gateway frame refused")
			s.send(ctx, "error", map[string]string{"error": err.Error(), "action": f.Action})
			continue
		}
		if err := s.bus.Publish(ctx, topic, payload); err != nil {
			s.log.WithError(err).WithField("action", f.Action).Warn("gateway publish failed")
			s.send(ctx, "error", map[string]string{"error": "publish failed", "action": f.Action})
		}
	}
}

func (s *gatewaySession) watch(ctx context.Context, room string) {
	if !roomRE.MatchString(room) {
		s.send(ctx, "error", map[string]string{"error": "watch needs a room"})
		return
	}
	s.mu.Lock()
	seen := s.watched[room]
	s.watched[room] = true
	s.mu.Unlock()

	if !seen && room != s.member {
		if err := s.subscribe(ctx, fmt.Sprintf("room/%s/res/#", room)); err != nil {
			s.log.WithError(err).WithField("room", room).Warn("watch failed")
			s.send(ctx, "error", map[string]string{"error": "watch failed", "room": room})
			return
		}
	}
	s.send(ctx, "watch", map[string]string{"room": room})
}

func (s *gatewaySession) writePump(ctx context.Context, c *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				s.log.WithError(err).Debug("gateway ping failed")
				c.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		case f := <-s.out:
			data, err := json.Marshal(f)
			if err != nil {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.log.WithError(err).Debug("gateway write failed")
				return
			}
		}
	}
}
