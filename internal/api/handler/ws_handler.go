package handler

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/osmanaliaydemir/getir-tracking/internal/api/metrics"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/ports"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser clients connect from the consumer web app; origin policy is
	// enforced at the gateway.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsCommand is the single inbound message shape: clients join and leave
// topics, everything else flows outbound.
type wsCommand struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Topic  string `json:"topic"`  // e.g. "order:ORD-123"
}

type wsAck struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
	Error string `json:"error,omitempty"`
}

// wsClient is one live connection. It implements ports.Subscriber; Send is
// called by the broadcast path from many goroutines, so writes are
// serialized with a mutex.
type wsClient struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) ID() string { return c.id }

func (c *wsClient) Send(event domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(event); err != nil {
		return err
	}
	metrics.BroadcastDeliveriesTotal.WithLabelValues(string(event.Kind)).Inc()
	return nil
}

func (c *wsClient) sendAck(ack wsAck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteJSON(ack)
}

func (c *wsClient) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// WSHandler upgrades connections and runs the subscribe/unsubscribe protocol
// on top of the tracking service.
type WSHandler struct {
	service ports.TrackingService
	log     zerolog.Logger
}

func NewWSHandler(service ports.TrackingService, log zerolog.Logger) *WSHandler {
	return &WSHandler{service: service, log: log}
}

// Serve handles GET /ws/tracking.
func (h *WSHandler) Serve(c echo.Context) error {
	role, actorID, err := ctxClaims(c)
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "upgrade failed")
	}

	client := &wsClient{id: newConnectionID(), conn: conn}
	metrics.SubscribersConnected.Inc()
	h.log.Info().Str("connection", client.id).Str("role", role).Msg("ws connected")

	go h.pingLoop(client)
	h.readLoop(c, client, role, actorID)

	h.service.UnsubscribeAll(client.id)
	metrics.SubscribersConnected.Dec()
	_ = conn.Close()
	h.log.Info().Str("connection", client.id).Msg("ws disconnected")
	return nil
}

func (h *WSHandler) readLoop(c echo.Context, client *wsClient, role, actorID string) {
	conn := client.conn
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}

		topic := domain.Topic(cmd.Topic)
		switch cmd.Action {
		case "subscribe":
			if !allowedTopic(topic, role, actorID) {
				client.sendAck(wsAck{Type: "error", Topic: cmd.Topic, Error: "forbidden"})
				continue
			}
			if err := h.service.Subscribe(c.Request().Context(), client, topic); err != nil {
				client.sendAck(wsAck{Type: "error", Topic: cmd.Topic, Error: "subscribe failed"})
				continue
			}
			client.sendAck(wsAck{Type: "subscribed", Topic: cmd.Topic})
		case "unsubscribe":
			h.service.Unsubscribe(client.id, topic)
			client.sendAck(wsAck{Type: "unsubscribed", Topic: cmd.Topic})
		default:
			client.sendAck(wsAck{Type: "error", Error: "unknown action"})
		}
	}
}

func (h *WSHandler) pingLoop(client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		if err := client.ping(); err != nil {
			return
		}
	}
}

// allowedTopic enforces who may listen where: admins see everything, couriers
// only their own channel, customers their own channel plus order channels
// (order IDs are unguessable), services any order or courier channel.
func allowedTopic(topic domain.Topic, role, actorID string) bool {
	if role == domain.RoleAdmin {
		return true
	}
	if topic == domain.AdminTopic {
		return false
	}
	isOrder := strings.HasPrefix(string(topic), "order:")
	switch role {
	case domain.RoleService:
		return true
	case domain.RoleCourier:
		return isOrder || topic == domain.CourierTopic(actorID)
	case domain.RoleCustomer:
		return isOrder || topic == domain.UserTopic(actorID)
	}
	return false
}

func newConnectionID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "conn-" + hex.EncodeToString(b)
}
