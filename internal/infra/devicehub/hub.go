package devicehub

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"ballotd/internal/domain"
)

const (
	// MsgRegister binds a connection to a user id. Must be the first
	// message on every connection.
	MsgRegister = "register"
	// MsgSigningRequest is pushed server-to-device.
	MsgSigningRequest = "signing-request"
	// MsgSigningResponse carries the device's signature back.
	MsgSigningResponse = "signing-response"

	writeTimeout  = 5 * time.Second
	registerGrace = 10 * time.Second
)

// Envelope is the single wire frame for the device channel, in both
// directions. Fields are populated per message type.
type Envelope struct {
	Type      string                 `json:"type"`
	UserID    string                 `json:"user_id,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Signature []byte                 `json:"signature,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Request   *domain.SigningRequest `json:"request,omitempty"`
}

// deviceConn abstracts the websocket connection so the hub's routing
// can be exercised without network sockets.
type deviceConn interface {
	ReadEnvelope(ctx context.Context) (Envelope, error)
	WriteEnvelope(ctx context.Context, env Envelope) error
	Close(code websocket.StatusCode, reason string) error
}

// Hub tracks connected signing devices keyed by user id and fans
// incoming signing responses out to the registered handler. A user may
// hold several concurrent sessions; signing requests go to all of them
// and the first response wins upstream.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]map[deviceConn]struct{}

	onResponse func(domain.SigningResponse)
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		sessions: map[string]map[deviceConn]struct{}{},
		logger:   logger,
	}
}

// OnResponse installs the handler invoked for every signing response.
// Set once during wiring, before any connection is accepted.
func (h *Hub) OnResponse(fn func(domain.SigningResponse)) {
	h.mu.Lock()
	h.onResponse = fn
	h.mu.Unlock()
}

func (h *Hub) IsConnected(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[userID]) > 0
}

// SendToUser pushes a signing request to every session the user holds.
// Succeeds when at least one session accepted the write.
func (h *Hub) SendToUser(ctx context.Context, userID string, req domain.SigningRequest) error {
	h.mu.Lock()
	conns := make([]deviceConn, 0, len(h.sessions[userID]))
	for c := range h.sessions[userID] {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	if len(conns) == 0 {
		return domain.ErrNoDeviceConnected
	}

	env := Envelope{
		Type:      MsgSigningRequest,
		UserID:    userID,
		RequestID: req.RequestID,
		Request:   &req,
	}
	delivered := 0
	for _, c := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := c.WriteEnvelope(writeCtx, env)
		cancel()
		if err != nil {
			h.logger.Warn("signing request write failed",
				"user_id", userID,
				"request_id", req.RequestID,
				"error", err.Error(),
			)
			h.detach(userID, c)
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return domain.ErrNoDeviceConnected
	}
	return nil
}

// Handler accepts device websocket connections. Mounted on the HTTP
// server's signing socket route.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
		if err != nil {
			return
		}
		h.serve(r.Context(), &jsonConn{conn: conn})
	}
}

// serve runs a single device session to completion.
func (h *Hub) serve(ctx context.Context, conn deviceConn) {
	registerCtx, cancel := context.WithTimeout(ctx, registerGrace)
	first, err := conn.ReadEnvelope(registerCtx)
	cancel()
	if err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "registration timed out")
		return
	}
	if first.Type != MsgRegister || first.UserID == "" {
		_ = conn.Close(websocket.StatusPolicyViolation, "first message must register a user")
		return
	}
	userID := first.UserID

	h.attach(userID, conn)
	defer h.detach(userID, conn)
	h.logger.Info("signing device connected", "user_id", userID)

	for {
		env, err := conn.ReadEnvelope(ctx)
		if err != nil {
			h.logger.Info("signing device disconnected", "user_id", userID)
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		}
		switch env.Type {
		case MsgSigningResponse:
			h.dispatch(domain.SigningResponse{
				RequestID: env.RequestID,
				UserID:    userID,
				Signature: env.Signature,
				Error:     env.Error,
			})
		case MsgRegister:
			// Re-registration on a live connection is a protocol error.
			_ = conn.Close(websocket.StatusPolicyViolation, "already registered")
			return
		default:
			h.logger.Debug("unknown device message", "type", env.Type, "user_id", userID)
		}
	}
}

func (h *Hub) dispatch(resp domain.SigningResponse) {
	h.mu.Lock()
	fn := h.onResponse
	h.mu.Unlock()
	if fn == nil {
		h.logger.Warn("signing response dropped, no handler installed", "request_id", resp.RequestID)
		return
	}
	fn(resp)
}

func (h *Hub) attach(userID string, c deviceConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[userID] == nil {
		h.sessions[userID] = map[deviceConn]struct{}{}
	}
	h.sessions[userID][c] = struct{}{}
}

func (h *Hub) detach(userID string, c deviceConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions[userID], c)
	if len(h.sessions[userID]) == 0 {
		delete(h.sessions, userID)
	}
}

// jsonConn adapts a live websocket connection to deviceConn.
type jsonConn struct {
	conn *websocket.Conn
}

func (j *jsonConn) ReadEnvelope(ctx context.Context) (Envelope, error) {
	var env Envelope
	if err := wsjson.Read(ctx, j.conn, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func (j *jsonConn) WriteEnvelope(ctx context.Context, env Envelope) error {
	return wsjson.Write(ctx, j.conn, env)
}

func (j *jsonConn) Close(code websocket.StatusCode, reason string) error {
	return j.conn.Close(code, reason)
}
