// Package livebooking runs the booking form over a websocket: the browser sends
// field events, the server answers with the whole form state after every change.
package livebooking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/tablebook/internal/booking"
	"github.com/wolfman30/tablebook/internal/reservation"
	"github.com/wolfman30/tablebook/pkg/logging"
)

// Message types.
const (
	TypeSet            = "set"
	TypeSelectDate     = "select_date"
	TypeSelectTime     = "select_time"
	TypeTogglePreorder = "toggle_preorder"
	TypeToggleDish     = "toggle_dish"
	TypeDishQuantity   = "dish_quantity"
	TypeSubmit         = "submit"
	TypePing           = "ping"

	TypeSession   = "session"
	TypeState     = "state"
	TypeConfirmed = "confirmed"
	TypeError     = "error"
	TypePong      = "pong"
)

// InboundMessage is what the browser sends.
type InboundMessage struct {
	Type     string `json:"type"`
	Field    string `json:"field,omitempty"`
	Value    string `json:"value,omitempty"`
	Category string `json:"category,omitempty"`
	Name     string `json:"name,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

// OutboundMessage is what we push to the browser.
type OutboundMessage struct {
	Type         string                `json:"type"`
	SessionID    string                `json:"session_id,omitempty"`
	State        *booking.State        `json:"state,omitempty"`
	Confirmation *booking.Confirmation `json:"confirmation,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// Handler serves live booking sessions, one controller per connection.
type Handler struct {
	newController  func() *booking.Controller
	allowedOrigins map[string]struct{}
	logger         *logging.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewHandler builds a handler. Connections are accepted from the request's own
// host and from allowedOrigins.
func NewHandler(newController func() *booking.Controller, allowedOrigins []string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	allow := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allow[o] = struct{}{}
		}
	}
	return &Handler{
		newController:  newController,
		allowedOrigins: allow,
		logger:         logger,
		sessions:       make(map[string]*session),
	}
}

// ServeHTTP upgrades to a websocket and runs the session until the client leaves.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	websocket.Server{
		Handshake: h.checkOrigin,
		Handler: func(conn *websocket.Conn) {
			h.serveWS(conn, r)
		},
	}.ServeHTTP(w, r)
}

// ActiveSessions reports how many live forms are open.
func (h *Handler) ActiveSessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Handler) checkOrigin(config *websocket.Config, r *http.Request) error {
	origin, err := websocket.Origin(config, r)
	if err != nil {
		return err
	}
	if origin == nil {
		return errors.New("livebooking: missing origin")
	}
	config.Origin = origin
	if origin.Host == r.Host {
		return nil
	}
	if _, ok := h.allowedOrigins["*"]; ok {
		return nil
	}
	if _, ok := h.allowedOrigins[originKey(origin)]; ok {
		return nil
	}
	return fmt.Errorf("livebooking: origin %s not allowed", origin)
}

func originKey(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

type session struct {
	id     string
	conn   *websocket.Conn
	ctrl   *booking.Controller
	logger *logging.Logger

	sendMu  sync.Mutex
	submits sync.WaitGroup
}

func (s *session) send(msg OutboundMessage) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := websocket.JSON.Send(s.conn, msg); err != nil {
		s.logger.Debug("livebooking: send failed", "session_id", s.id, "error", err)
	}
}

func (s *session) sendError(msg string) {
	s.send(OutboundMessage{Type: TypeError, Error: msg})
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s := &session{
		id:     uuid.NewString(),
		conn:   conn,
		ctrl:   h.newController(),
		logger: h.logger,
	}
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	defer func() {
		cancel()
		s.submits.Wait()
		s.ctrl.Close()
		h.mu.Lock()
		delete(h.sessions, s.id)
		h.mu.Unlock()
		h.logger.Info("livebooking: connection closed", "session_id", s.id)
	}()

	h.logger.Info("livebooking: connection opened", "session_id", s.id, "remote_ip", r.RemoteAddr)
	s.send(OutboundMessage{Type: TypeSession, SessionID: s.id})

	s.ctrl.OnChange(func(st booking.State) {
		s.send(OutboundMessage{Type: TypeState, State: &st})
	})
	s.ctrl.Init(ctx)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("livebooking: receive ended", "session_id", s.id, "error", err)
			return
		}
		h.dispatch(ctx, s, msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, s *session, msg InboundMessage) {
	ctrl := s.ctrl
	switch msg.Type {
	case TypePing:
		s.send(OutboundMessage{Type: TypePong})
	case TypeSet:
		if err := applyField(ctx, ctrl, reservation.Field(msg.Field), msg.Value); err != nil {
			s.sendError(err.Error())
		}
	case TypeSelectDate:
		d, err := reservation.ParseDate(msg.Value)
		if err != nil {
			s.sendError("Date invalide")
			return
		}
		ctrl.SelectDate(ctx, d)
	case TypeSelectTime:
		if err := ctrl.SelectTime(msg.Value); err != nil {
			s.sendError("Ce créneau n'est pas disponible")
		}
	case TypeTogglePreorder:
		ctrl.SetPreorder(!ctrl.State().Draft.Preorder)
	case TypeToggleDish:
		if _, err := ctrl.ToggleDish(msg.Category, msg.Name); err != nil {
			s.sendError("Plat inconnu")
		}
	case TypeDishQuantity:
		if err := ctrl.SetDishQuantity(msg.Category, msg.Name, msg.Quantity); err != nil {
			s.sendError("Plat inconnu")
		}
	case TypeSubmit:
		s.submits.Add(1)
		go func() {
			defer s.submits.Done()
			conf, err := ctrl.Submit(ctx)
			if err == nil {
				s.send(OutboundMessage{Type: TypeConfirmed, Confirmation: conf})
				return
			}
			if errors.Is(err, booking.ErrSubmissionInFlight) {
				s.sendError("Réservation déjà en cours d'envoi")
			}
			// Other failures are already in the pushed state.
		}()
	default:
		s.sendError(fmt.Sprintf("type de message inconnu : %q", msg.Type))
	}
}

// applyField routes a "set" message; a date set this way also loads its slots.
func applyField(ctx context.Context, ctrl *booking.Controller, field reservation.Field, value string) error {
	switch field {
	case reservation.FieldName:
		ctrl.SetName(value)
	case reservation.FieldCountry:
		ctrl.SetCountry(value)
	case reservation.FieldPhone:
		ctrl.SetPhone(value)
	case reservation.FieldEmail:
		ctrl.SetEmail(value)
	case reservation.FieldDate:
		d, err := reservation.ParseDate(value)
		if err != nil {
			return errors.New("Date invalide")
		}
		ctrl.SelectDate(ctx, d)
	case reservation.FieldTime:
		return ctrl.SelectTime(value)
	case reservation.FieldPartySize:
		var n int
		if _, err := fmt.Sscan(strings.TrimSpace(value), &n); err != nil {
			n = 0
		}
		ctrl.SetPartySize(n)
	case reservation.FieldSpecialRequest:
		ctrl.SetSpecialRequest(value)
	default:
		return fmt.Errorf("champ inconnu : %q", field)
	}
	return nil
}
