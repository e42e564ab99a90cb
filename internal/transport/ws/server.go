// Package ws serves the decoded feed and fog-of-war map to UI clients over
// websocket.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cryptdelve.gg/internal/area"
	"cryptdelve.gg/internal/feed"
	"cryptdelve.gg/internal/fog"
	"cryptdelve.gg/internal/protocol"
)

type session struct {
	id          string
	characterID string
	instanceID  string
	out         chan []byte
}

// Server upgrades UI connections, tracks watch sessions and fans decoded
// feeds out to them. Reveal messages flow the other way into the fog store.
type Server struct {
	fog *fog.Store
	log *log.Logger

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*session]struct{}
}

func NewServer(fogStore *fog.Store, logger *log.Logger) *Server {
	return &Server{
		fog: fogStore,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: make(map[*session]struct{}),
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn)
		if sess == nil {
			return
		}

		s.mu.Lock()
		s.sessions[sess] = struct{}{}
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.sessions, sess)
			s.mu.Unlock()
		}()

		done := make(chan struct{})
		defer close(done)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-done:
					return
				case b, ok := <-sess.out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						return
					}
				}
			}
		}()

		// Initial map snapshot so the minimap renders before any event lands.
		s.sendMap(sess)

		// Reader loop: only REVEAL is accepted after the handshake.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeReveal {
				continue
			}
			var rev protocol.RevealMsg
			if err := json.Unmarshal(msg, &rev); err != nil {
				continue
			}
			s.handleReveal(sess, rev)
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeWatch {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected WATCH"), time.Now().Add(time.Second))
		return nil
	}

	var watch protocol.WatchMsg
	if err := json.Unmarshal(msg, &watch); err != nil {
		return nil
	}
	if watch.ProtocolVersion != protocol.Version {
		s.reject(conn, protocol.ErrProtoBadRequest, "unsupported protocol version")
		return nil
	}
	if watch.CharacterID == "" {
		s.reject(conn, protocol.ErrNoCharacter, "missing character_id")
		return nil
	}

	sess := &session{
		id:          uuid.NewString(),
		characterID: watch.CharacterID,
		instanceID:  watch.InstanceID,
		out:         make(chan []byte, 256),
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		CharacterID:     sess.characterID,
		InstanceID:      sess.instanceID,
	}
	b, _ := json.Marshal(welcome)
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return nil
	}
	s.log.Printf("session %s watching character=%s instance=%s", sess.id, sess.characterID, sess.instanceID)
	return sess
}

func (s *Server) reject(conn *websocket.Conn, code, message string) {
	b, _ := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Server) handleReveal(sess *session, rev protocol.RevealMsg) {
	k, err := area.Encode(rev.Depth, rev.X, rev.Y)
	if err != nil {
		s.send(sess, protocol.ErrorMsg{
			Type:            protocol.TypeError,
			ProtocolVersion: protocol.Version,
			Code:            protocol.ErrBadCoordinate,
			Message:         err.Error(),
		})
		return
	}
	s.fog.Reveal(sess.characterID, k, sess.instanceID)
	s.sendMap(sess)
}

func (s *Server) sendMap(sess *session) {
	set := s.fog.Load(sess.characterID, sess.instanceID)
	stairs := s.fog.LoadStairs(sess.characterID, sess.instanceID)

	revealed := make([]string, 0, set.Len())
	for _, k := range set.Keys() {
		revealed = append(revealed, k.String())
	}
	up := make([]string, 0, len(stairs.Up))
	for c := range stairs.Up {
		up = append(up, c)
	}
	down := make([]string, 0, len(stairs.Down))
	for c := range stairs.Down {
		down = append(down, c)
	}
	s.send(sess, protocol.MapMsg{
		Type:            protocol.TypeMap,
		ProtocolVersion: protocol.Version,
		CharacterID:     sess.characterID,
		InstanceID:      sess.instanceID,
		Revealed:        revealed,
		StairsUp:        up,
		StairsDown:      down,
	})
}

func (s *Server) send(sess *session, msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case sess.out <- b:
	default:
		s.log.Printf("session %s: send buffer full, dropping message", sess.id)
	}
}

// Broadcast fans one decoded poll out to every connected session.
func (s *Server) Broadcast(events []feed.Event, chats []feed.ChatMessage) {
	if len(events) == 0 && len(chats) == 0 {
		return
	}
	msg := protocol.FeedMsg{
		Type:            protocol.TypeFeed,
		ProtocolVersion: protocol.Version,
		Events:          toWireEvents(events),
		Chats:           toWireChats(chats),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for sess := range s.sessions {
		select {
		case sess.out <- b:
		default:
			s.log.Printf("session %s: send buffer full, dropping feed", sess.id)
		}
	}
}

func toWireEvents(events []feed.Event) []protocol.FeedEvent {
	out := make([]protocol.FeedEvent, 0, len(events))
	for _, ev := range events {
		w := protocol.FeedEvent{
			LogIndex:       ev.LogIndex,
			BlockNumber:    ev.BlockNumber,
			Timestamp:      ev.Timestamp,
			EventType:      ev.Type.String(),
			Attacker:       ev.Attacker,
			Defender:       ev.Defender,
			ActorInitiated: ev.ActorInitiated,
			DisplayText:    ev.DisplayText,
		}
		if ev.HasArea {
			w.AreaID = ev.AreaID.String()
		}
		out = append(out, w)
	}
	return out
}

func toWireChats(chats []feed.ChatMessage) []protocol.FeedChat {
	out := make([]protocol.FeedChat, 0, len(chats))
	for _, c := range chats {
		out = append(out, protocol.FeedChat{
			LogIndex:    c.LogIndex,
			BlockNumber: c.BlockNumber,
			Timestamp:   c.Timestamp,
			Sender:      c.Sender,
			Text:        c.Text,
		})
	}
	return out
}
