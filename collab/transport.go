package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// the realtime transport edge. One websocket per connection: a read loop
// that decodes control messages, and a write pump that drains the
// connection's send buffer. Registry cleanup on disconnect is the only
// cancellation signal for a connection.

type RealtimeSettings struct {
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	PingTimeout  time.Duration
	ReadLimit    int64
}

func DefaultRealtimeSettings() *RealtimeSettings {
	return &RealtimeSettings{
		WriteTimeout: 5 * time.Second,
		ReadTimeout:  60 * time.Second,
		PingTimeout:  25 * time.Second,
		ReadLimit:    64 * 1024,
	}
}

// one loose shape for every client-originated control message,
// mirroring `Event` on the outbound side
type clientMessage struct {
	Type string `json:"type"`
	// auth binds either a session token or a bare username
	Token  string `json:"token,omitempty"`
	UserId string `json:"userId,omitempty"`
	AppId  string `json:"appId,omitempty"`
	// comment trigger
	Comment *struct {
		Author string `json:"author"`
		Text   string `json:"text"`
	} `json:"comment,omitempty"`
	// collaborator trigger
	Username string `json:"username,omitempty"`
	Role     Role   `json:"role,omitempty"`
	AddedBy  string `json:"addedBy,omitempty"`
	// relays
	Updates  map[string]any `json:"updates,omitempty"`
	Filename string         `json:"filename,omitempty"`
}

type Realtime struct {
	ctx context.Context

	hub      *Hub
	settings *RealtimeSettings

	upgrader websocket.Upgrader
}

func NewRealtimeWithDefaults(ctx context.Context, hub *Hub) *Realtime {
	return NewRealtime(ctx, hub, DefaultRealtimeSettings())
}

func NewRealtime(ctx context.Context, hub *Hub, settings *RealtimeSettings) *Realtime {
	return &Realtime{
		ctx:      ctx,
		hub:      hub,
		settings: settings,
		upgrader: websocket.Upgrader{
			// the http edge already allows any origin
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (self *Realtime) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := self.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Infof("[rt]upgrade error = %s\n", err)
		return
	}

	conn := self.hub.Register()
	self.enqueue(conn, ConnectedEvent())

	go self.writePump(conn, ws)
	self.readLoop(conn, ws)
}

func (self *Realtime) writePump(conn *Conn, ws *websocket.Conn) {
	defer ws.Close()
	for {
		select {
		case <-self.ctx.Done():
			return
		case <-conn.Done():
			return
		case eventBytes := <-conn.Receive():
			ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, eventBytes); err != nil {
				// a write deadline timeout cannot be recovered on websocket
				glog.V(1).Infof("[rt]%s-> error = %s\n", conn.ConnectionId, err)
				return
			}
		case <-time.After(self.settings.PingTimeout):
			ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (self *Realtime) readLoop(conn *Conn, ws *websocket.Conn) {
	defer func() {
		self.hub.Unregister(conn.ConnectionId)
		ws.Close()
		glog.V(1).Infof("[rt]%s disconnected\n", conn.ConnectionId)
	}()

	ws.SetReadLimit(self.settings.ReadLimit)
	ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
		return nil
	})

	for {
		_, messageBytes, err := ws.ReadMessage()
		if err != nil {
			return
		}
		ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))

		message := &clientMessage{}
		if err := json.Unmarshal(messageBytes, message); err != nil {
			glog.V(1).Infof("[rt]%s<- bad message = %s\n", conn.ConnectionId, err)
			continue
		}
		self.handleMessage(conn, message)
	}
}

// a failed trigger is silent to everyone except the requester:
// nothing is broadcast and the error is only logged here
func (self *Realtime) handleMessage(conn *Conn, message *clientMessage) {
	switch message.Type {
	case "auth":
		username := message.UserId
		if message.Token != "" {
			tokenUsername, err := ParseSessionToken(self.hub.Settings().Session, message.Token)
			if err != nil {
				glog.V(1).Infof("[rt]%s auth error = %s\n", conn.ConnectionId, err)
				return
			}
			username = tokenUsername
		}
		if username == "" {
			return
		}
		if err := self.hub.Authenticate(conn.ConnectionId, username); err != nil {
			return
		}
		self.enqueue(conn, &Event{Type: EventAuth, Status: "success"})
	case "subscribe":
		if err := self.hub.Subscribe(conn.ConnectionId, message.AppId); err != nil {
			return
		}
		self.enqueue(conn, &Event{Type: EventSubscribed, AppId: message.AppId})
	case "comment":
		if message.Comment == nil {
			return
		}
		author := conn.Username
		if author == "" {
			author = message.Comment.Author
		}
		_, err := self.hub.PostComment(&PostCommentArgs{
			AppId:  message.AppId,
			Author: author,
			Text:   message.Comment.Text,
		})
		if err != nil {
			glog.V(1).Infof("[rt]%s comment error = %s\n", conn.ConnectionId, err)
		}
	case "collaborator_added":
		addedBy := conn.Username
		if addedBy == "" {
			addedBy = message.AddedBy
		}
		_, err := self.hub.AddCollaborator(&AddCollaboratorArgs{
			AppId:    message.AppId,
			Username: message.Username,
			Role:     message.Role,
			AddedBy:  addedBy,
		})
		if err != nil {
			glog.V(1).Infof("[rt]%s collaborator error = %s\n", conn.ConnectionId, err)
		}
	case "app_updated":
		self.hub.Relay(message.AppId, &Event{
			Type:    EventAppUpdated,
			AppId:   message.AppId,
			Updates: message.Updates,
		})
	case "file_uploaded":
		self.hub.Relay(message.AppId, &Event{
			Type:     EventFileUploaded,
			AppId:    message.AppId,
			Filename: message.Filename,
		})
	default:
		glog.V(2).Infof("[rt]%s<- other=%s\n", conn.ConnectionId, message.Type)
	}
}

// acks and greetings go through the same send buffer as broadcasts so the
// write pump is the only websocket writer
func (self *Realtime) enqueue(conn *Conn, event *Event) {
	select {
	case conn.send <- event.MarshalSnapshot():
	default:
	}
}
