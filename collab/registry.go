package collab

import (
	"github.com/golang/glog"
	"golang.org/x/exp/maps"
)

// tracks live realtime connections, their authenticated identity and
// their current topic subscription. Connection records are ephemeral and
// never referenced by the store. Like the store, the registry is plain
// data. The hub serializes access to it.

const ConnSendBufferSize = 32

type Conn struct {
	ConnectionId Id
	// empty until an auth message binds an identity
	Username string
	// the subscribed topic. At most one per connection,
	// subscribe replaces any previous value
	AppId string

	// marshaled events pending delivery. The transport write pump drains
	// this. A full buffer drops, a closed connection skips. See Dispatcher.
	send chan []byte
	done chan struct{}
}

// the delivery channel for this connection
func (self *Conn) Receive() <-chan []byte {
	return self.send
}

func (self *Conn) Done() <-chan struct{} {
	return self.done
}

type Registry struct {
	conns map[Id]*Conn
	// username -> most recently authenticated connection (last registration wins)
	userConns map[string]Id
}

func NewRegistry() *Registry {
	return &Registry{
		conns:     map[Id]*Conn{},
		userConns: map[string]Id{},
	}
}

func (self *Registry) Register() *Conn {
	conn := &Conn{
		ConnectionId: NewId(),
		send:         make(chan []byte, ConnSendBufferSize),
		done:         make(chan struct{}),
	}
	self.conns[conn.ConnectionId] = conn
	glog.V(1).Infof("[rt]register %s\n", conn.ConnectionId)
	return conn
}

// binds an identity to the connection, overwriting any prior binding for
// that username. Only the most recent connection per user receives
// user-targeted messages. This is policy, not a bug.
func (self *Registry) Authenticate(connectionId Id, username string) error {
	conn, ok := self.conns[connectionId]
	if !ok {
		return ErrNotFound
	}
	conn.Username = username
	self.userConns[username] = connectionId
	glog.V(1).Infof("[rt]auth %s = %s\n", connectionId, username)
	return nil
}

// replaces any previous subscription for this connection
func (self *Registry) Subscribe(connectionId Id, appId string) error {
	conn, ok := self.conns[connectionId]
	if !ok {
		return ErrNotFound
	}
	conn.AppId = appId
	glog.V(1).Infof("[rt]subscribe %s -> %s\n", connectionId, appId)
	return nil
}

// idempotent
func (self *Registry) Unregister(connectionId Id) {
	conn, ok := self.conns[connectionId]
	if !ok {
		return
	}
	delete(self.conns, connectionId)
	if conn.Username != "" {
		// only clear the user binding if this connection still holds it
		if current, ok := self.userConns[conn.Username]; ok && current == connectionId {
			delete(self.userConns, conn.Username)
		}
	}
	close(conn.done)
	glog.V(1).Infof("[rt]unregister %s\n", connectionId)
}

func (self *Registry) Conn(connectionId Id) (*Conn, bool) {
	conn, ok := self.conns[connectionId]
	return conn, ok
}

func (self *Registry) Subscribers(appId string) []*Conn {
	subscribers := []*Conn{}
	for _, conn := range self.conns {
		if conn.AppId == appId {
			subscribers = append(subscribers, conn)
		}
	}
	return subscribers
}

// the most recent authenticated connection for the user, if any is open
func (self *Registry) UserConn(username string) (*Conn, bool) {
	connectionId, ok := self.userConns[username]
	if !ok {
		return nil, false
	}
	conn, ok := self.conns[connectionId]
	return conn, ok
}

func (self *Registry) Conns() []*Conn {
	return maps.Values(self.conns)
}

func (self *Registry) Len() int {
	return len(self.conns)
}
