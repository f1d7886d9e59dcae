package collab

import (
	"github.com/golang/glog"
)

// fans a domain event out to the subscribed connections of a topic, or to
// the single most recent connection of a user. Delivery is best effort and
// at most once: a closed connection is skipped, a full send buffer drops,
// nothing queues and nothing retries. Delivery order within one fan-out
// set is unspecified. The dispatcher never touches store state.

type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
	}
}

// delivers to every currently subscribed, currently open connection for
// the topic. A connection that closes mid delivery is skipped and never
// fails the dispatch for the others.
func (self *Dispatcher) BroadcastToTopic(appId string, event *Event) {
	eventBytes := event.MarshalSnapshot()
	for _, conn := range self.registry.Subscribers(appId) {
		self.deliver(conn, event.Type, eventBytes)
	}
}

// delivers to the most recently authenticated connection for the user,
// if any is open, otherwise silently drops
func (self *Dispatcher) SendToUser(username string, event *Event) {
	conn, ok := self.registry.UserConn(username)
	if !ok {
		glog.V(2).Infof("[rt]drop %s-> no connection\n", username)
		return
	}
	self.deliver(conn, event.Type, event.MarshalSnapshot())
}

func (self *Dispatcher) deliver(conn *Conn, eventType string, eventBytes []byte) {
	select {
	case <-conn.done:
		// closed mid delivery, skip
		glog.V(2).Infof("[rt]skip %s %s\n", conn.ConnectionId, eventType)
	case conn.send <- eventBytes:
		glog.V(2).Infof("[rt]%s-> %s\n", conn.ConnectionId, eventType)
	default:
		// backpressure, drop rather than block the pipeline
		glog.Infof("[rt]drop %s %s\n", conn.ConnectionId, eventType)
	}
}
