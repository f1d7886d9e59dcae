package collab

import (
	"context"
	"sync"
)

// the pipeline orchestrator. The hub owns the only shared mutable state,
// the store and the registry, and serializes every pipeline invocation and
// every registry operation behind one mutex. That single mutual exclusion
// boundary is what makes a mutation and the broadcasts it enqueues appear
// as one step: broadcasts snapshot post-mutation state before the lock is
// released, so same-topic deliveries can never reorder against the
// mutations that happened before them. The dispatcher and resolver never
// mutate store or registry state.

type HubSettings struct {
	Session *SessionSettings
}

func DefaultHubSettings() *HubSettings {
	return &HubSettings{
		Session: DefaultSessionSettings(),
	}
}

type Hub struct {
	ctx    context.Context
	cancel context.CancelFunc

	settings *HubSettings

	mutex      sync.Mutex
	store      *Store
	registry   *Registry
	dispatcher *Dispatcher
	resolver   *Resolver
	sink       NotificationSink
}

func NewHubWithDefaults(ctx context.Context) *Hub {
	return NewHub(ctx, NewLogNotificationSink(), DefaultHubSettings())
}

func NewHub(ctx context.Context, sink NotificationSink, settings *HubSettings) *Hub {
	cancelCtx, cancel := context.WithCancel(ctx)
	store := NewStore()
	registry := NewRegistry()
	return &Hub{
		ctx:        cancelCtx,
		cancel:     cancel,
		settings:   settings,
		store:      store,
		registry:   registry,
		dispatcher: NewDispatcher(registry),
		resolver:   NewResolver(store),
		sink:       sink,
	}
}

func (self *Hub) Settings() *HubSettings {
	return self.settings
}

// registry operations. Serialized with pipeline invocations so a
// subscribe and a broadcast never interleave mid-step.

func (self *Hub) Register() *Conn {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.registry.Register()
}

func (self *Hub) Authenticate(connectionId Id, username string) error {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.registry.Authenticate(connectionId, username)
}

func (self *Hub) Subscribe(connectionId Id, appId string) error {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.registry.Subscribe(connectionId, appId)
}

func (self *Hub) Unregister(connectionId Id) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	self.registry.Unregister(connectionId)
}

// pure relay broadcasts from the realtime channel (app_updated,
// file_uploaded). No store mutation, no notification.
func (self *Hub) Relay(appId string, event *Event) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	self.dispatcher.BroadcastToTopic(appId, event)
}

func (self *Hub) ConnCount() int {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.registry.Len()
}

func (self *Hub) Close() {
	self.cancel()
}

// read surface. No authorization on reads in the current surface.

func (self *Hub) Apps(username string) []*App {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.store.AppsForUser(username)
}

func (self *Hub) App(appId string) (*App, error) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.store.App(appId)
}

func (self *Hub) Comments(appId string) []*Comment {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.store.Comments(appId)
}

func (self *Hub) Collaborators(appId string) []*Collaborator {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.store.Collaborators(appId)
}

func (self *Hub) SessionUser(token string) (*User, error) {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	session, err := self.store.Session(token)
	if err != nil {
		return nil, err
	}
	return self.store.User(session.Username)
}
