package collab

import (
	"fmt"
	"slices"
	"time"

	"github.com/golang/glog"
	"golang.org/x/exp/maps"
)

// the relational model for the hub: users, apps, sessions keyed collections
// plus the two app-owned collections, comments and collaborators.
// the store is plain data and invariant enforcement. It is not safe for
// concurrent use on its own. The hub serializes every access behind a
// single mutual exclusion boundary, see `Hub`.

type Store struct {
	users    map[string]*User
	apps     map[string]*App
	sessions map[string]*Session
	// app id -> ordered rows. An app exclusively owns these two.
	comments      map[string][]*Comment
	collaborators map[string][]*Collaborator
}

func NewStore() *Store {
	return &Store{
		users:         map[string]*User{},
		apps:          map[string]*App{},
		sessions:      map[string]*Session{},
		comments:      map[string][]*Comment{},
		collaborators: map[string][]*Collaborator{},
	}
}

// users

func (self *Store) AddUser(user *User) error {
	if _, ok := self.users[user.Username]; ok {
		return fmt.Errorf("username %s already exists: %w", user.Username, ErrConflict)
	}
	self.users[user.Username] = user
	glog.V(1).Infof("[store]add user %s\n", user.Username)
	return nil
}

func (self *Store) User(username string) (*User, error) {
	user, ok := self.users[username]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	return user, nil
}

// the current surface does not expose this, but preference changes
// must be possible without rebuilding the user row
func (self *Store) SetNotifyOnEvents(username string, notify bool) error {
	user, ok := self.users[username]
	if !ok {
		return fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	user.NotifyOnEvents = notify
	return nil
}

// sessions

func (self *Store) AddSession(session *Session) {
	self.sessions[session.Token] = session
}

func (self *Store) Session(token string) (*Session, error) {
	session, ok := self.sessions[token]
	if !ok {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	return session, nil
}

// apps

// allocates an id unique among currently live apps
func (self *Store) CreateApp(name string, description string, owner string, visibility Visibility, realtimeEnabled bool) *App {
	appId := NewAppId()
	for {
		// ulids from one process are monotonic so a collision cannot happen,
		// but the id contract is uniqueness among live apps, so verify
		if _, ok := self.apps[appId]; !ok {
			break
		}
		appId = NewAppId()
	}
	app := &App{
		Id:              appId,
		Name:            name,
		Description:     description,
		Owner:           owner,
		Visibility:      visibility,
		RealtimeEnabled: realtimeEnabled,
		Url:             hostedUrl(name),
		CreatedAt:       time.Now(),
	}
	self.apps[appId] = app
	self.collaborators[appId] = []*Collaborator{}
	glog.V(1).Infof("[store]create app %s (%s) by %s\n", name, appId, owner)
	return app
}

func (self *Store) App(appId string) (*App, error) {
	app, ok := self.apps[appId]
	if !ok {
		return nil, fmt.Errorf("app %s: %w", appId, ErrNotFound)
	}
	return app, nil
}

// apps the user owns or collaborates on
func (self *Store) AppsForUser(username string) []*App {
	apps := []*App{}
	for appId, app := range self.apps {
		if app.Owner == username || self.IsCollaborator(appId, username) {
			apps = append(apps, app)
		}
	}
	slices.SortFunc(apps, func(a *App, b *App) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return apps
}

// removes the app row and both dependent collections as one step.
// no partial cascade is observable.
func (self *Store) RemoveApp(appId string) error {
	if _, ok := self.apps[appId]; !ok {
		return fmt.Errorf("app %s: %w", appId, ErrNotFound)
	}
	delete(self.apps, appId)
	delete(self.comments, appId)
	delete(self.collaborators, appId)
	glog.V(1).Infof("[store]remove app %s\n", appId)
	return nil
}

// comments

func (self *Store) AddComment(appId string, author string, text string) (*Comment, error) {
	if _, ok := self.apps[appId]; !ok {
		return nil, fmt.Errorf("app %s: %w", appId, ErrNotFound)
	}
	comment := &Comment{
		Id:        NewCommentId(),
		AppId:     appId,
		Author:    author,
		Text:      text,
		Timestamp: time.Now(),
	}
	self.comments[appId] = append(self.comments[appId], comment)
	return comment, nil
}

func (self *Store) Comments(appId string) []*Comment {
	return slices.Clone(self.comments[appId])
}

func (self *Store) Comment(commentId string) (*Comment, error) {
	for _, appComments := range self.comments {
		for _, comment := range appComments {
			if comment.Id == commentId {
				return comment, nil
			}
		}
	}
	return nil, fmt.Errorf("comment %s: %w", commentId, ErrNotFound)
}

func (self *Store) UpdateComment(commentId string, text string) (*Comment, error) {
	comment, err := self.Comment(commentId)
	if err != nil {
		return nil, err
	}
	editedAt := time.Now()
	comment.Text = text
	comment.Edited = true
	comment.EditedAt = &editedAt
	return comment, nil
}

func (self *Store) RemoveComment(commentId string) (*Comment, error) {
	for appId, appComments := range self.comments {
		for i, comment := range appComments {
			if comment.Id == commentId {
				self.comments[appId] = slices.Delete(appComments, i, i+1)
				return comment, nil
			}
		}
	}
	return nil, fmt.Errorf("comment %s: %w", commentId, ErrNotFound)
}

// collaborators

func (self *Store) AddCollaborator(appId string, username string, role Role, addedBy string) (*Collaborator, error) {
	if _, ok := self.apps[appId]; !ok {
		return nil, fmt.Errorf("app %s: %w", appId, ErrNotFound)
	}
	for _, collaborator := range self.collaborators[appId] {
		if collaborator.Username == username {
			return nil, fmt.Errorf("%s is already a collaborator on %s: %w", username, appId, ErrConflict)
		}
	}
	collaborator := &Collaborator{
		AppId:    appId,
		Username: username,
		Role:     role,
		AddedBy:  addedBy,
		AddedAt:  time.Now(),
	}
	self.collaborators[appId] = append(self.collaborators[appId], collaborator)
	return collaborator, nil
}

func (self *Store) Collaborators(appId string) []*Collaborator {
	return slices.Clone(self.collaborators[appId])
}

func (self *Store) Collaborator(appId string, username string) (*Collaborator, bool) {
	for _, collaborator := range self.collaborators[appId] {
		if collaborator.Username == username {
			return collaborator, true
		}
	}
	return nil, false
}

func (self *Store) IsCollaborator(appId string, username string) bool {
	_, ok := self.Collaborator(appId, username)
	return ok
}

func (self *Store) RemoveCollaborator(appId string, username string) error {
	if _, ok := self.apps[appId]; !ok {
		return fmt.Errorf("app %s: %w", appId, ErrNotFound)
	}
	appCollaborators := self.collaborators[appId]
	for i, collaborator := range appCollaborators {
		if collaborator.Username == username {
			self.collaborators[appId] = slices.Delete(appCollaborators, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("collaborator %s on %s: %w", username, appId, ErrNotFound)
}

func (self *Store) AppIds() []string {
	return maps.Keys(self.apps)
}
