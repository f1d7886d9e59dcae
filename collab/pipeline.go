package collab

import (
	"fmt"
	"time"

	"github.com/golang/glog"
)

// the write handlers. Every one follows the same four stage contract:
// validate, authorize, mutate, emit. The first failing stage wins and the
// later stages do not run, so a failed mutation broadcasts nothing and
// notifies nobody. Emit uses post-mutation state: topic broadcast first,
// then notification resolution, both inside the hub's exclusion boundary.

func requireFields(fields map[string]string) error {
	for name, value := range fields {
		if value == "" {
			return fmt.Errorf("missing %s: %w", name, ErrInvalidInput)
		}
	}
	return nil
}

type SignupArgs struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// defaults to true when omitted
	NotifyOnEvents *bool `json:"notifyOnEvents,omitempty"`
}

type SignupResult struct {
	User *User `json:"user"`
}

func (self *Hub) Signup(args *SignupArgs) (*SignupResult, error) {
	if err := requireFields(map[string]string{
		"username": args.Username,
		"email":    args.Email,
		"password": args.Password,
	}); err != nil {
		return nil, err
	}
	passwordHash, err := HashPassword(args.Password, self.settings.Session.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", ErrInvalidInput)
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	user := &User{
		Username:       args.Username,
		Email:          args.Email,
		PasswordHash:   passwordHash,
		NotifyOnEvents: args.NotifyOnEvents == nil || *args.NotifyOnEvents,
		CreatedAt:      time.Now(),
	}
	if err := self.store.AddUser(user); err != nil {
		return nil, err
	}
	glog.V(1).Infof("[auth]signup %s\n", user.Username)
	return &SignupResult{User: user}, nil
}

type LoginArgs struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (self *Hub) Login(args *LoginArgs) (*LoginResult, error) {
	if err := requireFields(map[string]string{
		"username": args.Username,
		"password": args.Password,
	}); err != nil {
		return nil, err
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	// an unknown username and a wrong password fail the same way
	user, err := self.store.User(args.Username)
	if err != nil || !ComparePassword(user.PasswordHash, args.Password) {
		return nil, fmt.Errorf("credential mismatch: %w", ErrUnauthorized)
	}

	createdAt := time.Now()
	token, err := MintSessionToken(self.settings.Session, user.Username, createdAt)
	if err != nil {
		return nil, fmt.Errorf("mint session token: %v: %w", err, ErrUnauthorized)
	}
	self.store.AddSession(&Session{
		Token:     token,
		Username:  user.Username,
		CreatedAt: createdAt,
	})
	glog.V(1).Infof("[auth]login %s\n", user.Username)
	return &LoginResult{Token: token, User: user}, nil
}

type CreateAppArgs struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Owner       string     `json:"owner"`
	Visibility  Visibility `json:"visibility,omitempty"`
	// defaults to true when omitted
	RealtimeEnabled *bool `json:"realtimeEnabled,omitempty"`
}

func (self *Hub) CreateApp(args *CreateAppArgs) (*App, error) {
	if err := requireFields(map[string]string{
		"name":  args.Name,
		"owner": args.Owner,
	}); err != nil {
		return nil, err
	}
	visibility := args.Visibility
	if visibility == "" {
		visibility = VisibilityPublic
	}
	switch visibility {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate:
	default:
		return nil, fmt.Errorf("visibility %q: %w", visibility, ErrInvalidInput)
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	if _, err := self.store.User(args.Owner); err != nil {
		return nil, err
	}
	app := self.store.CreateApp(
		args.Name,
		args.Description,
		args.Owner,
		visibility,
		args.RealtimeEnabled == nil || *args.RealtimeEnabled,
	)
	// create emits no broadcast and no notification
	return app, nil
}

type DeleteAppArgs struct {
	AppId string `json:"appId"`
	Actor string `json:"actor"`
}

func (self *Hub) DeleteApp(args *DeleteAppArgs) error {
	if err := requireFields(map[string]string{
		"appId": args.AppId,
		"actor": args.Actor,
	}); err != nil {
		return err
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	// existence is the question here, so NotFound wins over Forbidden
	app, err := self.store.App(args.AppId)
	if err != nil {
		return err
	}
	if !CanPerform(self.store, args.Actor, app, ActionDelete) {
		return fmt.Errorf("delete app %s: %w", args.AppId, ErrForbidden)
	}
	if err := self.store.RemoveApp(args.AppId); err != nil {
		return err
	}
	self.dispatcher.BroadcastToTopic(args.AppId, &Event{
		Type:  EventAppDeleted,
		AppId: args.AppId,
	})
	return nil
}

type PostCommentArgs struct {
	AppId  string `json:"appId"`
	Author string `json:"author"`
	Text   string `json:"text"`
}

func (self *Hub) PostComment(args *PostCommentArgs) (*Comment, error) {
	if err := requireFields(map[string]string{
		"appId":  args.AppId,
		"author": args.Author,
		"text":   args.Text,
	}); err != nil {
		return nil, err
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	app, err := self.store.App(args.AppId)
	if err != nil {
		return nil, err
	}
	if !CanPerform(self.store, args.Author, app, ActionComment) {
		return nil, fmt.Errorf("comment on %s: %w", args.AppId, ErrForbidden)
	}
	comment, err := self.store.AddComment(args.AppId, args.Author, args.Text)
	if err != nil {
		return nil, err
	}
	self.dispatcher.BroadcastToTopic(args.AppId, &Event{
		Type:    EventNewComment,
		Comment: comment,
	})
	self.sink.Notify(self.resolver.Resolve(args.AppId, NotifyKindComment, comment))
	return comment, nil
}

type UpdateCommentArgs struct {
	CommentId string `json:"commentId"`
	Actor     string `json:"actor"`
	Text      string `json:"text"`
}

func (self *Hub) UpdateComment(args *UpdateCommentArgs) (*Comment, error) {
	if err := requireFields(map[string]string{
		"commentId": args.CommentId,
		"actor":     args.Actor,
		"text":      args.Text,
	}); err != nil {
		return nil, err
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	comment, err := self.store.Comment(args.CommentId)
	if err != nil {
		return nil, err
	}
	if err := self.authorizeModerate(comment, args.Actor); err != nil {
		return nil, err
	}
	comment, err = self.store.UpdateComment(args.CommentId, args.Text)
	if err != nil {
		return nil, err
	}
	self.dispatcher.BroadcastToTopic(comment.AppId, &Event{
		Type:    EventCommentUpdated,
		Comment: comment,
	})
	return comment, nil
}

type DeleteCommentArgs struct {
	CommentId string `json:"commentId"`
	Actor     string `json:"actor"`
}

func (self *Hub) DeleteComment(args *DeleteCommentArgs) error {
	if err := requireFields(map[string]string{
		"commentId": args.CommentId,
		"actor":     args.Actor,
	}); err != nil {
		return err
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	comment, err := self.store.Comment(args.CommentId)
	if err != nil {
		return err
	}
	if err := self.authorizeModerate(comment, args.Actor); err != nil {
		return err
	}
	if _, err := self.store.RemoveComment(args.CommentId); err != nil {
		return err
	}
	self.dispatcher.BroadcastToTopic(comment.AppId, &Event{
		Type:      EventCommentDeleted,
		AppId:     comment.AppId,
		CommentId: comment.Id,
	})
	return nil
}

// self-authorship always permits self-moderation, regardless of role
func (self *Hub) authorizeModerate(comment *Comment, actor string) error {
	if comment.Author == actor {
		return nil
	}
	app, err := self.store.App(comment.AppId)
	if err != nil {
		return err
	}
	if !CanPerform(self.store, actor, app, ActionModerateComments) {
		return fmt.Errorf("moderate comment %s: %w", comment.Id, ErrForbidden)
	}
	return nil
}

type AddCollaboratorArgs struct {
	AppId    string `json:"appId"`
	Username string `json:"username"`
	// defaults to read when omitted
	Role    Role   `json:"role,omitempty"`
	AddedBy string `json:"addedBy"`
}

func (self *Hub) AddCollaborator(args *AddCollaboratorArgs) (*Collaborator, error) {
	if err := requireFields(map[string]string{
		"appId":    args.AppId,
		"username": args.Username,
		"addedBy":  args.AddedBy,
	}); err != nil {
		return nil, err
	}
	role := args.Role
	if role == "" {
		role = RoleRead
	}
	if !ValidRole(role) {
		return nil, fmt.Errorf("role %q: %w", role, ErrInvalidInput)
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	app, err := self.store.App(args.AppId)
	if err != nil {
		return nil, err
	}
	if !CanPerform(self.store, args.AddedBy, app, ActionManageCollaborators) {
		return nil, fmt.Errorf("add collaborator on %s: %w", args.AppId, ErrForbidden)
	}
	if args.Username == app.Owner {
		// the owner's rights are implicit and never stored as a row
		return nil, fmt.Errorf("%s owns %s: %w", args.Username, args.AppId, ErrConflict)
	}
	collaborator, err := self.store.AddCollaborator(args.AppId, args.Username, role, args.AddedBy)
	if err != nil {
		return nil, err
	}
	self.dispatcher.BroadcastToTopic(args.AppId, &Event{
		Type:     EventCollaboratorAdded,
		AppId:    args.AppId,
		Username: collaborator.Username,
		Role:     collaborator.Role,
	})
	self.sink.Notify(self.resolver.Resolve(
		args.AppId,
		NotifyKindCollaborator,
		map[string]string{"username": collaborator.Username},
	))
	return collaborator, nil
}

type RemoveCollaboratorArgs struct {
	AppId     string `json:"appId"`
	Username  string `json:"username"`
	RemovedBy string `json:"removedBy"`
}

func (self *Hub) RemoveCollaborator(args *RemoveCollaboratorArgs) error {
	if err := requireFields(map[string]string{
		"appId":     args.AppId,
		"username":  args.Username,
		"removedBy": args.RemovedBy,
	}); err != nil {
		return err
	}

	self.mutex.Lock()
	defer self.mutex.Unlock()

	app, err := self.store.App(args.AppId)
	if err != nil {
		return err
	}
	if !CanPerform(self.store, args.RemovedBy, app, ActionManageCollaborators) {
		return fmt.Errorf("remove collaborator on %s: %w", args.AppId, ErrForbidden)
	}
	if err := self.store.RemoveCollaborator(args.AppId, args.Username); err != nil {
		return err
	}
	self.dispatcher.BroadcastToTopic(args.AppId, &Event{
		Type:     EventCollaboratorRemoved,
		AppId:    args.AppId,
		Username: args.Username,
	})
	return nil
}
