package collab

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestSignupLogin(t *testing.T) {
	hub, _ := newTestHub(t)
	signupUser(t, hub, "ann", true)

	// correct credentials return a token bound to a stored session
	result, err := hub.Login(&LoginArgs{Username: "ann", Password: "x"})
	assert.Equal(t, err, nil)
	assert.NotEqual(t, result.Token, "")
	user, err := hub.SessionUser(result.Token)
	assert.Equal(t, err, nil)
	assert.Equal(t, user.Username, "ann")

	// a credential mismatch is not a NotFound
	_, err = hub.Login(&LoginArgs{Username: "ann", Password: "wrong"})
	assert.Equal(t, errors.Is(err, ErrUnauthorized), true)
	_, err = hub.Login(&LoginArgs{Username: "ghost", Password: "x"})
	assert.Equal(t, errors.Is(err, ErrUnauthorized), true)

	// duplicate username
	_, err = hub.Signup(&SignupArgs{Username: "ann", Email: "a@b", Password: "y"})
	assert.Equal(t, errors.Is(err, ErrConflict), true)

	// missing fields
	_, err = hub.Signup(&SignupArgs{Username: "bob"})
	assert.Equal(t, errors.Is(err, ErrInvalidInput), true)
	_, err = hub.Login(&LoginArgs{Username: "ann"})
	assert.Equal(t, errors.Is(err, ErrInvalidInput), true)
}

func TestCreateApp(t *testing.T) {
	hub, sink := newTestHub(t)
	signupUser(t, hub, "ann", true)

	app, err := hub.CreateApp(&CreateAppArgs{Name: "demo", Owner: "ann"})
	assert.Equal(t, err, nil)
	assert.Equal(t, IsAppId(app.Id), true)
	assert.Equal(t, app.Visibility, VisibilityPublic)
	assert.Equal(t, app.RealtimeEnabled, true)
	assert.Equal(t, app.Url, "freehost.io/app/demo")

	// create emits no notification
	assert.Equal(t, len(sink.records), 0)

	_, err = hub.CreateApp(&CreateAppArgs{Name: "demo", Owner: "ghost"})
	assert.Equal(t, errors.Is(err, ErrNotFound), true)

	_, err = hub.CreateApp(&CreateAppArgs{Name: "demo", Owner: "ann", Visibility: "internal"})
	assert.Equal(t, errors.Is(err, ErrInvalidInput), true)
}

func TestDeleteAppAuthorization(t *testing.T) {
	hub, _ := newTestHub(t)
	signupUser(t, hub, "ann", true)
	signupUser(t, hub, "bob", true)
	app := createApp(t, hub, "ann", VisibilityPublic)

	// deleting a nonexistent app reports NotFound, not Forbidden
	err := hub.DeleteApp(&DeleteAppArgs{AppId: "app-missing", Actor: "bob"})
	assert.Equal(t, errors.Is(err, ErrNotFound), true)

	// nobody but the owner, collaborators included
	_, err = hub.AddCollaborator(&AddCollaboratorArgs{AppId: app.Id, Username: "bob", Role: RoleAdmin, AddedBy: "ann"})
	assert.Equal(t, err, nil)
	err = hub.DeleteApp(&DeleteAppArgs{AppId: app.Id, Actor: "bob"})
	assert.Equal(t, errors.Is(err, ErrForbidden), true)

	err = hub.DeleteApp(&DeleteAppArgs{AppId: app.Id, Actor: "ann"})
	assert.Equal(t, err, nil)
	_, err = hub.App(app.Id)
	assert.Equal(t, errors.Is(err, ErrNotFound), true)
}

func TestDeleteAppBroadcast(t *testing.T) {
	// the app_deleted event reaches the app's subscribers and no others
	hub, _ := newTestHub(t)
	signupUser(t, hub, "ann", false)
	app := createApp(t, hub, "ann", VisibilityPublic)
	otherApp := createApp(t, hub, "ann", VisibilityPublic)

	subscribed := hub.Register()
	elsewhere := hub.Register()
	hub.Subscribe(subscribed.ConnectionId, app.Id)
	hub.Subscribe(elsewhere.ConnectionId, otherApp.Id)

	err := hub.DeleteApp(&DeleteAppArgs{AppId: app.Id, Actor: "ann"})
	assert.Equal(t, err, nil)

	event := receiveEvent(t, subscribed)
	assert.Equal(t, event.Type, EventAppDeleted)
	assert.Equal(t, event.AppId, app.Id)
	assertNoEvent(t, elsewhere)
}

func TestCollaboratorConflict(t *testing.T) {
	hub, sink := newTestHub(t)
	signupUser(t, hub, "ann", true)
	signupUser(t, hub, "bob", true)
	app := createApp(t, hub, "ann", VisibilityPublic)

	collaborator, err := hub.AddCollaborator(&AddCollaboratorArgs{
		AppId:    app.Id,
		Username: "bob",
		Role:     RoleWrite,
		AddedBy:  "ann",
	})
	assert.Equal(t, err, nil)
	assert.Equal(t, collaborator.Role, RoleWrite)
	assert.Equal(t, collaborator.AddedBy, "ann")

	// adding the same pair again fails Conflict
	sink.reset()
	_, err = hub.AddCollaborator(&AddCollaboratorArgs{
		AppId:    app.Id,
		Username: "bob",
		Role:     RoleWrite,
		AddedBy:  "ann",
	})
	assert.Equal(t, errors.Is(err, ErrConflict), true)
	// and the failed pipeline notified nobody
	assert.Equal(t, len(sink.records), 0)

	// the owner is never stored as a collaborator row
	_, err = hub.AddCollaborator(&AddCollaboratorArgs{AppId: app.Id, Username: "ann", AddedBy: "ann"})
	assert.Equal(t, errors.Is(err, ErrConflict), true)

	// only the owner manages collaborators
	_, err = hub.AddCollaborator(&AddCollaboratorArgs{AppId: app.Id, Username: "carol", AddedBy: "bob"})
	assert.Equal(t, errors.Is(err, ErrForbidden), true)
}

func TestCommentModeration(t *testing.T) {
	hub, _ := newTestHub(t)
	signupUser(t, hub, "ann", false)
	signupUser(t, hub, "bob", false)
	signupUser(t, hub, "carol", false)
	signupUser(t, hub, "dora", false)
	app := createApp(t, hub, "ann", VisibilityPublic)
	hub.AddCollaborator(&AddCollaboratorArgs{AppId: app.Id, Username: "bob", Role: RoleWrite, AddedBy: "ann"})
	hub.AddCollaborator(&AddCollaboratorArgs{AppId: app.Id, Username: "dora", Role: RoleAdmin, AddedBy: "ann"})

	comment, err := hub.PostComment(&PostCommentArgs{AppId: app.Id, Author: "carol", Text: "hi"})
	assert.Equal(t, err, nil)

	// a write-role collaborator cannot delete someone else's comment
	err = hub.DeleteComment(&DeleteCommentArgs{CommentId: comment.Id, Actor: "bob"})
	assert.Equal(t, errors.Is(err, ErrForbidden), true)

	// the author always can
	err = hub.DeleteComment(&DeleteCommentArgs{CommentId: comment.Id, Actor: "carol"})
	assert.Equal(t, err, nil)

	// an admin collaborator can moderate
	comment, err = hub.PostComment(&PostCommentArgs{AppId: app.Id, Author: "carol", Text: "again"})
	assert.Equal(t, err, nil)
	err = hub.DeleteComment(&DeleteCommentArgs{CommentId: comment.Id, Actor: "dora"})
	assert.Equal(t, err, nil)

	err = hub.DeleteComment(&DeleteCommentArgs{CommentId: comment.Id, Actor: "dora"})
	assert.Equal(t, errors.Is(err, ErrNotFound), true)
}

func TestCommentOnPrivateApp(t *testing.T) {
	hub, _ := newTestHub(t)
	signupUser(t, hub, "ann", false)
	signupUser(t, hub, "bob", false)
	app := createApp(t, hub, "ann", VisibilityPrivate)

	_, err := hub.PostComment(&PostCommentArgs{AppId: app.Id, Author: "bob", Text: "hi"})
	assert.Equal(t, errors.Is(err, ErrForbidden), true)

	hub.AddCollaborator(&AddCollaboratorArgs{AppId: app.Id, Username: "bob", Role: RoleRead, AddedBy: "ann"})
	_, err = hub.PostComment(&PostCommentArgs{AppId: app.Id, Author: "bob", Text: "hi"})
	assert.Equal(t, err, nil)
}

func TestCommentEventsAndNotifications(t *testing.T) {
	hub, sink := newTestHub(t)
	signupUser(t, hub, "ann", true)
	signupUser(t, hub, "bob", false)
	signupUser(t, hub, "carol", true)
	app := createApp(t, hub, "ann", VisibilityPublic)
	hub.AddCollaborator(&AddCollaboratorArgs{AppId: app.Id, Username: "bob", Role: RoleRead, AddedBy: "ann"})
	hub.AddCollaborator(&AddCollaboratorArgs{AppId: app.Id, Username: "carol", Role: RoleRead, AddedBy: "ann"})

	conn := hub.Register()
	hub.Subscribe(conn.ConnectionId, app.Id)
	sink.reset()

	comment, err := hub.PostComment(&PostCommentArgs{AppId: app.Id, Author: "eve", Text: "hi"})
	assert.Equal(t, err, nil)

	event := receiveEvent(t, conn)
	assert.Equal(t, event.Type, EventNewComment)
	assert.Equal(t, event.Comment.Id, comment.Id)
	assert.Equal(t, event.Comment.Text, "hi")

	// owner and collaborators, filtered by preference; bob opted out
	assert.Equal(t, len(sink.records), 2)
	recipients := map[string]bool{}
	for _, record := range sink.records {
		assert.Equal(t, record.EventKind, NotifyKindComment)
		assert.Equal(t, record.AppId, app.Id)
		recipients[record.RecipientUser] = true
	}
	assert.Equal(t, recipients, map[string]bool{"ann": true, "carol": true})

	updated, err := hub.UpdateComment(&UpdateCommentArgs{CommentId: comment.Id, Actor: "eve", Text: "bye"})
	assert.Equal(t, err, nil)
	event = receiveEvent(t, conn)
	assert.Equal(t, event.Type, EventCommentUpdated)
	assert.Equal(t, event.Comment.Text, "bye")
	assert.Equal(t, event.Comment.Edited, true)
	assert.Equal(t, updated.Edited, true)

	err = hub.DeleteComment(&DeleteCommentArgs{CommentId: comment.Id, Actor: "eve"})
	assert.Equal(t, err, nil)
	event = receiveEvent(t, conn)
	assert.Equal(t, event.Type, EventCommentDeleted)
	assert.Equal(t, event.CommentId, comment.Id)
}

func TestFailedMutationIsSilent(t *testing.T) {
	// no broadcast and no notification on any pipeline failure
	hub, sink := newTestHub(t)
	signupUser(t, hub, "ann", true)
	app := createApp(t, hub, "ann", VisibilityPrivate)

	conn := hub.Register()
	hub.Subscribe(conn.ConnectionId, app.Id)
	sink.reset()

	_, err := hub.PostComment(&PostCommentArgs{AppId: app.Id, Author: "eve", Text: "hi"})
	assert.Equal(t, errors.Is(err, ErrForbidden), true)
	_, err = hub.PostComment(&PostCommentArgs{AppId: app.Id, Author: "eve"})
	assert.Equal(t, errors.Is(err, ErrInvalidInput), true)

	assertNoEvent(t, conn)
	assert.Equal(t, len(sink.records), 0)
}

func TestRemoveCollaborator(t *testing.T) {
	hub, _ := newTestHub(t)
	signupUser(t, hub, "ann", false)
	signupUser(t, hub, "bob", false)
	app := createApp(t, hub, "ann", VisibilityPublic)
	hub.AddCollaborator(&AddCollaboratorArgs{AppId: app.Id, Username: "bob", Role: RoleWrite, AddedBy: "ann"})

	conn := hub.Register()
	hub.Subscribe(conn.ConnectionId, app.Id)

	err := hub.RemoveCollaborator(&RemoveCollaboratorArgs{AppId: app.Id, Username: "bob", RemovedBy: "bob"})
	assert.Equal(t, errors.Is(err, ErrForbidden), true)

	err = hub.RemoveCollaborator(&RemoveCollaboratorArgs{AppId: app.Id, Username: "bob", RemovedBy: "ann"})
	assert.Equal(t, err, nil)
	assert.Equal(t, len(hub.Collaborators(app.Id)), 0)

	event := receiveEvent(t, conn)
	assert.Equal(t, event.Type, EventCollaboratorRemoved)
	assert.Equal(t, event.Username, "bob")
}
