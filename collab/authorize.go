package collab

// the authorization policy for app-scoped actions.
// pure functions over store state. Callable any number of times with
// identical results for identical store state, and never mutates.

type Action string

const (
	ActionView                Action = "view"
	ActionEdit                Action = "edit"
	ActionDelete              Action = "delete"
	ActionManageCollaborators Action = "manageCollaborators"
	ActionComment             Action = "comment"
	// edit or delete a comment authored by someone else
	ActionModerateComments Action = "moderateComments"
)

// rules in priority order:
// 1. the owner can do everything
// 2. manageCollaborators and delete are owner-only
// 3. moderateComments requires the admin role
// 4. comment is open on public apps, collaborator-only (any role) otherwise
// 5. deny
//
// self-authorship of a comment is checked by the pipeline before the
// moderate rule, so an author never needs a role to edit their own comment.
func CanPerform(store *Store, actor string, app *App, action Action) bool {
	if app.Owner == actor {
		return true
	}
	switch action {
	case ActionManageCollaborators, ActionDelete:
		return false
	case ActionModerateComments:
		if collaborator, ok := store.Collaborator(app.Id, actor); ok {
			return collaborator.Role == RoleAdmin
		}
		return false
	case ActionComment:
		if app.Visibility.IsPublic() {
			return true
		}
		return store.IsCollaborator(app.Id, actor)
	case ActionView:
		if app.Visibility.IsPublic() {
			return true
		}
		return store.IsCollaborator(app.Id, actor)
	}
	return false
}
