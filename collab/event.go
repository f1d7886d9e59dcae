package collab

import (
	"encoding/json"
	"time"
)

// domain event kinds carried on the realtime channel
const (
	EventConnected           = "connected"
	EventAuth                = "auth"
	EventSubscribed          = "subscribed"
	EventNewComment          = "new_comment"
	EventCommentUpdated      = "comment_updated"
	EventCommentDeleted      = "comment_deleted"
	EventCollaboratorAdded   = "collaborator_added"
	EventCollaboratorRemoved = "collaborator_removed"
	EventAppDeleted          = "app_deleted"
	EventAppUpdated          = "app_updated"
	EventFileUploaded        = "file_uploaded"
)

// one loose shape for every event on the wire.
// fields are present per kind, everything else is omitted.
type Event struct {
	Type      string         `json:"type"`
	AppId     string         `json:"appId,omitempty"`
	Comment   *Comment       `json:"comment,omitempty"`
	CommentId string         `json:"commentId,omitempty"`
	Username  string         `json:"username,omitempty"`
	Role      Role           `json:"role,omitempty"`
	Updates   map[string]any `json:"updates,omitempty"`
	Filename  string         `json:"filename,omitempty"`
	Status    string         `json:"status,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// events are marshaled once at emit time so every recipient sees the
// state snapshot taken when the mutation committed
func (self *Event) MarshalSnapshot() []byte {
	eventBytes, err := json.Marshal(self)
	if err != nil {
		// events are plain data, marshal cannot fail
		panic(err)
	}
	return eventBytes
}

func ConnectedEvent() *Event {
	return &Event{
		Type:      EventConnected,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
