package collab

import (
	"github.com/golang/glog"
)

// computes who gets notified about an app event. Delivery (email, push)
// belongs to an external collaborator behind `NotificationSink`.

const (
	NotifyKindComment      = "comment"
	NotifyKindCollaborator = "collaborator"
)

type NotificationRecord struct {
	RecipientUser  string `json:"recipientUser"`
	RecipientEmail string `json:"recipientEmail"`
	EventKind      string `json:"eventKind"`
	AppId          string `json:"appId"`
	AppName        string `json:"appName"`
	Payload        any    `json:"payload"`
}

type NotificationSink interface {
	Notify(records []NotificationRecord)
}

type Resolver struct {
	store *Store
}

func NewResolver(store *Store) *Resolver {
	return &Resolver{
		store: store,
	}
}

// recipient set = {owner} + collaborators, each filtered by the user's
// notify preference. A missing app yields an empty list, never an error.
// pure computation over store state.
func (self *Resolver) Resolve(appId string, eventKind string, payload any) []NotificationRecord {
	records := []NotificationRecord{}
	app, err := self.store.App(appId)
	if err != nil {
		return records
	}
	appendRecord := func(username string) {
		user, err := self.store.User(username)
		if err != nil || !user.NotifyOnEvents {
			return
		}
		records = append(records, NotificationRecord{
			RecipientUser:  user.Username,
			RecipientEmail: user.Email,
			EventKind:      eventKind,
			AppId:          app.Id,
			AppName:        app.Name,
			Payload:        payload,
		})
	}
	appendRecord(app.Owner)
	for _, collaborator := range self.store.Collaborators(appId) {
		appendRecord(collaborator.Username)
	}
	return records
}

// the default sink prints what the mailer would send
type LogNotificationSink struct {
}

func NewLogNotificationSink() *LogNotificationSink {
	return &LogNotificationSink{}
}

func (self *LogNotificationSink) Notify(records []NotificationRecord) {
	for _, record := range records {
		glog.Infof("[notify]to %s <%s> %s for app %q\n", record.RecipientUser, record.RecipientEmail, record.EventKind, record.AppName)
	}
}
