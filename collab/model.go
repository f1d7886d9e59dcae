package collab

import (
	"fmt"
	"time"
)

type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// the current surface only distinguishes public from non-public.
// unlisted behaves as private until the product says otherwise.
func (self Visibility) IsPublic() bool {
	return self == VisibilityPublic
}

type Role string

const (
	RoleRead  Role = "read"
	RoleWrite Role = "write"
	RoleAdmin Role = "admin"
)

func ValidRole(role Role) bool {
	switch role {
	case RoleRead, RoleWrite, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   []byte    `json:"-"`
	NotifyOnEvents bool      `json:"notifyOnEvents"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

type App struct {
	Id              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Owner           string     `json:"owner"`
	Visibility      Visibility `json:"visibility"`
	RealtimeEnabled bool       `json:"realtimeEnabled"`
	Url             string     `json:"url"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func hostedUrl(name string) string {
	return fmt.Sprintf("freehost.io/app/%s", name)
}

type Comment struct {
	Id        string     `json:"id"`
	AppId     string     `json:"appId"`
	Author    string     `json:"author"`
	Text      string     `json:"text"`
	Timestamp time.Time  `json:"timestamp"`
	Edited    bool       `json:"edited"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
}

type Collaborator struct {
	AppId    string    `json:"appId"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
	AddedBy  string    `json:"addedBy"`
	AddedAt  time.Time `json:"addedAt"`
}
