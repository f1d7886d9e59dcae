package collab

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

// id for records minted by this process
// ulids are ordered by create time, which we rely on so that
// ids minted from the same hub can be ordered and never collide

// comparable
type Id [16]byte

func NewId() Id {
	return Id(ulid.Make())
}

func ParseId(idStr string) (Id, error) {
	u, err := ulid.ParseStrict(idStr)
	if err != nil {
		return Id{}, err
	}
	return Id(u), nil
}

func IdFromBytes(idBytes []byte) (Id, error) {
	if len(idBytes) != 16 {
		return Id{}, errors.New("Id must be 16 bytes")
	}
	return Id(idBytes), nil
}

func (self Id) Bytes() []byte {
	return self[0:16]
}

func (self Id) String() string {
	return ulid.ULID(self).String()
}

func (self Id) LessThan(b Id) bool {
	return ulid.ULID(self).Compare(ulid.ULID(b)) < 0
}

func (self Id) MarshalText() ([]byte, error) {
	return []byte(self.String()), nil
}

func (self *Id) UnmarshalText(src []byte) error {
	id, err := ParseId(string(src))
	if err != nil {
		return err
	}
	*self = id
	return nil
}

const appIdPrefix = "app-"

// app ids are `app-<ulid>` on the wire and in the store
func NewAppId() string {
	return appIdPrefix + NewId().String()
}

func IsAppId(appId string) bool {
	if !strings.HasPrefix(appId, appIdPrefix) {
		return false
	}
	_, err := ParseId(appId[len(appIdPrefix):])
	return err == nil
}

// comment ids are a bare ulid
func NewCommentId() string {
	return NewId().String()
}

func (self Id) GoString() string {
	return fmt.Sprintf("Id(%s)", self.String())
}
