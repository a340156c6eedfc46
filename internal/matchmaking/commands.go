package matchmaking

import "github.com/jason-s-yu/erps/internal/models"

// Command is anything the dispatcher's inbox accepts. The set is closed; the
// router produces these from bus topics.
type Command interface{ isCommand() }

type Login struct {
	User models.User
}

type Logout struct {
	UserID string
}

type CreateRoom struct {
	OwnerID string
}

type CloseRoom struct {
	RoomKey string
}

type Invite struct {
	RoomKey  string
	TargetID string
}

type Join struct {
	RoomKey  string
	TargetID string
}

type ChooseHero struct {
	UserID string
	Hero   string
}

type StartQueue struct {
	RoomKey string
}

type CancelQueue struct {
	RoomKey string
}

type PreStart struct {
	RoomKey string
	UserID  string
	Accept  bool
}

type Reset struct{}

// Snapshot asks the worker for a read-only view of its registries. Reply must
// be buffered; the worker never blocks on it.
type Snapshot struct {
	Reply chan Stats
}

func (Login) isCommand()       {}
func (Logout) isCommand()      {}
func (CreateRoom) isCommand()  {}
func (CloseRoom) isCommand()   {}
func (Invite) isCommand()      {}
func (Join) isCommand()        {}
func (ChooseHero) isCommand()  {}
func (StartQueue) isCommand()  {}
func (CancelQueue) isCommand() {}
func (PreStart) isCommand()    {}
func (Reset) isCommand()       {}
func (Snapshot) isCommand()    {}
