package matchmaking

import "fmt"

// Response actions used in outbound topics.
const (
	ActionLogin       = "login"
	ActionLogout      = "logout"
	ActionCreate      = "create"
	ActionClose       = "close"
	ActionInvite      = "invite"
	ActionJoin        = "join"
	ActionChooseHero  = "choose_hero"
	ActionStartQueue  = "start_queue"
	ActionCancelQueue = "cancel_queue"
	ActionPreStart    = "prestart"
	ActionStart       = "start"
	ActionRoster      = "roster"
	ActionMaster      = "master"
)

// RoomTopic is room/<key>/res/<action>.
func RoomTopic(key, action string) string {
	return fmt.Sprintf("room/%s/res/%s", key, action)
}

// MemberTopic is member/<id>/res/<action>.
func MemberTopic(id, action string) string {
	return fmt.Sprintf("member/%s/res/%s", id, action)
}

type resultMsg struct {
	Msg string `json:"msg"`
}

var (
	okMsg        = resultMsg{Msg: "ok"}
	failMsg      = resultMsg{Msg: "fail"}
	prestartMsg  = resultMsg{Msg: "prestart"}
	stopQueueMsg = resultMsg{Msg: "stop queue"}
)

func result(ok bool) resultMsg {
	if ok {
		return okMsg
	}
	return failMsg
}

type inviteMsg struct {
	RoomKey  string `json:"rid"`
	TargetID string `json:"cid"`
}

type joinMsg struct {
	RoomKey  string `json:"rid"`
	TargetID string `json:"cid"`
	Accept   bool   `json:"accept"`
}

type heroMsg struct {
	ID   string `json:"id"`
	Hero string `json:"hero"`
}

type startMsg struct {
	Room   string `json:"room"`
	Msg    string `json:"msg"`
	Server string `json:"server"`
	Game   uint64 `json:"game"`
}

type masterMsg struct {
	Room   string `json:"room"`
	Master string `json:"master"`
}
