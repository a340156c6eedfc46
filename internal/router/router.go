// Package router turns inbound bus traffic into matchmaking commands.
package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/jason-s-yu/erps/internal/matchmaking"
	"github.com/jason-s-yu/erps/internal/models"
)

var (
	ErrUnknownTopic = errors.New("unknown topic")
	ErrBadPayload   = errors.New("bad payload")
	ErrForeignID    = errors.New("command names another member")
)

// Inbound actions, the last level of /member/<id>/<action>.
const (
	ActionLogin       = "login"
	ActionLogout      = "logout"
	ActionCreate      = "create"
	ActionClose       = "close"
	ActionStartQueue  = "start_queue"
	ActionCancelQueue = "cancel_queue"
	ActionInvite      = "invite"
	ActionJoin        = "join"
	ActionChooseHero  = "choose_hero"
	ActionPreStart    = "prestart"
	ActionReset       = "reset"
)

var memberActions = []string{
	ActionLogin, ActionLogout, ActionCreate, ActionClose, ActionStartQueue,
	ActionCancelQueue, ActionInvite, ActionJoin, ActionChooseHero, ActionPreStart,
}

var topicRE = regexp.MustCompile(`^/(member|server)/([^/]+)/([a-z_]+)$`)

// Subscriptions lists every pattern the orchestrator listens on.
func Subscriptions() []string {
	subs := make([]string, 0, len(memberActions)+1)
	for _, a := range memberActions {
		subs = append(subs, MemberTopic("+", a))
	}
	return append(subs, "/server/+/"+ActionReset)
}

// MemberTopic is the inbound topic a member publishes an action on.
func MemberTopic(id, action string) string {
	return fmt.Sprintf("/member/%s/%s", id, action)
}

type loginPayload struct {
	Name  string `json:"name"`
	Hero  string `json:"hero"`
	Skill int    `json:"skill"`
	Rank  int    `json:"rank"`
}

type idPayload struct {
	ID string `json:"id"`
}

type invitePayload struct {
	RoomKey  string `json:"rid"`
	TargetID string `json:"cid"`
}

type heroPayload struct {
	ID   string `json:"id"`
	Hero string `json:"hero"`
}

type queuePayload struct {
	Room   string `json:"room"`
	Action string `json:"action,omitempty"`
}

type preStartPayload struct {
	Room   string `json:"room"`
	ID     string `json:"id"`
	Accept bool   `json:"accept"`
}

// Parse maps one inbound message to a command. Ids missing from the payload
// default to the id in the topic.
func Parse(topic string, payload []byte) (matchmaking.Command, error) {
	m := topicRE.FindStringSubmatch(topic)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	scope, id, action := m[1], m[2], m[3]

	if scope == "server" {
		if action != ActionReset {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
		}
		return matchmaking.Reset{}, nil
	}

	switch action {
	case ActionLogin:
		var p loginPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return matchmaking.Login{User: models.User{ID: id, Name: p.Name, Hero: p.Hero, Skill: p.Skill, Rank: p.Rank}}, nil

	case ActionLogout:
		return matchmaking.Logout{UserID: id}, nil

	case ActionCreate, ActionClose:
		var p idPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		key := or(p.ID, id)
		if action == ActionCreate {
			return matchmaking.CreateRoom{OwnerID: key}, nil
		}
		return matchmaking.CloseRoom{RoomKey: key}, nil

	case ActionInvite:
		var p invitePayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		if p.TargetID == "" {
			return nil, fmt.Errorf("%w: invite without cid", ErrBadPayload)
		}
		return matchmaking.Invite{RoomKey: or(p.RoomKey, id), TargetID: p.TargetID}, nil

	case ActionJoin:
		var p invitePayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		if p.RoomKey == "" {
			return nil, fmt.Errorf("%w: join without rid", ErrBadPayload)
		}
		return matchmaking.Join{RoomKey: p.RoomKey, TargetID: or(p.TargetID, id)}, nil

	case ActionChooseHero:
		var p heroPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		return matchmaking.ChooseHero{UserID: or(p.ID, id), Hero: p.Hero}, nil

	case ActionStartQueue, ActionCancelQueue:
		var p queuePayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		if action == ActionStartQueue {
			return matchmaking.StartQueue{RoomKey: or(p.Room, id)}, nil
		}
		return matchmaking.CancelQueue{RoomKey: or(p.Room, id)}, nil

	case ActionPreStart:
		var p preStartPayload
		if err := decode(payload, &p); err != nil {
			return nil, err
		}
		if p.Room == "" {
			return nil, fmt.Errorf("%w: prestart without room", ErrBadPayload)
		}
		return matchmaking.PreStart{RoomKey: p.Room, UserID: or(p.ID, id), Accept: p.Accept}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
}

// ActsFor reports whether cmd only speaks for member: it may name other users
// as invite targets or rooms to join, but every user it acts as and every room
// it drives must be member's own.
func ActsFor(member string, cmd matchmaking.Command) error {
	var self string
	switch c := cmd.(type) {
	case matchmaking.Login:
		self = c.User.ID
	case matchmaking.Logout:
		self = c.UserID
	case matchmaking.CreateRoom:
		self = c.OwnerID
	case matchmaking.CloseRoom:
		self = c.RoomKey
	case matchmaking.Invite:
		self = c.RoomKey
	case matchmaking.Join:
		self = c.TargetID
	case matchmaking.ChooseHero:
		self = c.UserID
	case matchmaking.StartQueue:
		self = c.RoomKey
	case matchmaking.CancelQueue:
		self = c.RoomKey
	case matchmaking.PreStart:
		self = c.UserID
	default:
		return fmt.Errorf("%w: %T", ErrForeignID, cmd)
	}
	if self != member {
		return fmt.Errorf("%w: %q acting as %q", ErrForeignID, member, self)
	}
	return nil
}

func decode(payload []byte, v any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
