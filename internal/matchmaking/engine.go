package matchmaking

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/jason-s-yu/erps/internal/models"
	"github.com/sirupsen/logrus"
)

// Notifier receives every outbound message the engine produces.
type Notifier interface {
	Notify(topic string, payload []byte)
}

// Launcher starts a dedicated game server listening on port.
type Launcher interface {
	Launch(ctx context.Context, port int) error
}

// RosterBuilder resolves display names for a launched session.
type RosterBuilder interface {
	BuildRoster(ctx context.Context, session models.GameSession) models.Roster
}

// Recorder persists launched sessions for later processing.
type Recorder interface {
	RecordLaunch(ctx context.Context, session models.GameSession) error
}

// Options wires the engine's collaborators. Only Notifier is required.
type Options struct {
	Notifier Notifier
	Launcher Launcher
	Roster   RosterBuilder
	Recorder Recorder
	Logger   logrus.FieldLogger
}

type announcement struct {
	due    time.Time
	gameID uint64
}

// Engine owns every matchmaking registry. It is not safe for concurrent use;
// the Dispatcher is its only caller in production.
type Engine struct {
	cfg      Config
	log      logrus.FieldLogger
	notifier Notifier
	launcher Launcher
	roster   RosterBuilder
	recorder Recorder

	users    map[string]*models.User
	rooms    map[uint32]*models.Room
	roomKeys map[string]uint32
	queue    []uint32

	teams      map[uint64]*models.Team
	readyTeams []uint64

	matches map[uint64]*models.Match
	pending []uint64

	active        map[uint64]*models.GameSession
	announcements []announcement

	lastRoomID  uint32
	lastTeamID  uint64
	lastMatchID uint64
	ports       *PortPool
	gameIDs     GameIDs
}

func NewEngine(cfg Config, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	e := &Engine{
		cfg:      cfg,
		log:      logger,
		notifier: opts.Notifier,
		launcher: opts.Launcher,
		roster:   opts.Roster,
		recorder: opts.Recorder,
		ports:    NewPortPool(cfg.PortFloor, cfg.PortCeiling),
	}
	e.clear()
	return e
}

func (e *Engine) clear() {
	e.users = make(map[string]*models.User)
	e.rooms = make(map[uint32]*models.Room)
	e.roomKeys = make(map[string]uint32)
	e.queue = nil
	e.teams = make(map[uint64]*models.Team)
	e.readyTeams = nil
	e.matches = make(map[uint64]*models.Match)
	e.pending = nil
	e.active = make(map[uint64]*models.GameSession)
	e.announcements = nil
}

// Handle applies a single command.
func (e *Engine) Handle(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case Login:
		e.login(c)
	case Logout:
		e.logout(c)
	case CreateRoom:
		e.createRoom(c)
	case CloseRoom:
		e.closeRoom(c)
	case Invite:
		e.invite(c)
	case Join:
		e.join(c)
	case ChooseHero:
		e.chooseHero(c)
	case StartQueue:
		e.startQueue(c)
	case CancelQueue:
		e.cancelQueue(c)
	case PreStart:
		e.preStart(c)
	case Reset:
		e.clear()
		e.log.Info("matchmaking state reset")
	case Snapshot:
		select {
		case c.Reply <- e.Stats():
		default:
			e.log.Warn("snapshot reply dropped")
		}
	default:
		e.log.Warnf("unhandled command %T", cmd)
	}
}

func (e *Engine) publish(topic string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		e.log.WithError(err).WithField("topic", topic).Error("failed to encode notification")
		return
	}
	e.notifier.Notify(topic, data)
}

func (e *Engine) login(c Login) {
	ok := c.User.ID != ""
	if ok {
		_, exists := e.users[c.User.ID]
		ok = !exists
	}
	if ok {
		u := c.User
		u.RoomID = 0
		e.users[u.ID] = &u
		e.log.WithField("user", u.ID).Info("user logged in")
	}
	e.publish(MemberTopic(c.User.ID, ActionLogin), result(ok))
}

func (e *Engine) logout(c Logout) {
	u, ok := e.users[c.UserID]
	if ok {
		e.leaveRoom(u)
		delete(e.users, c.UserID)
		e.log.WithField("user", c.UserID).Info("user logged out")
	}
	e.publish(MemberTopic(c.UserID, ActionLogout), result(ok))
}

// leaveRoom takes u out of its room. A queued room leaves the queue first so
// no team ever holds a stale member count; a user leaving a match that waits
// for confirmations counts as a decline.
func (e *Engine) leaveRoom(u *models.User) {
	if !u.InRoom() {
		return
	}
	r := e.rooms[u.RoomID]
	u.RoomID = 0
	if r == nil {
		return
	}
	switch r.Status {
	case models.RoomQueued:
		e.dequeue(r)
	case models.RoomLocked:
		if m := e.matchOfRoom(r); m != nil {
			m.RecordConfirmation(u.ID, false)
		}
	}
	r.RemoveUser(u.ID)
	if !r.IsEmpty() && r.Master == u.ID {
		e.handOver(r)
	}
	if r.IsEmpty() && r.Status != models.RoomLocked {
		e.destroyRoom(r)
	}
}

// handOver makes the first remaining member master and re-keys the room to
// them. The old key is told where the room went.
func (e *Engine) handOver(r *models.Room) {
	old := r.Key
	r.Master = r.Members[0]
	r.Key = r.Master
	if e.roomKeys[old] == r.ID {
		delete(e.roomKeys, old)
	}
	e.roomKeys[r.Key] = r.ID
	if m := e.matchOfRoom(r); m != nil {
		m.UpdateNames(e.matchRooms(m))
	}
	e.log.WithFields(logrus.Fields{"room_id": r.ID, "from": old, "to": r.Key}).Info("room handed over")
	e.publish(RoomTopic(old, ActionMaster), masterMsg{Room: r.Key, Master: r.Master})
}

func (e *Engine) createRoom(c CreateRoom) {
	u := e.users[c.OwnerID]
	_, taken := e.roomKeys[c.OwnerID]
	ok := u != nil && !taken && !u.InRoom()
	if ok {
		e.lastRoomID++
		r := models.NewRoom(e.lastRoomID, u.ID)
		r.AddUser(u)
		u.RoomID = r.ID
		e.rooms[r.ID] = r
		e.roomKeys[r.Key] = r.ID
		e.log.WithFields(logrus.Fields{"room": r.Key, "room_id": r.ID}).Info("room created")
	}
	e.publish(RoomTopic(c.OwnerID, ActionCreate), result(ok))
}

func (e *Engine) closeRoom(c CloseRoom) {
	r := e.roomByKey(c.RoomKey)
	ok := r != nil && r.Status != models.RoomLocked
	if ok {
		e.destroyRoom(r)
		e.log.WithField("room", c.RoomKey).Info("room closed")
	}
	e.publish(RoomTopic(c.RoomKey, ActionClose), result(ok))
}

func (e *Engine) invite(c Invite) {
	if _, ok := e.users[c.TargetID]; !ok {
		e.log.WithField("target", c.TargetID).Debug("invite to unknown user dropped")
		return
	}
	e.publish(RoomTopic(c.TargetID, ActionInvite), inviteMsg{RoomKey: c.RoomKey, TargetID: c.TargetID})
}

func (e *Engine) join(c Join) {
	u := e.users[c.TargetID]
	r := e.roomByKey(c.RoomKey)
	ok := u != nil && r != nil
	switch {
	case !ok:
	case u.RoomID == r.ID:
		// already a member
	case u.InRoom(), r.Status != models.RoomIdle, r.Size() >= e.cfg.TeamSize:
		ok = false
	default:
		r.AddUser(u)
		u.RoomID = r.ID
		e.log.WithFields(logrus.Fields{"room": r.Key, "user": u.ID}).Info("user joined room")
	}
	e.publish(RoomTopic(c.TargetID, ActionJoin), joinMsg{RoomKey: c.RoomKey, TargetID: c.TargetID, Accept: ok})
}

func (e *Engine) chooseHero(c ChooseHero) {
	u, ok := e.users[c.UserID]
	if !ok {
		e.publish(MemberTopic(c.UserID, ActionChooseHero), failMsg)
		return
	}
	u.Hero = c.Hero
	e.publish(MemberTopic(c.UserID, ActionChooseHero), heroMsg{ID: u.ID, Hero: u.Hero})
}

func (e *Engine) startQueue(c StartQueue) {
	r := e.roomByKey(c.RoomKey)
	ok := r != nil && r.Status == models.RoomIdle && !r.IsEmpty() && r.Size() <= e.cfg.TeamSize
	if ok {
		r.Status = models.RoomQueued
		e.queue = append(e.queue, r.ID)
		e.log.WithField("room", r.Key).Info("room queued")
	}
	e.publish(RoomTopic(c.RoomKey, ActionStartQueue), result(ok))
}

func (e *Engine) cancelQueue(c CancelQueue) {
	r := e.roomByKey(c.RoomKey)
	ok := r != nil && r.Status == models.RoomQueued
	if ok {
		e.dequeue(r)
		e.log.WithField("room", r.Key).Info("room left queue")
	}
	e.publish(RoomTopic(c.RoomKey, ActionCancelQueue), result(ok))
}

func (e *Engine) preStart(c PreStart) {
	r := e.roomByKey(c.RoomKey)
	if r == nil || !r.HasUser(c.UserID) {
		return
	}
	t := e.teams[r.TeamID]
	if t == nil || t.Status != models.TeamPendingConfirm {
		return
	}
	m := e.matches[t.MatchID]
	if m == nil {
		return
	}
	if m.RecordConfirmation(c.UserID, c.Accept) {
		e.log.WithFields(logrus.Fields{"match": m.ID, "user": c.UserID, "accept": c.Accept}).Info("prestart answer recorded")
	}
}

func (e *Engine) roomByKey(key string) *models.Room {
	id, ok := e.roomKeys[key]
	if !ok {
		return nil
	}
	return e.rooms[id]
}

func (e *Engine) matchOfRoom(r *models.Room) *models.Match {
	t := e.teams[r.TeamID]
	if t == nil {
		return nil
	}
	return e.matches[t.MatchID]
}

// dequeue returns a queued room to Idle. If the room was already sealed into
// a team that no match claimed yet, the team is dissolved and its other rooms
// go back to the head of the queue in their original order.
func (e *Engine) dequeue(r *models.Room) {
	if t := e.teams[r.TeamID]; t != nil && t.Status == models.TeamForming {
		e.dissolveTeam(t)
	}
	e.removeFromQueue(r.ID)
	r.Status = models.RoomIdle
	r.TeamID = 0
}

func (e *Engine) dissolveTeam(t *models.Team) {
	e.readyTeams = slices.DeleteFunc(e.readyTeams, func(id uint64) bool { return id == t.ID })
	delete(e.teams, t.ID)
	requeue := make([]uint32, 0, len(t.Rooms))
	for _, rid := range t.Rooms {
		if r := e.rooms[rid]; r != nil {
			r.TeamID = 0
			requeue = append(requeue, rid)
		}
	}
	e.queue = append(requeue, e.queue...)
}

func (e *Engine) removeFromQueue(id uint32) {
	e.queue = slices.DeleteFunc(e.queue, func(q uint32) bool { return q == id })
}

// destroyRoom removes a room from every registry and frees its members.
func (e *Engine) destroyRoom(r *models.Room) {
	if r.Status == models.RoomQueued {
		e.dequeue(r)
	}
	for _, id := range r.Members {
		if u := e.users[id]; u != nil && u.RoomID == r.ID {
			u.RoomID = 0
		}
	}
	delete(e.rooms, r.ID)
	if e.roomKeys[r.Key] == r.ID {
		delete(e.roomKeys, r.Key)
	}
}
