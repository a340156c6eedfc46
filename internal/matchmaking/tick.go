package matchmaking

import (
	"context"
	"net"
	"slices"
	"strconv"
	"time"

	"github.com/jason-s-yu/erps/internal/models"
	"github.com/sirupsen/logrus"
)

// Tick runs one matchmaking pass: pack rooms into teams, teams into matches,
// resolve pre-start handshakes, then flush roster announcements that are due.
func (e *Engine) Tick(ctx context.Context, now time.Time) {
	e.packRooms()
	e.packTeams(now)
	e.resolvePrestart(ctx, now)
	e.flushAnnouncements(ctx, now)
}

// packRooms greedily fills teams from the queue. Sealed rooms leave the queue
// so a room can never be packed twice; rooms that do not fit wait for the next
// tick. A partial team is dropped at the end of the pass.
func (e *Engine) packRooms() {
	if len(e.queue) < e.cfg.MatchSize {
		return
	}
	team := models.NewTeam(e.cfg.TeamSize)
	for _, id := range e.packingOrder() {
		r := e.rooms[id]
		if r == nil || r.Status != models.RoomQueued || r.TeamID != 0 {
			continue
		}
		if !team.Fits(r) {
			continue
		}
		if err := team.AddRoom(r); err != nil {
			continue
		}
		if team.Full() {
			e.sealTeam(team)
			team = models.NewTeam(e.cfg.TeamSize)
		}
	}
}

func (e *Engine) packingOrder() []uint32 {
	order := slices.Clone(e.queue)
	if e.cfg.PackOrder == PackByRank {
		slices.SortStableFunc(order, func(a, b uint32) int {
			ra, rb := e.rooms[a], e.rooms[b]
			if ra == nil || rb == nil {
				return 0
			}
			switch {
			case ra.AvgRank < rb.AvgRank:
				return -1
			case ra.AvgRank > rb.AvgRank:
				return 1
			}
			return 0
		})
	}
	return order
}

func (e *Engine) sealTeam(t *models.Team) {
	e.lastTeamID++
	t.ID = e.lastTeamID
	e.teams[t.ID] = t
	e.readyTeams = append(e.readyTeams, t.ID)
	for _, rid := range t.Rooms {
		e.rooms[rid].TeamID = t.ID
		e.removeFromQueue(rid)
	}
	e.log.WithFields(logrus.Fields{"team": t.ID, "rooms": len(t.Rooms)}).Debug("team sealed")
}

// packTeams groups ready teams into matches and opens their pre-start window.
func (e *Engine) packTeams(now time.Time) {
	if len(e.readyTeams) < e.cfg.MatchSize {
		return
	}
	var m *models.Match
	for _, tid := range slices.Clone(e.readyTeams) {
		t := e.teams[tid]
		if t == nil || t.Status != models.TeamForming {
			continue
		}
		if m == nil {
			m = models.NewMatch(0)
		}
		m.AddTeam(tid)
		if len(m.Teams) == e.cfg.MatchSize {
			e.openMatch(m, now)
			m = nil
		}
	}
}

func (e *Engine) openMatch(m *models.Match, now time.Time) {
	e.lastMatchID++
	m.ID = e.lastMatchID

	var users []string
	var rooms []*models.Room
	for _, tid := range m.Teams {
		t := e.teams[tid]
		teamRooms := e.roomsOf(t)
		users = append(users, t.LockForConfirmation(m.ID, teamRooms)...)
		rooms = append(rooms, teamRooms...)
		e.readyTeams = slices.DeleteFunc(e.readyTeams, func(id uint64) bool { return id == tid })
	}
	m.Open(now, users)
	m.UpdateNames(rooms)
	e.matches[m.ID] = m
	e.pending = append(e.pending, m.ID)

	for _, name := range m.RoomNames {
		e.publish(RoomTopic(name, ActionPreStart), prestartMsg)
	}
	e.log.WithFields(logrus.Fields{"match": m.ID, "rooms": m.RoomNames}).Info("match awaiting confirmation")
}

func (e *Engine) roomsOf(t *models.Team) []*models.Room {
	rooms := make([]*models.Room, 0, len(t.Rooms))
	for _, rid := range t.Rooms {
		if r := e.rooms[rid]; r != nil {
			rooms = append(rooms, r)
		}
	}
	return rooms
}

func (e *Engine) matchRooms(m *models.Match) []*models.Room {
	var rooms []*models.Room
	for _, tid := range m.Teams {
		if t := e.teams[tid]; t != nil {
			rooms = append(rooms, e.roomsOf(t)...)
		}
	}
	return rooms
}

func (e *Engine) resolvePrestart(ctx context.Context, now time.Time) {
	if len(e.pending) == 0 {
		return
	}
	waiting := make([]uint64, 0, len(e.pending))
	for _, mid := range e.pending {
		m := e.matches[mid]
		if m == nil {
			continue
		}
		switch m.Evaluate(now, e.cfg.ConfirmTimeout) {
		case models.VerdictReady:
			e.launch(ctx, m, now)
		case models.VerdictCancel:
			e.cancel(m)
		default:
			waiting = append(waiting, mid)
		}
	}
	e.pending = waiting
}

func (e *Engine) launch(ctx context.Context, m *models.Match, now time.Time) {
	m.Status = models.MatchReady
	port := e.ports.Next()
	gameID := e.gameIDs.Next()
	m.Launch(port, gameID)
	m.UpdateNames(e.matchRooms(m))

	server := net.JoinHostPort(e.cfg.ServerHost, strconv.Itoa(port))
	for _, name := range m.RoomNames {
		e.publish(RoomTopic(name, ActionStart), startMsg{Room: name, Msg: "start", Server: server, Game: gameID})
	}

	session := e.sessionOf(m, server, now)
	m.Status = models.MatchActive
	session.Status = m.Status
	e.active[gameID] = &session
	e.release(m, models.TeamLocked)

	logger := e.log.WithFields(logrus.Fields{"match": m.ID, "game": gameID, "server": server})
	logger.Info("match launched")

	if e.launcher != nil {
		if err := e.launcher.Launch(ctx, port); err != nil {
			logger.WithError(err).Error("failed to spawn game server")
		}
	}
	if e.recorder != nil {
		if err := e.recorder.RecordLaunch(ctx, session); err != nil {
			logger.WithError(err).Warn("failed to record game launch")
		}
	}
	e.announcements = append(e.announcements, announcement{due: now.Add(e.cfg.SettleDelay), gameID: gameID})
}

func (e *Engine) cancel(m *models.Match) {
	m.Status = models.MatchCancelled
	m.UpdateNames(e.matchRooms(m))
	for _, name := range m.RoomNames {
		e.publish(RoomTopic(name, ActionPreStart), stopQueueMsg)
	}
	e.release(m, models.TeamForming)
	e.log.WithFields(logrus.Fields{"match": m.ID, "rooms": m.RoomNames}).Info("match cancelled")
}

// release drops a resolved match and its teams and hands the rooms back as
// Idle. Rooms emptied by logouts during the handshake are collected here.
func (e *Engine) release(m *models.Match, final models.TeamStatus) {
	rooms := e.matchRooms(m)
	for _, tid := range m.Teams {
		if t := e.teams[tid]; t != nil {
			t.Status = final
		}
		delete(e.teams, tid)
	}
	delete(e.matches, m.ID)
	for _, r := range rooms {
		r.Status = models.RoomIdle
		r.TeamID = 0
		if r.IsEmpty() {
			e.destroyRoom(r)
		}
	}
}

func (e *Engine) sessionOf(m *models.Match, server string, now time.Time) models.GameSession {
	s := models.GameSession{
		GameID:     m.GameID,
		MatchID:    m.ID,
		Port:       m.Port,
		Server:     server,
		RoomNames:  slices.Clone(m.RoomNames),
		LaunchedAt: now,
	}
	for _, tid := range m.Teams {
		var st models.SessionTeam
		if t := e.teams[tid]; t != nil {
			for _, r := range e.roomsOf(t) {
				sr := models.SessionRoom{Key: r.Key}
				for _, uid := range r.Members {
					member := models.SessionMember{ID: uid}
					if u := e.users[uid]; u != nil {
						member.Hero = u.Hero
					}
					sr.Members = append(sr.Members, member)
				}
				st.Rooms = append(st.Rooms, sr)
			}
		}
		s.Teams = append(s.Teams, st)
	}
	return s
}

func (e *Engine) flushAnnouncements(ctx context.Context, now time.Time) {
	if len(e.announcements) == 0 {
		return
	}
	later := e.announcements[:0:0]
	for _, a := range e.announcements {
		if now.Before(a.due) {
			later = append(later, a)
			continue
		}
		e.announce(ctx, a.gameID)
	}
	e.announcements = later
}

func (e *Engine) announce(ctx context.Context, gameID uint64) {
	s := e.active[gameID]
	if s == nil || e.roster == nil {
		return
	}
	roster := e.roster.BuildRoster(ctx, *s)
	for _, name := range s.RoomNames {
		e.publish(RoomTopic(name, ActionRoster), roster)
	}
}
