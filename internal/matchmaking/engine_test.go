package matchmaking

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/erps/internal/models"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	topic   string
	payload map[string]any
}

type mockNotifier struct {
	mu   sync.Mutex
	msgs []sent
}

func (n *mockNotifier) Notify(topic string, payload []byte) {
	var m map[string]any
	_ = json.Unmarshal(payload, &m)
	n.mu.Lock()
	n.msgs = append(n.msgs, sent{topic: topic, payload: m})
	n.mu.Unlock()
}

func (n *mockNotifier) on(topic string) []map[string]any {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []map[string]any
	for _, m := range n.msgs {
		if m.topic == topic {
			out = append(out, m.payload)
		}
	}
	return out
}

func (n *mockNotifier) last(topic string) map[string]any {
	msgs := n.on(topic)
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func (n *mockNotifier) reset() {
	n.mu.Lock()
	n.msgs = nil
	n.mu.Unlock()
}

type mockLauncher struct {
	ports []int
	err   error
}

func (l *mockLauncher) Launch(_ context.Context, port int) error {
	l.ports = append(l.ports, port)
	return l.err
}

type mockRoster struct {
	calls int
}

func (r *mockRoster) BuildRoster(_ context.Context, s models.GameSession) models.Roster {
	r.calls++
	roster := models.Roster{Game: s.GameID}
	for _, team := range s.Teams {
		var entries []models.RosterEntry
		for _, room := range team.Rooms {
			for _, m := range room.Members {
				entries = append(entries, models.RosterEntry{ID: m.ID, Hero: m.Hero})
			}
		}
		roster.Teams = append(roster.Teams, entries)
	}
	return roster
}

type mockRecorder struct {
	sessions []models.GameSession
}

func (r *mockRecorder) RecordLaunch(_ context.Context, s models.GameSession) error {
	r.sessions = append(r.sessions, s)
	return nil
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type harness struct {
	e        *Engine
	notes    *mockNotifier
	launcher *mockLauncher
	roster   *mockRoster
	recorder *mockRecorder
	hook     *logtest.Hook
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	h := &harness{
		notes:    &mockNotifier{},
		launcher: &mockLauncher{},
		roster:   &mockRoster{},
		recorder: &mockRecorder{},
		hook:     hook,
	}
	h.e = NewEngine(cfg, Options{
		Notifier: h.notes,
		Launcher: h.launcher,
		Roster:   h.roster,
		Recorder: h.recorder,
		Logger:   logger,
	})
	return h
}

func (h *harness) do(cmds ...Command) {
	for _, c := range cmds {
		h.e.Handle(context.Background(), c)
	}
}

func (h *harness) tick(at time.Time) {
	h.e.Tick(context.Background(), at)
}

// soloRoom logs id in, creates its room and optionally queues it.
func (h *harness) soloRoom(id string, rank int, queue bool) {
	h.do(
		Login{User: models.User{ID: id, Name: id, Rank: rank}},
		CreateRoom{OwnerID: id},
	)
	if queue {
		h.do(StartQueue{RoomKey: id})
	}
}

// assertConsistent checks that every user's RoomID points at a room listing
// them, and that every room member points back.
func assertConsistent(t *testing.T, e *Engine) {
	t.Helper()
	for id, u := range e.users {
		if !u.InRoom() {
			continue
		}
		r := e.rooms[u.RoomID]
		if assert.NotNil(t, r, "user %s points at missing room", id) {
			assert.True(t, r.HasUser(id), "room %d does not list %s", r.ID, id)
		}
	}
	for _, r := range e.rooms {
		for _, m := range r.Members {
			u := e.users[m]
			if assert.NotNil(t, u, "room %d lists unknown user %s", r.ID, m) {
				assert.Equal(t, r.ID, u.RoomID)
			}
		}
		assert.Equal(t, r.ID, e.roomKeys[r.Key])
		if !r.IsEmpty() {
			assert.Equal(t, r.Master, r.Key, "room %d is not keyed by its master", r.ID)
			assert.True(t, r.HasUser(r.Master), "room %d master %s is not a member", r.ID, r.Master)
		}
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t, nil)
	h.do(Login{User: models.User{ID: "alice"}})
	assert.Equal(t, "ok", h.notes.last("member/alice/res/login")["msg"])

	h.do(Login{User: models.User{ID: "alice"}})
	assert.Equal(t, "fail", h.notes.last("member/alice/res/login")["msg"])
	assert.Len(t, h.e.users, 1)

	h.do(Logout{UserID: "bob"})
	assert.Equal(t, "fail", h.notes.last("member/bob/res/logout")["msg"])
	h.do(Logout{UserID: "alice"})
	assert.Equal(t, "ok", h.notes.last("member/alice/res/logout")["msg"])
	assert.Empty(t, h.e.users)
}

func TestRoomMembershipStaysConsistent(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.TeamSize = 3 })
	for _, id := range []string{"a", "b", "c", "d"} {
		h.do(Login{User: models.User{ID: id}})
	}

	steps := []struct {
		cmd  Command
		want string
		msg  string
	}{
		{CreateRoom{OwnerID: "a"}, "room/a/res/create", "ok"},
		{CreateRoom{OwnerID: "a"}, "room/a/res/create", "fail"},
		{CreateRoom{OwnerID: "ghost"}, "room/ghost/res/create", "fail"},
		{CreateRoom{OwnerID: "c"}, "room/c/res/create", "ok"},
		{CloseRoom{RoomKey: "c"}, "room/c/res/close", "ok"},
		{CloseRoom{RoomKey: "c"}, "room/c/res/close", "fail"},
	}
	for _, s := range steps {
		h.do(s.cmd)
		assert.Equal(t, s.msg, h.notes.last(s.want)["msg"], "%T", s.cmd)
		assertConsistent(t, h.e)
	}

	h.do(Join{RoomKey: "a", TargetID: "b"})
	assert.Equal(t, true, h.notes.last("room/b/res/join")["accept"])
	assertConsistent(t, h.e)

	// b is already in a's room; creating a new one must fail
	h.do(CreateRoom{OwnerID: "b"})
	assert.Equal(t, "fail", h.notes.last("room/b/res/create")["msg"])

	h.do(Join{RoomKey: "nope", TargetID: "c"})
	assert.Equal(t, false, h.notes.last("room/c/res/join")["accept"])

	h.do(CreateRoom{OwnerID: "d"}, Join{RoomKey: "a", TargetID: "d"})
	assert.Equal(t, false, h.notes.last("room/d/res/join")["accept"], "d is in its own room")
	assertConsistent(t, h.e)

	h.do(CloseRoom{RoomKey: "a"})
	assertConsistent(t, h.e)
	assert.False(t, h.e.users["a"].InRoom())
	assert.False(t, h.e.users["b"].InRoom())
	assert.True(t, h.e.users["d"].InRoom())
}

func TestJoinRespectsTeamSize(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.TeamSize = 2 })
	h.soloRoom("a", 0, false)
	h.do(Login{User: models.User{ID: "b"}}, Login{User: models.User{ID: "c"}})

	h.do(Join{RoomKey: "a", TargetID: "b"})
	assert.Equal(t, true, h.notes.last("room/b/res/join")["accept"])
	h.do(Join{RoomKey: "a", TargetID: "c"})
	assert.Equal(t, false, h.notes.last("room/c/res/join")["accept"])
	assert.Equal(t, 2, h.e.roomByKey("a").Size())
}

func TestInviteOnlyReachesKnownUsers(t *testing.T) {
	h := newHarness(t, nil)
	h.soloRoom("a", 0, false)
	h.do(Invite{RoomKey: "a", TargetID: "ghost"})
	assert.Empty(t, h.notes.on("room/ghost/res/invite"))

	h.do(Login{User: models.User{ID: "b"}}, Invite{RoomKey: "a", TargetID: "b"})
	assert.Equal(t, map[string]any{"rid": "a", "cid": "b"}, h.notes.last("room/b/res/invite"))
}

func TestChooseHero(t *testing.T) {
	h := newHarness(t, nil)
	h.do(ChooseHero{UserID: "ghost", Hero: "x"})
	assert.Equal(t, "fail", h.notes.last("member/ghost/res/choose_hero")["msg"])

	h.do(Login{User: models.User{ID: "a"}}, ChooseHero{UserID: "a", Hero: "knight"})
	assert.Equal(t, map[string]any{"id": "a", "hero": "knight"}, h.notes.last("member/a/res/choose_hero"))
	assert.Equal(t, "knight", h.e.users["a"].Hero)
}

func TestStartCancelQueueRoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	h.soloRoom("a", 0, false)

	h.do(CancelQueue{RoomKey: "a"})
	assert.Equal(t, "fail", h.notes.last("room/a/res/cancel_queue")["msg"])

	h.do(StartQueue{RoomKey: "a"})
	assert.Equal(t, "ok", h.notes.last("room/a/res/start_queue")["msg"])
	h.do(StartQueue{RoomKey: "a"})
	assert.Equal(t, "fail", h.notes.last("room/a/res/start_queue")["msg"])
	assert.Len(t, h.e.queue, 1)

	h.do(CancelQueue{RoomKey: "a"})
	assert.Equal(t, "ok", h.notes.last("room/a/res/cancel_queue")["msg"])
	assert.Empty(t, h.e.queue)
	assert.Equal(t, models.RoomIdle, h.e.roomByKey("a").Status)

	// eligible again
	h.do(StartQueue{RoomKey: "a"})
	assert.Equal(t, "ok", h.notes.last("room/a/res/start_queue")["msg"])
}

func TestResetIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	h.soloRoom("a", 0, true)
	h.soloRoom("b", 0, true)
	h.tick(epoch)
	require.Len(t, h.e.pending, 1)

	h.do(Reset{})
	first := h.e.Stats()
	h.do(Reset{})
	second := h.e.Stats()

	assert.Equal(t, first, second)
	assert.Equal(t, Stats{LastPort: 7777}, second)
	assert.Empty(t, h.e.teams)
	assert.Empty(t, h.e.matches)
	assert.Empty(t, h.e.roomKeys)
}

func TestTwoRoomsOpenMatch(t *testing.T) {
	h := newHarness(t, nil)
	h.soloRoom("a", 0, true)
	h.soloRoom("b", 0, true)

	h.tick(epoch)

	require.Len(t, h.e.pending, 1)
	m := h.e.matches[h.e.pending[0]]
	require.NotNil(t, m)
	assert.Equal(t, models.MatchAwaitingConfirmation, m.Status)
	assert.Len(t, m.Teams, 2)
	assert.ElementsMatch(t, []string{"a", "b"}, m.RoomNames)
	for _, key := range []string{"a", "b"} {
		assert.Equal(t, models.RoomLocked, h.e.roomByKey(key).Status)
		assert.Equal(t, []map[string]any{{"msg": "prestart"}}, h.notes.on(RoomTopic(key, ActionPreStart)))
	}
	assert.Empty(t, h.e.queue)
	assert.Empty(t, h.e.readyTeams)

	// locked rooms can't be closed or re-queued
	h.do(CloseRoom{RoomKey: "a"}, StartQueue{RoomKey: "b"})
	assert.Equal(t, "fail", h.notes.last("room/a/res/close")["msg"])
	assert.Equal(t, "fail", h.notes.last("room/b/res/start_queue")["msg"])
}

func TestAcceptAllLaunches(t *testing.T) {
	h := newHarness(t, nil)

	for round, pair := range [][2]string{{"a", "b"}, {"c", "d"}} {
		h.soloRoom(pair[0], 0, true)
		h.soloRoom(pair[1], 0, true)
		h.do(ChooseHero{UserID: pair[0], Hero: "mage"})
		h.tick(epoch)

		h.do(
			PreStart{RoomKey: pair[0], UserID: pair[0], Accept: true},
			PreStart{RoomKey: pair[1], UserID: pair[1], Accept: true},
		)
		h.tick(epoch.Add(time.Second))

		wantPort := 7778 + round
		wantGame := uint64(round + 1)
		for _, key := range pair {
			start := h.notes.last(RoomTopic(key, ActionStart))
			require.NotNil(t, start, key)
			assert.Equal(t, key, start["room"])
			assert.Equal(t, "start", start["msg"])
			assert.Equal(t, "127.0.0.1:"+strconv.Itoa(wantPort), start["server"])
			assert.EqualValues(t, wantGame, start["game"])

			r := h.e.roomByKey(key)
			assert.Equal(t, models.RoomIdle, r.Status)
			assert.Zero(t, r.TeamID)
		}
		assert.Equal(t, wantPort, h.launcher.ports[round])

		s := h.e.active[wantGame]
		require.NotNil(t, s)
		assert.Equal(t, models.MatchActive, s.Status)
		assert.Equal(t, wantPort, s.Port)
	}

	assert.Empty(t, h.e.pending)
	assert.Empty(t, h.e.matches)
	assert.Empty(t, h.e.teams)
	require.Len(t, h.recorder.sessions, 2)
	assert.Equal(t, "mage", h.recorder.sessions[0].Teams[0].Rooms[0].Members[0].Hero)
}

func TestDeclineCancels(t *testing.T) {
	h := newHarness(t, nil)
	h.soloRoom("a", 0, true)
	h.soloRoom("b", 0, true)
	h.tick(epoch)

	h.do(
		PreStart{RoomKey: "a", UserID: "a", Accept: true},
		PreStart{RoomKey: "b", UserID: "b", Accept: false},
	)
	h.tick(epoch.Add(time.Second))

	for _, key := range []string{"a", "b"} {
		assert.Equal(t, "stop queue", h.notes.last(RoomTopic(key, ActionPreStart))["msg"])
		assert.Empty(t, h.notes.on(RoomTopic(key, ActionStart)))
		assert.Equal(t, models.RoomIdle, h.e.roomByKey(key).Status)
	}
	assert.Equal(t, 7777, h.e.ports.Last())
	assert.Zero(t, h.e.gameIDs.Last())
	assert.Empty(t, h.e.pending)
	assert.Empty(t, h.e.teams)
	assert.Empty(t, h.launcher.ports)

	// unlocked rooms can queue again
	h.do(StartQueue{RoomKey: "a"})
	assert.Equal(t, "ok", h.notes.last("room/a/res/start_queue")["msg"])
}

func TestPreStartIgnoresStrangers(t *testing.T) {
	h := newHarness(t, nil)
	h.soloRoom("a", 0, true)
	h.soloRoom("b", 0, true)
	h.do(Login{User: models.User{ID: "x"}})
	h.tick(epoch)

	h.do(
		PreStart{RoomKey: "a", UserID: "x", Accept: false},
		PreStart{RoomKey: "ghost", UserID: "a", Accept: false},
	)
	h.tick(epoch.Add(time.Second))
	assert.Len(t, h.e.pending, 1)
}

func TestConfirmationTimeout(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.ConfirmTimeout = 5 * time.Second })
	h.soloRoom("a", 0, true)
	h.soloRoom("b", 0, true)
	h.tick(epoch)
	h.do(PreStart{RoomKey: "a", UserID: "a", Accept: true})

	h.tick(epoch.Add(4 * time.Second))
	assert.Len(t, h.e.pending, 1)

	h.tick(epoch.Add(5 * time.Second))
	assert.Empty(t, h.e.pending)
	assert.Equal(t, "stop queue", h.notes.last("room/b/res/prestart")["msg"])
}

func TestLogoutDuringConfirmationDeclines(t *testing.T) {
	h := newHarness(t, nil)
	h.soloRoom("a", 0, true)
	h.soloRoom("b", 0, true)
	h.tick(epoch)

	h.do(Logout{UserID: "b"})
	require.NotNil(t, h.e.roomByKey("b"), "locked room survives until the match resolves")

	h.tick(epoch.Add(time.Second))
	assert.Equal(t, "stop queue", h.notes.last("room/a/res/prestart")["msg"])
	assert.Nil(t, h.e.roomByKey("b"), "emptied room is collected on cancel")
	assert.NotNil(t, h.e.roomByKey("a"))
	assertConsistent(t, h.e)
}

func TestNoRoomIsPackedTwice(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.TeamSize = 2 })
	h.soloRoom("a", 0, true)
	h.soloRoom("b", 0, true)
	h.soloRoom("c", 0, true)

	h.tick(epoch)
	h.tick(epoch.Add(200 * time.Millisecond))

	require.Len(t, h.e.teams, 1)
	seen := map[uint32]uint64{}
	for _, team := range h.e.teams {
		assert.Equal(t, 2, team.MemberCount)
		for _, rid := range team.Rooms {
			_, dup := seen[rid]
			assert.False(t, dup, "room %d packed twice", rid)
			seen[rid] = team.ID
		}
	}
	assert.Equal(t, []uint32{h.e.roomByKey("c").ID}, h.e.queue)
	assert.Zero(t, h.e.roomByKey("c").TeamID)
}

func TestCancelQueueDissolvesUnmatchedTeam(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.TeamSize = 2 })
	h.soloRoom("a", 0, true)
	h.soloRoom("b", 0, true)
	h.tick(epoch)
	require.Len(t, h.e.readyTeams, 1)

	h.do(CancelQueue{RoomKey: "a"})

	assert.Empty(t, h.e.teams)
	assert.Empty(t, h.e.readyTeams)
	b := h.e.roomByKey("b")
	assert.Equal(t, models.RoomQueued, b.Status)
	assert.Zero(t, b.TeamID)
	assert.Equal(t, []uint32{b.ID}, h.e.queue)
	assert.Equal(t, models.RoomIdle, h.e.roomByKey("a").Status)
}

func TestUnmatchedTeamDissolvesWhenRoomGoes(t *testing.T) {
	for name, gone := range map[string]Command{
		"close":  CloseRoom{RoomKey: "a"},
		"logout": Logout{UserID: "a"},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, func(c *Config) { c.TeamSize = 2 })
			h.soloRoom("a", 0, true)
			h.soloRoom("b", 0, true)
			h.soloRoom("c", 0, false)
			h.tick(epoch)
			require.Len(t, h.e.readyTeams, 1)
			h.do(StartQueue{RoomKey: "c"})

			h.do(gone)

			assert.Nil(t, h.e.roomByKey("a"))
			assert.Empty(t, h.e.teams)
			assert.Empty(t, h.e.readyTeams)
			b, c := h.e.roomByKey("b"), h.e.roomByKey("c")
			assert.Equal(t, models.RoomQueued, b.Status)
			assert.Zero(t, b.TeamID)
			assert.Equal(t, []uint32{b.ID, c.ID}, h.e.queue, "siblings go back ahead of later arrivals")
			assertConsistent(t, h.e)

			// b and c pack together on the next tick
			h.tick(epoch.Add(200 * time.Millisecond))
			require.Len(t, h.e.readyTeams, 1)
			assert.Equal(t, []uint32{b.ID, c.ID}, h.e.teams[h.e.readyTeams[0]].Rooms)
		})
	}
}

func TestMasterLeavingHandsRoomOver(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.TeamSize = 2 })
	h.soloRoom("a", 0, false)
	h.do(Login{User: models.User{ID: "b"}}, Join{RoomKey: "a", TargetID: "b"})
	require.Equal(t, true, h.notes.last("room/b/res/join")["accept"])

	h.do(Logout{UserID: "a"})

	r := h.e.roomByKey("b")
	require.NotNil(t, r)
	assert.Nil(t, h.e.roomByKey("a"))
	assert.Equal(t, "b", r.Master)
	assert.Equal(t, []string{"b"}, r.Members)
	assert.Equal(t, map[string]any{"room": "b", "master": "b"}, h.notes.last("room/a/res/master"))
	assertConsistent(t, h.e)

	// the old key is free again and no longer drives b's room
	h.do(Login{User: models.User{ID: "a"}})
	h.do(StartQueue{RoomKey: "a"})
	assert.Equal(t, "fail", h.notes.last("room/a/res/start_queue")["msg"])
	assert.Equal(t, models.RoomIdle, r.Status)
	h.do(CreateRoom{OwnerID: "a"})
	assert.Equal(t, "ok", h.notes.last("room/a/res/create")["msg"])
	assert.NotEqual(t, r.ID, h.e.roomByKey("a").ID)

	h.do(StartQueue{RoomKey: "b"})
	assert.Equal(t, "ok", h.notes.last("room/b/res/start_queue")["msg"])
	assertConsistent(t, h.e)
}

func TestHandoverDuringConfirmationRenamesMatchRoom(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.TeamSize = 2 })
	h.soloRoom("a", 0, false)
	h.soloRoom("c", 0, false)
	h.do(
		Login{User: models.User{ID: "b"}}, Join{RoomKey: "a", TargetID: "b"},
		Login{User: models.User{ID: "d"}}, Join{RoomKey: "c", TargetID: "d"},
		StartQueue{RoomKey: "a"}, StartQueue{RoomKey: "c"},
	)
	h.tick(epoch)
	require.Len(t, h.e.pending, 1)
	m := h.e.matches[h.e.pending[0]]
	require.Equal(t, []string{"a", "c"}, m.RoomNames)

	h.do(Logout{UserID: "a"})
	assert.Equal(t, []string{"b", "c"}, m.RoomNames)

	h.tick(epoch.Add(time.Second))
	assert.Empty(t, h.e.pending)
	assert.Equal(t, "stop queue", h.notes.last("room/b/res/prestart")["msg"])
	assert.Equal(t, "stop queue", h.notes.last("room/c/res/prestart")["msg"])
	assert.Equal(t, models.RoomIdle, h.e.roomByKey("b").Status)
	assertConsistent(t, h.e)
}

func TestPackOrder(t *testing.T) {
	for _, tc := range []struct {
		order PackOrder
		want  []string
	}{
		{PackByRank, []string{"low", "mid"}},
		{PackFIFO, []string{"high", "low"}},
	} {
		t.Run(string(tc.order), func(t *testing.T) {
			h := newHarness(t, func(c *Config) { c.PackOrder = tc.order })
			h.soloRoom("high", 30, true)
			h.soloRoom("low", 10, true)
			h.soloRoom("mid", 20, true)

			h.tick(epoch)

			require.Len(t, h.e.pending, 1)
			assert.Equal(t, tc.want, h.e.matches[h.e.pending[0]].RoomNames)
		})
	}
}

func TestRosterAfterSettleDelay(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.SettleDelay = 10 * time.Second })
	h.launcher.err = errors.New("exec: no such file")
	h.soloRoom("a", 0, true)
	h.soloRoom("b", 0, true)
	h.tick(epoch)
	h.do(
		PreStart{RoomKey: "a", UserID: "a", Accept: true},
		PreStart{RoomKey: "b", UserID: "b", Accept: true},
	)
	h.tick(epoch.Add(time.Second))

	// spawn failure is logged, the game stays active
	var spawnErr *logrus.Entry
	for _, entry := range h.hook.AllEntries() {
		if entry.Message == "failed to spawn game server" {
			spawnErr = entry
		}
	}
	require.NotNil(t, spawnErr)
	assert.Equal(t, logrus.ErrorLevel, spawnErr.Level)
	assert.Len(t, h.e.active, 1)

	h.tick(epoch.Add(5 * time.Second))
	assert.Zero(t, h.roster.calls)
	assert.Empty(t, h.notes.on("room/a/res/roster"))

	h.tick(epoch.Add(11 * time.Second))
	assert.Equal(t, 1, h.roster.calls)
	for _, key := range []string{"a", "b"} {
		roster := h.notes.last(RoomTopic(key, ActionRoster))
		require.NotNil(t, roster)
		assert.EqualValues(t, 1, roster["game"])
		assert.Len(t, roster["teams"], 2)
	}

	// delivered once
	h.notes.reset()
	h.tick(epoch.Add(20 * time.Second))
	assert.Equal(t, 1, h.roster.calls)
	assert.Empty(t, h.notes.on("room/a/res/roster"))
}

func TestSnapshotReply(t *testing.T) {
	h := newHarness(t, nil)
	h.soloRoom("a", 0, true)

	reply := make(chan Stats, 1)
	h.do(Snapshot{Reply: reply})
	s := <-reply
	assert.Equal(t, 1, s.Users)
	assert.Equal(t, 1, s.Rooms)
	assert.Equal(t, 1, s.QueuedRooms)
}
