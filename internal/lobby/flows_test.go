package lobby

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/hidden-role-client/internal/engine"
	"github.com/DoyleJ11/hidden-role-client/internal/i18n"
	"github.com/DoyleJ11/hidden-role-client/internal/ledger"
	"github.com/DoyleJ11/hidden-role-client/internal/notify"
	"github.com/DoyleJ11/hidden-role-client/internal/session"
	"github.com/DoyleJ11/hidden-role-client/internal/wallet"
)

func verified(id string) func(View) bool {
	return func(v View) bool {
		r, ok := session.Find(v.Records, id)
		return ok && r.Verified && len(v.Verifying) == 0 && !v.Refreshing
	}
}

func TestCreate_ScenarioA(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.connect()

	f.send(OpenForm{})
	f.send(Create{Form: session.Form{DisplayName: "MoonNight", Capacity: 8}})

	v := waitView(t, f.lobby, 3*time.Second, func(v View) bool {
		return !v.Creating && len(v.Records) == 1 && !v.Refreshing
	})
	require.Equal(t, int32(1), f.engine.encrypts.Load())

	r := v.Records[0]
	require.Equal(t, "MoonNight", r.DisplayName)
	require.Equal(t, 8, r.Capacity)
	require.False(t, r.Verified)
	require.Equal(t, v.Address, r.Creator)
	require.Contains(t, r.ID, "game-")

	require.Equal(t, engine.PhaseDone, v.CreatePhase)
	require.False(t, v.FormOpen)
	require.Equal(t, session.NewForm(), v.Form)
	require.True(t, noteIs(notify.KindSuccess, en.Text(i18n.MsgCreated))(v))
}

func TestCreate_ScenarioD_UserRejects(t *testing.T) {
	f := newFixture(t, fixtureOpts{policy: wallet.Reject})
	f.connect()

	f.send(OpenForm{})
	f.send(Create{Form: session.Form{DisplayName: "MoonNight", Capacity: 8}})

	v := waitView(t, f.lobby, 3*time.Second, noteIs(notify.KindError, en.Text(i18n.MsgUserRejected)))
	require.False(t, v.Creating)
	require.Equal(t, engine.PhaseFailed, v.CreatePhase)
	require.Empty(t, v.Records)
	require.True(t, v.FormOpen, "form stays open for a retry")
	require.Equal(t, "MoonNight", v.Form.DisplayName)
}

func TestCreate_RejectedBeforeStart(t *testing.T) {
	cases := []struct {
		name    string
		connect bool
		form    session.Form
		want    string
	}{
		{"not connected", false, session.Form{DisplayName: "MoonNight", Capacity: 8}, en.Text(i18n.MsgNotConnected)},
		{"empty name", true, session.Form{DisplayName: "  ", Capacity: 8}, en.Text(i18n.MsgInvalidForm, session.ErrEmptyName.Error())},
		{"too few players", true, session.Form{DisplayName: "x", Capacity: 5}, en.Text(i18n.MsgInvalidForm, session.ErrCapacityOutOfRange.Error())},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, fixtureOpts{})
			if tc.connect {
				f.connect()
			}
			f.send(Create{Form: tc.form})
			v := waitView(t, f.lobby, time.Second, noteIs(notify.KindError, tc.want))
			require.False(t, v.Creating)
			require.Equal(t, engine.PhaseIdle, v.CreatePhase)
			require.Zero(t, f.engine.encrypts.Load())
		})
	}
}

func TestCreate_UsesHeldFormAfterEdit(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.connect()

	f.send(EditForm{Form: session.Form{DisplayName: "BloodMoon", Capacity: 12}})
	f.send(Create{})

	v := waitView(t, f.lobby, 3*time.Second, func(v View) bool { return len(v.Records) == 1 && !v.Refreshing })
	require.Equal(t, "BloodMoon", v.Records[0].DisplayName)
	require.Equal(t, 12, v.Records[0].Capacity)
}

func TestCreate_SecondSubmitWhileBusyIsIgnored(t *testing.T) {
	f := newFixture(t, fixtureOpts{blockTime: 100 * time.Millisecond})
	f.connect()

	form := session.Form{DisplayName: "MoonNight", Capacity: 8}
	f.send(Create{Form: form})
	f.send(Create{Form: form})

	v := waitView(t, f.lobby, 3*time.Second, func(v View) bool { return !v.Creating && len(v.Records) == 1 && !v.Refreshing })
	require.Equal(t, int32(1), f.engine.encrypts.Load())
	require.Len(t, v.Records, 1)
}

func TestCreate_FailureReleasesBusyFlag(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.connect()

	f.state.SetOffline(true)
	f.send(Create{Form: session.Form{DisplayName: "MoonNight", Capacity: 8}})
	v := waitView(t, f.lobby, 3*time.Second, func(v View) bool { return v.CreatePhase == engine.PhaseFailed })
	require.False(t, v.Creating)
	require.Equal(t, notify.KindError, v.Notification.Kind)

	f.state.SetOffline(false)
	f.send(Create{})
	v = waitView(t, f.lobby, 3*time.Second, func(v View) bool { return v.CreatePhase == engine.PhaseDone && !v.Refreshing })
	require.Len(t, v.Records, 1)
	require.Equal(t, int32(2), f.engine.encrypts.Load())
}

func TestVerify_ScenarioB(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.seed("game-1", "MoonNight", 2, false)
	f.connect()

	f.send(Select{ID: "game-1"})
	f.send(Verify{})

	v := waitView(t, f.lobby, 3*time.Second, verified("game-1"))
	require.Equal(t, int32(1), f.engine.decrypts.Load())

	sel := v.Selected
	require.NotNil(t, sel)
	require.True(t, sel.Record.Verified)
	require.Equal(t, uint64(2), sel.Record.RevealedValue)
	require.True(t, sel.HasLocalValue)
	require.Equal(t, uint64(2), sel.LocalValue)
	require.True(t, sel.RoleKnown)
	require.Equal(t, session.RoleWerewolf, sel.Role)
	require.Equal(t, engine.PhaseConfirmed, sel.Phase)
	require.False(t, sel.Busy)
	require.True(t, noteIs(notify.KindSuccess, en.Text(i18n.MsgVerified))(v))
}

func TestVerify_ScenarioC_AlreadyVerifiedSkipsDecrypt(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.seed("game-1", "MoonNight", 3, true)
	f.connect()

	f.send(Select{ID: "game-1"})
	f.send(Verify{})

	v := waitView(t, f.lobby, 3*time.Second, func(v View) bool {
		return v.Selected != nil && v.Selected.Phase == engine.PhaseAlreadyVerified
	})
	require.Zero(t, f.engine.decrypts.Load())
	require.Equal(t, session.RoleSeer, v.Selected.Role)
	require.Equal(t, uint64(3), v.Selected.LocalValue)
	require.True(t, noteIs(notify.KindSuccess, en.Text(i18n.MsgAlreadyVerified))(v))
}

func TestVerify_IdempotentAfterVerification(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.seed("game-1", "MoonNight", 2, false)
	f.connect()

	f.send(Select{ID: "game-1"})
	f.send(Verify{})
	waitView(t, f.lobby, 3*time.Second, verified("game-1"))

	for i := 0; i < 3; i++ {
		f.send(Verify{})
		v := waitView(t, f.lobby, 3*time.Second, func(v View) bool {
			return v.Selected.Phase == engine.PhaseAlreadyVerified && !v.Selected.Busy
		})
		require.Equal(t, uint64(2), v.Selected.Record.RevealedValue)
		require.Equal(t, session.RoleWerewolf, v.Selected.Role)
	}
	require.Equal(t, int32(1), f.engine.decrypts.Load())
}

func TestVerify_DoubleClickRunsOneExchange(t *testing.T) {
	f := newFixture(t, fixtureOpts{blockTime: 100 * time.Millisecond})
	f.seed("game-1", "MoonNight", 2, false)
	f.connect()

	f.send(Select{ID: "game-1"})
	f.send(Verify{})
	f.send(Verify{})

	v := getView(t, f.lobby)
	require.True(t, v.Selected.Busy)
	require.Equal(t, []string{"game-1"}, v.Verifying)

	waitView(t, f.lobby, 3*time.Second, verified("game-1"))
	require.Equal(t, int32(1), f.engine.decrypts.Load())
}

func TestVerify_RaceWithAnotherVerifierIsSuccess(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.seed("game-1", "MoonNight", 2, false)
	f.connect()
	f.backend.set(func(b *hookBackend) { b.raceVerify = true })

	f.send(Select{ID: "game-1"})
	f.send(Verify{})

	v := waitView(t, f.lobby, 3*time.Second, verified("game-1"))
	require.Equal(t, engine.PhaseConfirmed, v.Selected.Phase)
	require.Equal(t, uint64(2), v.Selected.Record.RevealedValue)
	require.Equal(t, session.RoleWerewolf, v.Selected.Role)
	require.True(t, noteIs(notify.KindSuccess, en.Text(i18n.MsgAlreadyVerified))(v))
}

func TestVerify_TwoAccountsConcurrently(t *testing.T) {
	f := newFixture(t, fixtureOpts{blockTime: 100 * time.Millisecond})
	f.seed("game-1", "MoonNight", 4, false)
	bob := f.newLobby(fixtureOpts{account: "bob"})

	f.connect()
	bob.Inbox() <- Connect{}
	waitView(t, bob, 3*time.Second, func(v View) bool { return v.Connected && len(v.Records) == 1 })

	f.send(Select{ID: "game-1"})
	bob.Inbox() <- Select{ID: "game-1"}
	f.send(Verify{})
	bob.Inbox() <- Verify{}

	for _, l := range []*Lobby{f.lobby, bob} {
		v := waitView(t, l, 5*time.Second, verified("game-1"))
		require.Equal(t, notify.KindSuccess, v.Notification.Kind)
		require.Equal(t, uint64(4), v.Selected.Record.RevealedValue)
		require.Equal(t, session.RoleWitch, v.Selected.Role)
	}
}

func TestVerify_FailureReleasesBusyFlag(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.seed("game-1", "MoonNight", 2, false)
	f.connect()

	f.state.SetOffline(true)
	f.send(Select{ID: "game-1"})
	f.send(Verify{})
	v := waitView(t, f.lobby, 3*time.Second, func(v View) bool { return v.Selected.Phase == engine.PhaseFailed })
	require.False(t, v.Selected.Busy)
	require.Empty(t, v.Verifying)
	require.Equal(t, notify.KindError, v.Notification.Kind)
	require.Contains(t, v.Notification.Message, "Decryption failed:")
	require.False(t, v.Selected.Record.Verified)

	f.state.SetOffline(false)
	f.send(Verify{})
	waitView(t, f.lobby, 3*time.Second, verified("game-1"))
}

func TestVerify_UserRejectsProof(t *testing.T) {
	f := newFixture(t, fixtureOpts{policy: wallet.Reject})
	f.seed("game-1", "MoonNight", 2, false)
	f.connect()

	f.send(Select{ID: "game-1"})
	f.send(Verify{})
	v := waitView(t, f.lobby, 3*time.Second, noteIs(notify.KindError, en.Text(i18n.MsgUserRejected)))
	require.False(t, v.Selected.Busy)
	require.False(t, v.Selected.HasLocalValue)
}

func TestVerify_NotConnected(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.send(Select{ID: "game-1"})
	f.send(Verify{})

	v := waitView(t, f.lobby, time.Second, noteIs(notify.KindError, en.Text(i18n.MsgNotConnected)))
	require.Equal(t, engine.PhaseIdle, v.Selected.Phase)
	require.Zero(t, f.engine.decrypts.Load())
}

func TestVerify_StaleResultAfterNavigation(t *testing.T) {
	f := newFixture(t, fixtureOpts{blockTime: 100 * time.Millisecond})
	f.seed("game-1", "MoonNight", 2, false)
	f.seed("game-2", "BloodMoon", 1, false)
	f.connect()

	f.send(Select{ID: "game-1"})
	f.send(Verify{})
	f.send(Select{ID: "game-2"})

	v := waitView(t, f.lobby, 3*time.Second, verified("game-1"))
	require.Equal(t, "game-2", v.Selected.Record.ID)
	require.False(t, v.Selected.HasLocalValue, "result for game-1 must not leak into game-2")
	require.False(t, v.Selected.RoleKnown)
}

func TestVerify_VerifiedFlagIsMonotonic(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.seed("game-1", "MoonNight", 2, false)
	f.connect()

	f.send(Select{ID: "game-1"})
	f.send(Verify{})
	waitView(t, f.lobby, 3*time.Second, verified("game-1"))

	f.backend.set(func(b *hookBackend) { b.lagging = true })
	f.send(Refresh{})
	v := waitView(t, f.lobby, 3*time.Second, func(v View) bool { return !v.Refreshing })

	r, ok := session.Find(v.Records, "game-1")
	require.True(t, ok)
	require.True(t, r.Verified)
	require.Equal(t, uint64(2), r.RevealedValue)
}

func TestFlows_FailureAtAnyStepReleasesBusyFlag(t *testing.T) {
	cases := []struct {
		name   string
		verify bool
		fail   func(f *fixture)
		mend   func(f *fixture)
	}{
		{
			name: "create encrypt",
			fail: func(f *fixture) { f.engine.set(func(c *countingEngine) { c.encryptErr = errors.New("encrypt failed") }) },
			mend: func(f *fixture) { f.engine.set(func(c *countingEngine) { c.encryptErr = nil }) },
		},
		{
			name: "create mining revert",
			fail: func(f *fixture) {
				f.backend.set(func(b *hookBackend) {
					b.revert[ledger.MethodCreateRecord] = &ledger.RevertError{Reason: ledger.ReasonDuplicate}
				})
			},
			mend: func(f *fixture) { f.backend.set(func(b *hookBackend) { delete(b.revert, ledger.MethodCreateRecord) }) },
		},
		{
			name:   "verify decrypt",
			verify: true,
			fail:   func(f *fixture) { f.engine.set(func(c *countingEngine) { c.decryptErr = errors.New("relayer timeout") }) },
			mend:   func(f *fixture) { f.engine.set(func(c *countingEngine) { c.decryptErr = nil }) },
		},
		{
			name:   "verify confirmation revert",
			verify: true,
			fail: func(f *fixture) {
				f.backend.set(func(b *hookBackend) {
					b.revert[ledger.MethodVerifyDecryption] = &ledger.RevertError{Reason: ledger.ReasonBadProof}
				})
			},
			mend: func(f *fixture) { f.backend.set(func(b *hookBackend) { delete(b.revert, ledger.MethodVerifyDecryption) }) },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, fixtureOpts{})
			f.seed("game-1", "MoonNight", 2, false)
			f.connect()
			tc.fail(f)

			if !tc.verify {
				f.send(Create{Form: session.Form{DisplayName: "BloodMoon", Capacity: 8}})
				v := waitView(t, f.lobby, 3*time.Second, func(v View) bool { return v.CreatePhase == engine.PhaseFailed })
				require.False(t, v.Creating)
				require.Equal(t, notify.KindError, v.Notification.Kind)

				tc.mend(f)
				f.send(Create{})
				v = waitView(t, f.lobby, 3*time.Second, func(v View) bool { return v.CreatePhase == engine.PhaseDone && !v.Refreshing })
				require.Len(t, v.Records, 2)
				return
			}

			f.send(Select{ID: "game-1"})
			f.send(Verify{})
			v := waitView(t, f.lobby, 3*time.Second, func(v View) bool { return v.Selected.Phase == engine.PhaseFailed })
			require.False(t, v.Selected.Busy)
			require.Empty(t, v.Verifying)
			require.Equal(t, notify.KindError, v.Notification.Kind)
			require.False(t, v.Selected.HasLocalValue)

			tc.mend(f)
			f.send(Verify{})
			v = waitView(t, f.lobby, 3*time.Second, verified("game-1"))
			require.Equal(t, uint64(2), v.Selected.LocalValue)
		})
	}
}

func TestVerify_VerifiedSurvivesMissingThenLaggingRead(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.seed("game-1", "MoonNight", 2, false)
	f.seed("game-2", "BloodMoon", 1, false)
	f.connect()

	f.send(Select{ID: "game-1"})
	f.send(Verify{})
	waitView(t, f.lobby, 3*time.Second, verified("game-1"))

	f.backend.set(func(b *hookBackend) { b.failRecord["game-1"] = true })
	f.send(Refresh{})
	waitView(t, f.lobby, 3*time.Second, func(v View) bool {
		_, ok := session.Find(v.Records, "game-1")
		return !ok && !v.Refreshing
	})

	f.backend.set(func(b *hookBackend) {
		delete(b.failRecord, "game-1")
		b.lagging = true
	})
	f.send(Refresh{})
	v := waitView(t, f.lobby, 3*time.Second, func(v View) bool {
		_, ok := session.Find(v.Records, "game-1")
		return ok && !v.Refreshing
	})

	r, _ := session.Find(v.Records, "game-1")
	require.True(t, r.Verified)
	require.Equal(t, uint64(2), r.RevealedValue)
}

func TestVerify_RaceLostWithUnreadableClearedKeepsNoLocalValue(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.seed("game-1", "MoonNight", 2, false)
	f.connect()
	f.engine.set(func(c *countingEngine) { c.shortClears = true })
	f.backend.set(func(b *hookBackend) {
		b.revert[ledger.MethodVerifyDecryption] = &ledger.RevertError{Reason: ledger.ReasonAlreadyVerified}
	})

	f.send(Select{ID: "game-1"})
	f.send(Verify{})
	v := waitView(t, f.lobby, 3*time.Second, func(v View) bool {
		return v.Selected.Phase == engine.PhaseConfirmed && !v.Selected.Busy
	})
	require.True(t, noteIs(notify.KindSuccess, en.Text(i18n.MsgAlreadyVerified))(v))
	require.False(t, v.Selected.HasLocalValue)
	require.False(t, v.Selected.RoleKnown)
}
