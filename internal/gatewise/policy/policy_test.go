package policy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/policy"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
)

// 2026-02-16 is a Monday.
func monday(hour int) time.Time {
	return time.Date(2026, 2, 16, hour, 0, 0, 0, time.UTC)
}

func officeHours() types.BlackoutSchedule {
	return types.BlackoutSchedule{
		"Mon": {{Start: 9, End: 17}},
	}
}

func testSnapshot() policy.Snapshot {
	return policy.Snapshot{
		Users: types.UserRegistry{
			"A": {Name: "Alice"},
			"B": {Name: "Bob", IsAdmin: true},
		},
		Schedule: officeHours(),
		AdminPIN: "4321",
	}
}

// ── IsBlocked ────────────────────────────────────────────────────────────────

func TestIsBlocked_HalfOpenInterval(t *testing.T) {
	s := officeHours()

	cases := []struct {
		hour int
		want bool
	}{
		{8, false},
		{9, true},
		{16, true},
		{17, false},
		{23, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, policy.IsBlocked(s, monday(tc.hour), false), "hour %d", tc.hour)
	}
}

func TestIsBlocked_ExemptNeverBlocked(t *testing.T) {
	s := types.BlackoutSchedule{
		"Mon": {{AllDay: true}},
		"Tue": {{Start: 0, End: 24}},
	}
	for h := 0; h < 24; h++ {
		assert.False(t, policy.IsBlocked(s, monday(h), true))
		assert.False(t, policy.IsBlocked(s, monday(h).AddDate(0, 0, 1), true))
	}
}

func TestIsBlocked_AllDay(t *testing.T) {
	s := types.BlackoutSchedule{"Mon": {{AllDay: true}}}
	for h := 0; h < 24; h++ {
		assert.True(t, policy.IsBlocked(s, monday(h), false), "hour %d", h)
	}
	assert.False(t, policy.IsBlocked(s, monday(12).AddDate(0, 0, 1), false), "tuesday")
}

func TestIsBlocked_AnyBlockMatches(t *testing.T) {
	s := types.BlackoutSchedule{"Mon": {{Start: 6, End: 7}, {Start: 20, End: 22}}}
	assert.True(t, policy.IsBlocked(s, monday(6), false))
	assert.True(t, policy.IsBlocked(s, monday(21), false))
	assert.False(t, policy.IsBlocked(s, monday(12), false))
}

func TestIsBlocked_EmptyOrMissingDay(t *testing.T) {
	assert.False(t, policy.IsBlocked(nil, monday(10), false))
	assert.False(t, policy.IsBlocked(types.BlackoutSchedule{"Mon": nil}, monday(10), false))
	assert.False(t, policy.IsBlocked(types.BlackoutSchedule{"Sun": {{AllDay: true}}}, monday(10), false))
}

func TestIsBlocked_InvertedBlockNeverMatches(t *testing.T) {
	s := types.BlackoutSchedule{"Mon": {{Start: 22, End: 6}, {Start: 5, End: 5}}}
	for h := 0; h < 24; h++ {
		assert.False(t, policy.IsBlocked(s, monday(h), false), "hour %d", h)
	}
}

func TestIsBlocked_UsesTimeLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 14:00 UTC Monday is 09:00 in UTC-5.
	at := monday(14).In(loc)
	assert.True(t, policy.IsBlocked(officeHours(), at, false))
	// 03:00 UTC Tuesday is 22:00 Monday in UTC-5.
	late := monday(3).AddDate(0, 0, 1).In(loc)
	assert.Equal(t, "Mon", types.WeekdayKey(late))
	assert.False(t, policy.IsBlocked(officeHours(), late, false))
}

// ── Decide ───────────────────────────────────────────────────────────────────

func TestDecide_Scenario(t *testing.T) {
	snap := testSnapshot()
	rfid := func(uid string) types.Credential {
		return types.Credential{Kind: types.CredentialRFID, UID: uid}
	}

	d := policy.Decide(rfid("A"), snap, monday(10))
	assert.Equal(t, types.VerdictDeniedBlackout, d.Verdict)
	assert.Equal(t, "Alice", d.Name)

	d = policy.Decide(rfid("A"), snap, monday(18))
	assert.Equal(t, types.VerdictGranted, d.Verdict)

	d = policy.Decide(rfid("B"), snap, monday(10))
	assert.Equal(t, types.VerdictGranted, d.Verdict)
	assert.True(t, d.Admin)

	for h := 0; h < 24; h++ {
		d = policy.Decide(rfid("Z"), snap, monday(h))
		assert.Equal(t, types.VerdictDenied, d.Verdict)
		assert.Equal(t, policy.UnknownName, d.Name)
	}
}

func TestDecide_UnknownNeverUpgradedByBlackoutState(t *testing.T) {
	snap := testSnapshot()
	snap.Schedule = nil
	d := policy.Decide(types.Credential{Kind: types.CredentialRFID, UID: "nobody"}, snap, monday(3))
	assert.Equal(t, types.VerdictDenied, d.Verdict)
}

func TestDecide_MalformedUIDIsUnknown(t *testing.T) {
	snap := testSnapshot()
	for _, uid := range []string{"", "   ", "\x00"} {
		d := policy.Decide(types.Credential{Kind: types.CredentialRFID, UID: uid}, snap, monday(18))
		assert.Equal(t, types.VerdictDenied, d.Verdict)
		assert.Equal(t, policy.UnknownName, d.Name)
	}
}

func TestDecide_AdminPINOverride(t *testing.T) {
	snap := testSnapshot()
	snap.Schedule = types.BlackoutSchedule{"Mon": {{AllDay: true}}}

	d := policy.Decide(types.Credential{Kind: types.CredentialKeypad, PIN: "4321"}, snap, monday(10))
	assert.Equal(t, types.VerdictGranted, d.Verdict)
	assert.True(t, d.Override)
	assert.Equal(t, policy.AdminName, d.Name)

	d = policy.Decide(types.Credential{Kind: types.CredentialKeypad, PIN: "0000"}, snap, monday(10))
	assert.Equal(t, types.VerdictDenied, d.Verdict)
}

func TestDecide_AdminPINOnlyForKeypad(t *testing.T) {
	snap := testSnapshot()
	d := policy.Decide(types.Credential{Kind: types.CredentialRFID, UID: "4321", PIN: "4321"}, snap, monday(18))
	assert.Equal(t, types.VerdictDenied, d.Verdict)
	assert.False(t, d.Override)
}

func TestDecide_EmptyAdminPINDisablesOverride(t *testing.T) {
	snap := testSnapshot()
	snap.AdminPIN = ""
	d := policy.Decide(types.Credential{Kind: types.CredentialKeypad, PIN: ""}, snap, monday(18))
	assert.Equal(t, types.VerdictDenied, d.Verdict)
}

func TestDecide_KeypadPINLookedUpInRegistry(t *testing.T) {
	snap := testSnapshot()
	snap.Users = snap.Users.Assign(types.UserRecord{UID: "1111", Name: "Keypad Kim"})

	d := policy.Decide(types.Credential{Kind: types.CredentialKeypad, PIN: "1111"}, snap, monday(18))
	assert.Equal(t, types.VerdictGranted, d.Verdict)
	assert.Equal(t, "Keypad Kim", d.Name)

	d = policy.Decide(types.Credential{Kind: types.CredentialKeypad, PIN: "1111"}, snap, monday(10))
	assert.Equal(t, types.VerdictDeniedBlackout, d.Verdict)
}

func TestDecide_NonAdminDeniedEveryBlockedHour(t *testing.T) {
	snap := testSnapshot()
	snap.Schedule = types.BlackoutSchedule{"Mon": {{Start: 0, End: 6}, {AllDay: false, Start: 12, End: 13}}}
	for h := 0; h < 24; h++ {
		d := policy.Decide(types.Credential{Kind: types.CredentialRFID, UID: "A"}, snap, monday(h))
		blocked := h < 6 || h == 12
		if blocked {
			assert.Equal(t, types.VerdictDeniedBlackout, d.Verdict, "hour %d", h)
		} else {
			assert.Equal(t, types.VerdictGranted, d.Verdict, "hour %d", h)
		}
	}
}
