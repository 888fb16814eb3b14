package policy

import (
	"time"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
)

const (
	UnknownName = "Unknown"
	AdminName   = "Admin"
)

// Snapshot is the configuration a single decision is made against. Callers
// take a fresh snapshot for every decision so schedule and registry edits
// apply immediately.
type Snapshot struct {
	Users    types.UserRegistry
	Schedule types.BlackoutSchedule
	AdminPIN string
}

type Decision struct {
	Verdict types.Verdict
	Name    string
	Admin   bool

	// Override is set when the keypad admin PIN was used.
	Override bool
}

// Decide computes the verdict for cred at now.
//
// A keypad PIN equal to the configured admin PIN is an admin override.
// Otherwise the credential is looked up in the registry: unknown
// credentials are denied, known ones are granted unless a blackout block
// covers now and the user is not an admin. Blackout only ever downgrades a
// grant.
func Decide(cred types.Credential, snap Snapshot, now time.Time) Decision {
	if cred.Kind == types.CredentialKeypad && snap.AdminPIN != "" && cred.PIN == snap.AdminPIN {
		return Decision{Verdict: types.VerdictGranted, Name: AdminName, Admin: true, Override: true}
	}

	user, ok := snap.Users.Lookup(cred.Key())
	if !ok {
		return Decision{Verdict: types.VerdictDenied, Name: UnknownName}
	}

	d := Decision{Verdict: types.VerdictGranted, Name: user.Name, Admin: user.IsAdmin}
	if IsBlocked(snap.Schedule, now, user.IsAdmin) {
		d.Verdict = types.VerdictDeniedBlackout
	}
	return d
}
