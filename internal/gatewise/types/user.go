package types

import "strings"

// UserRecord is one enrolled credential. UID is the registry key and is not
// repeated inside the persisted value.
type UserRecord struct {
	UID     string `json:"-" yaml:"-"`
	Name    string `json:"name" yaml:"name"`
	IsAdmin bool   `json:"admin" yaml:"admin"`
}

// UserRegistry maps a credential UID to its enrolled user. Registries are
// treated as immutable values: Assign returns a new map.
type UserRegistry map[string]UserRecord

func (r UserRegistry) Lookup(uid string) (UserRecord, bool) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return UserRecord{}, false
	}
	rec, ok := r[uid]
	if !ok {
		return UserRecord{}, false
	}
	rec.UID = uid
	return rec, true
}

// Assign returns a copy of r with rec enrolled under rec.UID, replacing any
// previous record for that UID.
func (r UserRegistry) Assign(rec UserRecord) UserRegistry {
	out := make(UserRegistry, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	uid := strings.TrimSpace(rec.UID)
	rec.UID = ""
	out[uid] = rec
	return out
}
