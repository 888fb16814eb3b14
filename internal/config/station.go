package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/policy"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
)

var (
	ErrInvalidBlock   = errors.New("invalid blackout block")
	ErrUnknownWeekday = errors.New("unknown weekday")
	ErrInvalidUser    = errors.New("invalid user record")
)

// StationFile is the persisted station configuration (data/config.json).
// Unknown keys, such as the UI's theme settings, are ignored.
type StationFile struct {
	AdminPIN  string                 `json:"admin_pin" yaml:"admin_pin"`
	Timezone  string                 `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	ThemeMode string                 `json:"theme_mode,omitempty" yaml:"theme_mode,omitempty"`
	Blackout  types.BlackoutSchedule `json:"blackout" yaml:"blackout"`
}

func (f StationFile) Validate() error {
	if err := ValidateSchedule(f.Blackout); err != nil {
		return err
	}
	if _, err := loadLocation(f.Timezone); err != nil {
		return err
	}
	return nil
}

// ValidateSchedule checks weekday keys and block ranges. Timed blocks must
// satisfy 0 <= start < end <= 24; blocks that would wrap past midnight are
// rejected and must be split across two days instead.
func ValidateSchedule(s types.BlackoutSchedule) error {
	for day, blocks := range s {
		if !slices.Contains(types.Weekdays, day) {
			return fmt.Errorf("%w: %q", ErrUnknownWeekday, day)
		}
		for i, b := range blocks {
			if b.AllDay {
				continue
			}
			if b.Start < 0 || b.Start > 23 || b.End < 1 || b.End > 24 {
				return fmt.Errorf("%w: %s[%d] hours %d-%d out of range", ErrInvalidBlock, day, i, b.Start, b.End)
			}
			if b.Start >= b.End {
				return fmt.Errorf("%w: %s[%d] start %d is not before end %d", ErrInvalidBlock, day, i, b.Start, b.End)
			}
		}
	}
	return nil
}

func ValidateUsers(r types.UserRegistry) error {
	for uid, rec := range r {
		if strings.TrimSpace(uid) == "" || uid != strings.TrimSpace(uid) {
			return fmt.Errorf("%w: uid %q", ErrInvalidUser, uid)
		}
		if strings.TrimSpace(rec.Name) == "" {
			return fmt.Errorf("%w: uid %q has no name", ErrInvalidUser, uid)
		}
	}
	return nil
}

func LoadStationFile(path string) (StationFile, error) {
	var f StationFile
	if err := decodeFile(path, &f); err != nil {
		return StationFile{}, err
	}
	if err := f.Validate(); err != nil {
		return StationFile{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func LoadUsers(path string) (types.UserRegistry, error) {
	reg := types.UserRegistry{}
	if err := decodeFile(path, &reg); err != nil {
		return nil, err
	}
	if err := ValidateUsers(reg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// decodeFile reads YAML for .yaml/.yml paths and JSONC (JSON with comments
// and trailing commas) for everything else.
func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), out); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return nil
}

// writeFile replaces path atomically with v encoded in the format its
// extension selects.
func writeFile(path string, v any) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(v)
	default:
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return loc, nil
}

type stationState struct {
	file  StationFile
	users types.UserRegistry
	loc   *time.Location
}

// Station owns the user registry and blackout schedule. Readers take an
// immutable Snapshot; writers replace the whole state and persist it.
type Station struct {
	usersPath   string
	stationPath string

	mu  sync.Mutex // serializes writers
	cur atomic.Pointer[stationState]
}

// NewStation builds an in-memory station that never touches disk.
func NewStation(file StationFile, users types.UserRegistry) (*Station, error) {
	return newStation("", "", file, users)
}

// OpenStation loads the registry and station file. A missing file is
// treated as empty so a fresh station starts with no users and no blackout.
func OpenStation(usersPath, stationPath string) (*Station, error) {
	var file StationFile
	if _, err := os.Stat(stationPath); err == nil {
		if file, err = LoadStationFile(stationPath); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	users := types.UserRegistry{}
	if _, err := os.Stat(usersPath); err == nil {
		if users, err = LoadUsers(usersPath); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return newStation(usersPath, stationPath, file, users)
}

func newStation(usersPath, stationPath string, file StationFile, users types.UserRegistry) (*Station, error) {
	if err := file.Validate(); err != nil {
		return nil, err
	}
	if users == nil {
		users = types.UserRegistry{}
	}
	if err := ValidateUsers(users); err != nil {
		return nil, err
	}
	loc, _ := loadLocation(file.Timezone)

	s := &Station{usersPath: usersPath, stationPath: stationPath}
	file.Blackout = file.Blackout.Clone()
	s.cur.Store(&stationState{file: file, users: users, loc: loc})
	return s, nil
}

func (s *Station) Snapshot() policy.Snapshot {
	st := s.cur.Load()
	return policy.Snapshot{
		Users:    st.users,
		Schedule: st.file.Blackout,
		AdminPIN: st.file.AdminPIN,
	}
}

// Location is the timezone blackout hours are evaluated in.
func (s *Station) Location() *time.Location {
	return s.cur.Load().loc
}

func (s *Station) Users() types.UserRegistry {
	return s.cur.Load().users
}

func (s *Station) Schedule() types.BlackoutSchedule {
	return s.cur.Load().file.Blackout.Clone()
}

// AssignUser enrolls rec, rewriting the whole registry file.
func (s *Station) AssignUser(rec types.UserRecord) error {
	rec.UID = strings.TrimSpace(rec.UID)
	rec.Name = strings.TrimSpace(rec.Name)

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.cur.Load()
	users := cur.users.Assign(rec)
	if err := ValidateUsers(users); err != nil {
		return err
	}
	if s.usersPath != "" {
		if err := writeFile(s.usersPath, users); err != nil {
			return fmt.Errorf("save users: %w", err)
		}
	}
	next := *cur
	next.users = users
	s.cur.Store(&next)
	return nil
}

// ReplaceSchedule swaps in a new blackout schedule and persists the station
// file. There is no partial update.
func (s *Station) ReplaceSchedule(schedule types.BlackoutSchedule) error {
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.cur.Load()
	next := *cur
	next.file.Blackout = schedule.Clone()
	if s.stationPath != "" {
		if err := writeFile(s.stationPath, next.file); err != nil {
			return fmt.Errorf("save station: %w", err)
		}
	}
	s.cur.Store(&next)
	return nil
}
