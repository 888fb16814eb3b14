package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/policy"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
	"github.com/BrandonDHaskell/GateWise/server/internal/metrics"
)

var (
	ErrInvalidCredential = errors.New("credential type must be rfid or keypad")
)

// SnapshotSource supplies the registry, schedule and admin PIN in force at
// the moment of a decision. *config.Station implements it.
type SnapshotSource interface {
	Snapshot() policy.Snapshot
	Location() *time.Location
}

type Dependencies struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	Station SnapshotSource
	Audit   store.AuditStore
	Camera  Camera // optional

	DoorName        string
	RequireSnapshot bool

	Clock func() time.Time
}

type AccessService struct {
	log     *zap.Logger
	metrics *metrics.Metrics

	station SnapshotSource
	audit   store.AuditStore
	camera  Camera

	door            string
	requireSnapshot bool
	clock           func() time.Time
}

func NewAccessService(deps Dependencies) *AccessService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &AccessService{
		log:             deps.Logger,
		metrics:         deps.Metrics,
		station:         deps.Station,
		audit:           deps.Audit,
		camera:          deps.Camera,
		door:            deps.DoorName,
		requireSnapshot: deps.RequireSnapshot,
		clock:           deps.Clock,
	}
}

// Door is the name decisions made here are recorded under.
func (s *AccessService) Door() string { return s.door }

// Decide evaluates a presented credential and appends the outcome to the
// audit log. Unknown credentials are a normal denied outcome.
//
// When the audit append fails the decision is still returned, together with
// the *store.StorageError, so the caller can act on the verdict and surface
// the failure.
func (s *AccessService) Decide(ctx context.Context, req types.AccessRequest) (types.AccessResponse, error) {
	cred := req.Credential()
	if cred.Kind != types.CredentialRFID && cred.Kind != types.CredentialKeypad {
		return types.AccessResponse{}, fmt.Errorf("%w: got %q", ErrInvalidCredential, req.Type)
	}

	now := s.clock()
	if loc := s.station.Location(); loc != nil {
		now = now.In(loc)
	}

	d := policy.Decide(cred, s.station.Snapshot(), now)

	uid := cred.UID
	if d.Override {
		// never write the admin PIN to the audit log
		uid = policy.AdminName
	} else if uid == "" {
		uid = cred.Key()
	}

	snapshot := s.capture(ctx, uid, now)
	if snapshot == "" && s.requireSnapshot && d.Verdict.Granted() {
		d.Verdict = types.VerdictDeniedCamera
	}

	rec := store.Prepare(store.AuditRecord{
		Door:      s.door,
		UID:       uid,
		Name:      d.Name,
		Status:    d.Verdict,
		Snapshot:  snapshot,
		Timestamp: now,
	})

	s.metrics.Decision(string(d.Verdict))
	s.log.Info("access decision",
		zap.String("door", s.door),
		zap.String("kind", string(cred.Kind)),
		zap.String("uid", uid),
		zap.String("name", d.Name),
		zap.String("status", string(d.Verdict)),
		zap.Bool("override", d.Override),
	)

	resp := types.AccessResponse{
		OK:         true,
		Granted:    d.Verdict.Granted(),
		Status:     d.Verdict,
		Name:       d.Name,
		UID:        uid,
		Door:       s.door,
		Snapshot:   snapshot,
		RecordID:   rec.ID,
		ServerTime: now.UTC().Format(time.RFC3339Nano),
		Timestamp:  rec.Timestamp,
	}

	if err := s.audit.Append(ctx, rec); err != nil {
		s.metrics.StorageFailure()
		s.log.Error("audit append failed", zap.String("record_id", rec.ID), zap.Error(err))
		resp.OK = false
		resp.RecordID = ""
		return resp, store.Wrap("append", err)
	}
	return resp, nil
}

func (s *AccessService) capture(ctx context.Context, uid string, at time.Time) string {
	if s.camera == nil {
		return ""
	}
	ref, err := s.camera.Capture(ctx, strings.TrimSpace(uid), at)
	if err != nil {
		s.log.Warn("camera capture failed", zap.String("uid", uid), zap.Error(err))
		return ""
	}
	return ref
}
