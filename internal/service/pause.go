package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-order/api/internal/database"
	"github.com/resto-order/api/internal/enum"
)

const (
	defaultGlobalPauseReason = "Ordering is temporarily paused"
	defaultBranchPauseReason = "Branch is temporarily not accepting orders"
	branchNotFoundReason     = "Branch not found"
	branchClosedReason       = "Branch is currently closed"
)

// PauseStore defines the DB methods behind the pause gate.
// Satisfied by *database.Queries.
type PauseStore interface {
	GetGlobalPause(ctx context.Context) (database.GlobalPause, error)
	UpsertGlobalPause(ctx context.Context, arg database.UpsertGlobalPauseParams) (database.GlobalPause, error)
	GetBranch(ctx context.Context, id uuid.UUID) (database.Branch, error)
	UpdateBranchPause(ctx context.Context, arg database.UpdateBranchPauseParams) (database.Branch, error)
}

// ScheduleChecker reports whether a branch is open at a given time.
// Satisfied by *DirectoryService.
type ScheduleChecker interface {
	IsBranchOpen(ctx context.Context, branchID uuid.UUID, at time.Time) (bool, error)
}

// GateDecision is the answer of the pause gate.
type GateDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// PauseRequest pauses or resumes ordering. A positive DurationMinutes
// resumes automatically once it elapses.
type PauseRequest struct {
	IsPaused        bool
	Reason          string
	DurationMinutes int
}

// PauseService is the pause gate consulted before every order placement.
type PauseService struct {
	store    PauseStore
	schedule ScheduleChecker
	now      func() time.Time
}

// NewPauseService creates a PauseService. schedule may be nil to skip the
// opening-hours check.
func NewPauseService(store PauseStore, schedule ScheduleChecker) *PauseService {
	return &PauseService{store: store, schedule: schedule, now: time.Now}
}

// CanPlaceOrder checks the global pause, then the branch when branchID is
// given. It never writes.
func (s *PauseService) CanPlaceOrder(ctx context.Context, branchID *uuid.UUID) (GateDecision, error) {
	now := s.now()

	global, err := s.store.GetGlobalPause(ctx)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return GateDecision{}, fmt.Errorf("get global pause: %w", err)
	}
	if err == nil && pauseActive(global.IsPaused, global.PausedUntil, now) {
		return GateDecision{Allowed: false, Reason: reasonOr(global.Reason, defaultGlobalPauseReason)}, nil
	}

	if branchID == nil {
		return GateDecision{Allowed: true}, nil
	}

	branch, err := s.store.GetBranch(ctx, *branchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GateDecision{Allowed: false, Reason: branchNotFoundReason}, nil
		}
		return GateDecision{}, fmt.Errorf("get branch: %w", err)
	}
	if pauseActive(branch.IsPaused, branch.PausedUntil, now) {
		return GateDecision{Allowed: false, Reason: reasonOr(branch.PauseReason, defaultBranchPauseReason)}, nil
	}

	if s.schedule != nil {
		open, err := s.schedule.IsBranchOpen(ctx, branch.ID, now)
		if err != nil {
			return GateDecision{}, err
		}
		if !open {
			return GateDecision{Allowed: false, Reason: branchClosedReason}, nil
		}
	}

	return GateDecision{Allowed: true}, nil
}

// SetGlobalPauseStatus replaces the single global pause record.
func (s *PauseService) SetGlobalPauseStatus(ctx context.Context, req PauseRequest) (database.GlobalPause, error) {
	params, err := s.pauseParams(req)
	if err != nil {
		return database.GlobalPause{}, err
	}
	gp, err := s.store.UpsertGlobalPause(ctx, database.UpsertGlobalPauseParams{
		IsPaused:    params.IsPaused,
		Reason:      params.Reason,
		PausedUntil: params.PausedUntil,
	})
	if err != nil {
		return database.GlobalPause{}, fmt.Errorf("upsert global pause: %w", err)
	}
	return gp, nil
}

// SetBranchPauseStatus pauses or resumes one branch. Managers may only
// change the branch they manage.
func (s *PauseService) SetBranchPauseStatus(ctx context.Context, actor Actor, branchID uuid.UUID, req PauseRequest) (database.Branch, error) {
	params, err := s.pauseParams(req)
	if err != nil {
		return database.Branch{}, err
	}

	branch, err := s.store.GetBranch(ctx, branchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Branch{}, notFoundError(branchNotFoundReason)
		}
		return database.Branch{}, fmt.Errorf("get branch: %w", err)
	}
	if actor.Role == enum.UserRoleManager && (!branch.ManagerID.Valid || uuid.UUID(branch.ManagerID.Bytes) != actor.UserID) {
		return database.Branch{}, forbiddenError("managers can only pause their own branch")
	}

	params.ID = branchID
	updated, err := s.store.UpdateBranchPause(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Branch{}, notFoundError(branchNotFoundReason)
		}
		return database.Branch{}, fmt.Errorf("update branch pause: %w", err)
	}
	return updated, nil
}

func (s *PauseService) pauseParams(req PauseRequest) (database.UpdateBranchPauseParams, error) {
	if req.DurationMinutes < 0 {
		return database.UpdateBranchPauseParams{}, validationError("durationMinutes", "durationMinutes must not be negative")
	}
	params := database.UpdateBranchPauseParams{IsPaused: req.IsPaused}
	if !req.IsPaused {
		return params, nil
	}
	params.Reason = optionalText(req.Reason)
	if req.DurationMinutes > 0 {
		params.PausedUntil = pgtype.Timestamptz{
			Time:  s.now().Add(time.Duration(req.DurationMinutes) * time.Minute),
			Valid: true,
		}
	}
	return params, nil
}

// pauseActive treats a pause whose resume time has passed as lifted, even
// before the reconciler clears it.
func pauseActive(isPaused bool, until pgtype.Timestamptz, now time.Time) bool {
	if !isPaused {
		return false
	}
	return !until.Valid || until.Time.After(now)
}

func reasonOr(reason pgtype.Text, fallback string) string {
	if reason.Valid && reason.String != "" {
		return reason.String
	}
	return fallback
}
