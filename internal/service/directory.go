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
)

// DirectoryStore defines the DB methods needed for city, area and branch
// lookups. Satisfied by *database.Queries.
type DirectoryStore interface {
	ListCities(ctx context.Context) ([]database.City, error)
	ListAreasByCity(ctx context.Context, cityID uuid.UUID) ([]database.Area, error)
	ListBranches(ctx context.Context, cityID pgtype.UUID) ([]database.Branch, error)
	GetBranch(ctx context.Context, id uuid.UUID) (database.Branch, error)
	ListBranchSchedules(ctx context.Context, branchID uuid.UUID) ([]database.BranchSchedule, error)
}

// DirectoryService answers branch and opening-hours questions.
type DirectoryService struct {
	store DirectoryStore
	loc   *time.Location
}

// NewDirectoryService creates a DirectoryService. Opening hours are
// interpreted in loc.
func NewDirectoryService(store DirectoryStore, loc *time.Location) *DirectoryService {
	if loc == nil {
		loc = time.UTC
	}
	return &DirectoryService{store: store, loc: loc}
}

func (s *DirectoryService) ListCities(ctx context.Context) ([]database.City, error) {
	cities, err := s.store.ListCities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	return cities, nil
}

func (s *DirectoryService) ListAreas(ctx context.Context, cityID uuid.UUID) ([]database.Area, error) {
	areas, err := s.store.ListAreasByCity(ctx, cityID)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	return areas, nil
}

// ListBranches lists every branch, or only those of cityID when given.
func (s *DirectoryService) ListBranches(ctx context.Context, cityID *uuid.UUID) ([]database.Branch, error) {
	var city pgtype.UUID
	if cityID != nil {
		city = pgtype.UUID{Bytes: *cityID, Valid: true}
	}
	branches, err := s.store.ListBranches(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return branches, nil
}

func (s *DirectoryService) GetBranch(ctx context.Context, id uuid.UUID) (database.Branch, error) {
	branch, err := s.store.GetBranch(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Branch{}, notFoundError("Branch not found")
		}
		return database.Branch{}, fmt.Errorf("get branch: %w", err)
	}
	return branch, nil
}

func (s *DirectoryService) GetBranchSchedule(ctx context.Context, branchID uuid.UUID) ([]database.BranchSchedule, error) {
	if _, err := s.GetBranch(ctx, branchID); err != nil {
		return nil, err
	}
	schedules, err := s.store.ListBranchSchedules(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("list branch schedules: %w", err)
	}
	return schedules, nil
}

// IsBranchOpen reports whether the branch's weekly schedule covers at.
func (s *DirectoryService) IsBranchOpen(ctx context.Context, branchID uuid.UUID, at time.Time) (bool, error) {
	schedules, err := s.store.ListBranchSchedules(ctx, branchID)
	if err != nil {
		return false, fmt.Errorf("list branch schedules: %w", err)
	}
	return isOpenAt(schedules, at.In(s.loc)), nil
}

// isOpenAt evaluates a weekly schedule. A branch without any schedule rows
// is always open; a weekday without a row is closed. Times are "HH:MM" and
// compare lexically. A row whose close is before its open runs past
// midnight into the next day.
func isOpenAt(schedules []database.BranchSchedule, at time.Time) bool {
	if len(schedules) == 0 {
		return true
	}
	now := at.Format("15:04")
	today := int16(at.Weekday())
	yesterday := (today + 6) % 7
	for _, sc := range schedules {
		if sc.IsClosed || !sc.OpenTime.Valid || !sc.CloseTime.Valid {
			continue
		}
		open, closing := sc.OpenTime.String, sc.CloseTime.String
		overnight := closing < open
		switch sc.DayOfWeek {
		case today:
			if overnight && now >= open {
				return true
			}
			if !overnight && open <= now && now <= closing {
				return true
			}
		case yesterday:
			if overnight && now <= closing {
				return true
			}
		}
	}
	return false
}
