package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskhive/taskhive-api/internal/core/domain"
	"github.com/taskhive/taskhive-api/internal/core/ports"
	"github.com/taskhive/taskhive-api/internal/metrics"
)

// AdminService implements the administrative operations: user management,
// cross-user task views, and aggregate statistics.
type AdminService struct {
	users  ports.UserRepository
	tasks  ports.TaskRepository
	cache  ports.StatsCache
	audit  ports.AuditEmitter
	logger zerolog.Logger
}

func NewAdminService(users ports.UserRepository, tasks ports.TaskRepository, cache ports.StatsCache, audit ports.AuditEmitter, logger zerolog.Logger) *AdminService {
	if audit == nil {
		audit = ports.NopAuditEmitter{}
	}
	return &AdminService{users: users, tasks: tasks, cache: cache, audit: audit, logger: logger}
}

func (s *AdminService) ListUsers(ctx context.Context, requester *domain.User) ([]*domain.User, error) {
	if requester.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	return s.users.List(ctx)
}

// CreateUser provisions an account. Admin-only, with a single-use bootstrap
// exception: before any admin exists, any authenticated requester may
// create the initial admin. The exception is guarded by an atomic claim in
// the user store, so concurrent first requests cannot both pass.
func (s *AdminService) CreateUser(ctx context.Context, requester *domain.User, in ports.CreateUserInput) (*domain.User, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("%w: role must be %q or %q", domain.ErrValidation, domain.RoleAdmin, domain.RoleUser)
	}

	if in.Name == "" || in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, username, email and password are required", domain.ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	// The claim is taken last, with only the insert left to run, so a
	// rejected request cannot consume it. If the insert still fails the
	// claim is handed back: the gate must stay open until an admin exists.
	claimed := false
	if requester == nil || requester.Role != domain.RoleAdmin {
		if role != domain.RoleAdmin {
			return nil, domain.ErrForbidden
		}
		count, err := s.users.CountByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return nil, err
		}
		if !domain.CanBypassAdminCheck(count) {
			metrics.PolicyDenialsTotal.WithLabelValues("create_user").Inc()
			return nil, domain.ErrForbidden
		}
		claimed, err = s.users.ClaimFirstAdmin(ctx)
		if err != nil {
			return nil, err
		}
		if !claimed {
			// A concurrent request won the claim; the gate is closed.
			return nil, domain.ErrForbidden
		}
		s.logger.Warn().Msg("no admin account present, bootstrap bypass granted")
	}

	now := time.Now().UTC()
	user, err := s.users.Create(ctx, &domain.User{
		Name:         in.Name,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if claimed {
			if releaseErr := s.users.ReleaseFirstAdmin(ctx); releaseErr != nil {
				s.logger.Error().Err(releaseErr).Msg("failed to release first admin claim")
			}
		}
		return nil, err
	}

	actorID := ""
	if requester != nil {
		actorID = requester.ID
	}
	s.audit.Emit(ports.AuditEvent{
		Action:     ports.AuditUserCreated,
		ActorID:    actorID,
		SubjectID:  user.ID,
		Detail:     role,
		OccurredAt: now,
	})
	return user, nil
}

// ChangeUserRole updates the target user's role. An admin may never demote
// themselves.
func (s *AdminService) ChangeUserRole(ctx context.Context, requester *domain.User, targetID, role string) (*domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("%w: role must be %q or %q", domain.ErrValidation, domain.RoleAdmin, domain.RoleUser)
	}
	if requester.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	if !domain.CanChangeRole(requester, targetID, role) {
		return nil, domain.ErrSelfDemotion
	}

	user, err := s.users.UpdateRole(ctx, targetID, role)
	if err != nil {
		return nil, err
	}

	s.audit.Emit(ports.AuditEvent{
		Action:     ports.AuditRoleChanged,
		ActorID:    requester.ID,
		SubjectID:  user.ID,
		Detail:     role,
		OccurredAt: time.Now().UTC(),
	})
	return user, nil
}

// Stats aggregates over the full task and user collections. Snapshots are
// cached with a short TTL; a cache failure falls through to the stores.
func (s *AdminService) Stats(ctx context.Context, requester *domain.User, asOf time.Time) (*domain.Stats, error) {
	if requester.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("stats cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	stats, err := s.tasks.Stats(ctx, asOf)
	if err != nil {
		return nil, err
	}
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats.TotalUsers = totalUsers
	stats.CompletionRate = completionRate(stats.CompletedTasks, stats.TotalTasks)

	if s.cache != nil {
		if err := s.cache.Set(ctx, &stats); err != nil {
			s.logger.Warn().Err(err).Msg("stats cache write failed")
		}
	}
	return &stats, nil
}

// ListAllTasks returns every task joined with its owner's profile, newest
// first.
func (s *AdminService) ListAllTasks(ctx context.Context, requester *domain.User) ([]ports.TaskWithOwner, error) {
	if requester.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}

	tasks, err := s.tasks.List(ctx, ports.TaskFilter{SortBy: "createdAt", Desc: true})
	if err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]ports.TaskWithOwner, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ports.TaskWithOwner{Task: t, Owner: byID[t.OwnerID]})
	}
	return out, nil
}

// EnsureBootstrapAdmin provisions the first admin during startup. It goes
// through the same atomic claim as the request path, so it cannot race a
// concurrent first request into two initial admins.
func (s *AdminService) EnsureBootstrapAdmin(ctx context.Context, in ports.CreateUserInput) error {
	count, err := s.users.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	if !domain.CanBypassAdminCheck(count) {
		return nil
	}

	in.Role = domain.RoleAdmin
	if _, err := s.CreateUser(ctx, nil, in); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	s.logger.Info().Str("username", in.Username).Msg("bootstrap admin provisioned")
	return nil
}

// completionRate is the rounded percentage of completed tasks; 0 when the
// collection is empty.
func completionRate(completed, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
