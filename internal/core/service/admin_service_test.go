package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskhive/taskhive-api/internal/core/domain"
	"github.com/taskhive/taskhive-api/internal/core/ports"
)

type stubStatsCache struct {
	stored *domain.Stats
	sets   int
}

func (c *stubStatsCache) Get(_ context.Context) (*domain.Stats, error) {
	return c.stored, nil
}

func (c *stubStatsCache) Set(_ context.Context, stats *domain.Stats) error {
	clone := *stats
	c.stored = &clone
	c.sets++
	return nil
}

var _ ports.StatsCache = (*stubStatsCache)(nil)

func newAdminFixture() (*AdminService, *stubUserRepo, *stubTaskRepo, *stubStatsCache, *recordingAudit) {
	users := newStubUserRepo()
	tasks := newStubTaskRepo()
	cache := &stubStatsCache{}
	audit := &recordingAudit{}
	return NewAdminService(users, tasks, cache, audit, zerolog.Nop()), users, tasks, cache, audit
}

func TestAdminService_ListUsers_AdminOnly(t *testing.T) {
	svc, users, _, _, _ := newAdminFixture()
	users.add(&domain.User{ID: "u1", Username: "u1", Role: domain.RoleUser})
	users.add(&domain.User{ID: "a1", Username: "a1", Role: domain.RoleAdmin})

	if _, err := svc.ListUsers(context.Background(), regularUser("u1")); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	listed, err := svc.ListUsers(context.Background(), adminUser("a1"))
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 users, got %d", len(listed))
	}
}

func TestAdminService_CreateUser_ByAdmin(t *testing.T) {
	svc, users, _, _, audit := newAdminFixture()
	users.add(&domain.User{ID: "a1", Username: "a1", Role: domain.RoleAdmin})

	created, err := svc.CreateUser(context.Background(), adminUser("a1"), ports.CreateUserInput{
		Name: "Eve", Username: "eve", Email: "eve@example.com", Password: "s3cret1",
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if created.Role != domain.RoleUser {
		t.Fatalf("expected default role user, got %q", created.Role)
	}
	if event := audit.last(t); event.Action != ports.AuditUserCreated || event.SubjectID != created.ID {
		t.Fatalf("unexpected audit event: %+v", event)
	}

	if _, err := svc.CreateUser(context.Background(), adminUser("a1"), ports.CreateUserInput{
		Name: "Bad", Username: "bad", Email: "bad@example.com", Password: "s3cret1", Role: "superuser",
	}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown role, got %v", err)
	}
}

func TestAdminService_CreateUser_BootstrapBypass(t *testing.T) {
	svc, users, _, _, _ := newAdminFixture()
	requester := users.add(&domain.User{ID: "u1", Username: "u1", Role: domain.RoleUser})

	// Without the admin role the bypass only covers creating an admin.
	if _, err := svc.CreateUser(context.Background(), requester, ports.CreateUserInput{
		Name: "X", Username: "x", Email: "x@example.com", Password: "s3cret1",
	}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin target role, got %v", err)
	}

	created, err := svc.CreateUser(context.Background(), requester, ports.CreateUserInput{
		Name: "First Admin", Username: "boss", Email: "boss@example.com", Password: "s3cret1", Role: domain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("bootstrap create failed: %v", err)
	}
	if created.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %q", created.Role)
	}

	// The gate closes permanently after the first admin exists.
	if _, err := svc.CreateUser(context.Background(), requester, ports.CreateUserInput{
		Name: "Second Admin", Username: "boss2", Email: "boss2@example.com", Password: "s3cret1", Role: domain.RoleAdmin,
	}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden after bootstrap, got %v", err)
	}
}

func TestAdminService_CreateUser_ClaimRace(t *testing.T) {
	svc, users, _, _, _ := newAdminFixture()
	requester := users.add(&domain.User{ID: "u1", Username: "u1", Role: domain.RoleUser})

	// Another process already claimed the bootstrap right.
	users.claimTaken = true

	if _, err := svc.CreateUser(context.Background(), requester, ports.CreateUserInput{
		Name: "First Admin", Username: "boss", Email: "boss@example.com", Password: "s3cret1", Role: domain.RoleAdmin,
	}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden when claim is taken, got %v", err)
	}
}

func TestAdminService_CreateUser_BootstrapRetryAfterFailure(t *testing.T) {
	svc, users, _, _, _ := newAdminFixture()
	requester := users.add(&domain.User{ID: "u1", Username: "u1", Role: domain.RoleUser})
	users.add(&domain.User{ID: "u2", Username: "boss", Email: "taken@example.com", Role: domain.RoleUser})

	// Rejected input never reaches the claim.
	if _, err := svc.CreateUser(context.Background(), requester, ports.CreateUserInput{
		Name: "First Admin", Username: "first", Email: "first@example.com", Password: "abc", Role: domain.RoleAdmin,
	}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for short password, got %v", err)
	}
	if users.claimTaken {
		t.Fatal("claim consumed by a rejected request")
	}

	// An insert failure after the claim hands the claim back.
	if _, err := svc.CreateUser(context.Background(), requester, ports.CreateUserInput{
		Name: "First Admin", Username: "boss", Email: "first@example.com", Password: "s3cret1", Role: domain.RoleAdmin,
	}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists for duplicate username, got %v", err)
	}
	if users.claimTaken {
		t.Fatal("claim held after failed insert")
	}

	created, err := svc.CreateUser(context.Background(), requester, ports.CreateUserInput{
		Name: "First Admin", Username: "first", Email: "first@example.com", Password: "s3cret1", Role: domain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("bootstrap retry failed: %v", err)
	}
	if created.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %q", created.Role)
	}
}

func TestAdminService_ChangeUserRole(t *testing.T) {
	svc, users, _, _, audit := newAdminFixture()
	admin := users.add(&domain.User{ID: "a1", Username: "a1", Role: domain.RoleAdmin})
	target := users.add(&domain.User{ID: "u1", Username: "u1", Role: domain.RoleUser})

	if _, err := svc.ChangeUserRole(context.Background(), regularUser("u1"), target.ID, domain.RoleAdmin); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin, got %v", err)
	}
	if _, err := svc.ChangeUserRole(context.Background(), admin, target.ID, "superuser"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown role, got %v", err)
	}
	if _, err := svc.ChangeUserRole(context.Background(), admin, admin.ID, domain.RoleUser); !errors.Is(err, domain.ErrSelfDemotion) {
		t.Fatalf("expected ErrSelfDemotion, got %v", err)
	}
	if _, err := svc.ChangeUserRole(context.Background(), admin, "ghost", domain.RoleAdmin); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	updated, err := svc.ChangeUserRole(context.Background(), admin, target.ID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("ChangeUserRole returned error: %v", err)
	}
	if updated.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %q", updated.Role)
	}
	if event := audit.last(t); event.Action != ports.AuditRoleChanged || event.Detail != domain.RoleAdmin {
		t.Fatalf("unexpected audit event: %+v", event)
	}
}

func TestAdminService_Stats(t *testing.T) {
	svc, users, tasks, cache, _ := newAdminFixture()
	users.add(&domain.User{ID: "u1", Username: "u1", Role: domain.RoleUser})
	users.add(&domain.User{ID: "a1", Username: "a1", Role: domain.RoleAdmin})

	now := time.Now()
	_, _ = tasks.Create(context.Background(), &domain.Task{Title: "t1", DueDate: now.Add(time.Hour), Priority: domain.PriorityHigh, Status: domain.StatusCompleted, OwnerID: "u1", CreatedAt: now})
	_, _ = tasks.Create(context.Background(), &domain.Task{Title: "t2", DueDate: now.Add(time.Hour), Priority: domain.PriorityMedium, Status: domain.StatusPending, OwnerID: "u1", CreatedAt: now})
	_, _ = tasks.Create(context.Background(), &domain.Task{Title: "t3", DueDate: now.Add(-time.Hour), Priority: domain.PriorityLow, Status: domain.StatusInProgress, OwnerID: "a1", CreatedAt: now})

	if _, err := svc.Stats(context.Background(), regularUser("u1"), now); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	stats, err := svc.Stats(context.Background(), adminUser("a1"), now)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.TotalUsers != 2 || stats.TotalTasks != 3 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.CompletedTasks != 1 || stats.PendingTasks != 2 {
		t.Fatalf("unexpected status counts: %+v", stats)
	}
	if stats.OverdueTasks != 1 {
		t.Fatalf("expected 1 overdue task, got %d", stats.OverdueTasks)
	}
	if stats.TasksCreatedToday != 3 {
		t.Fatalf("expected 3 tasks created today, got %d", stats.TasksCreatedToday)
	}
	if stats.ActiveUsers != 2 {
		t.Fatalf("expected 2 active users, got %d", stats.ActiveUsers)
	}
	if stats.CompletionRate != 33 {
		t.Fatalf("expected completion rate 33, got %d", stats.CompletionRate)
	}
	if cache.sets != 1 {
		t.Fatalf("expected snapshot cached once, got %d", cache.sets)
	}

	// A second read is served from the cache.
	_, _ = tasks.Create(context.Background(), &domain.Task{Title: "t4", DueDate: now, Priority: domain.PriorityLow, Status: domain.StatusPending, OwnerID: "u1", CreatedAt: now})
	cached, err := svc.Stats(context.Background(), adminUser("a1"), now)
	if err != nil {
		t.Fatalf("cached Stats returned error: %v", err)
	}
	if cached.TotalTasks != 3 {
		t.Fatalf("expected cached snapshot, got %+v", cached)
	}
}

func TestAdminService_Stats_EmptyCollection(t *testing.T) {
	svc, _, _, _, _ := newAdminFixture()

	stats, err := svc.Stats(context.Background(), adminUser("a1"), time.Now())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.CompletionRate != 0 {
		t.Fatalf("expected completion rate 0 for empty collection, got %d", stats.CompletionRate)
	}
}

func TestAdminService_ListAllTasks(t *testing.T) {
	svc, users, tasks, _, _ := newAdminFixture()
	owner := users.add(&domain.User{ID: "u1", Name: "User One", Username: "u1", Email: "u1@example.com", Role: domain.RoleUser})

	due := time.Now().Add(time.Hour)
	_, _ = tasks.Create(context.Background(), &domain.Task{Title: "known", DueDate: due, Priority: domain.PriorityLow, Status: domain.StatusPending, OwnerID: owner.ID, CreatedAt: time.Now()})
	_, _ = tasks.Create(context.Background(), &domain.Task{Title: "orphan", DueDate: due, Priority: domain.PriorityLow, Status: domain.StatusPending, OwnerID: "deleted", CreatedAt: time.Now()})

	if _, err := svc.ListAllTasks(context.Background(), regularUser("u1")); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	listed, err := svc.ListAllTasks(context.Background(), adminUser("a1"))
	if err != nil {
		t.Fatalf("ListAllTasks returned error: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(listed))
	}
	for _, item := range listed {
		switch item.Task.Title {
		case "known":
			if item.Owner == nil || item.Owner.Username != "u1" {
				t.Fatalf("expected owner populated, got %+v", item.Owner)
			}
		case "orphan":
			if item.Owner != nil {
				t.Fatalf("expected nil owner for orphaned task, got %+v", item.Owner)
			}
		}
	}
}

func TestAdminService_EnsureBootstrapAdmin(t *testing.T) {
	svc, users, _, _, _ := newAdminFixture()

	in := ports.CreateUserInput{Name: "Boss", Username: "boss", Email: "boss@example.com", Password: "s3cret1"}
	if err := svc.EnsureBootstrapAdmin(context.Background(), in); err != nil {
		t.Fatalf("EnsureBootstrapAdmin returned error: %v", err)
	}

	admin, err := users.FindByLogin(context.Background(), "boss")
	if err != nil {
		t.Fatalf("bootstrap admin not created: %v", err)
	}
	if admin.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %q", admin.Role)
	}

	// Second run is a no-op.
	if err := svc.EnsureBootstrapAdmin(context.Background(), in); err != nil {
		t.Fatalf("repeated EnsureBootstrapAdmin returned error: %v", err)
	}
	count, _ := users.CountByRole(context.Background(), domain.RoleAdmin)
	if count != 1 {
		t.Fatalf("expected exactly one admin, got %d", count)
	}
}
