package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Leganyst/association-portal/internal/audit"
	"github.com/Leganyst/association-portal/internal/model"
	"github.com/Leganyst/association-portal/internal/repository"
	"github.com/Leganyst/association-portal/internal/workflow"
)

var (
	tutor   = workflow.Actor{ID: uuid.New(), Role: workflow.RoleTutor}
	bde     = workflow.Actor{ID: uuid.New(), Role: workflow.RoleBDE}
	admin   = workflow.Actor{ID: uuid.New(), Role: workflow.RoleAdmin}
	student = workflow.Actor{ID: uuid.New(), Role: workflow.RoleStudent}
)

// newTestDB открывает sqlite в памяти со схемой портала. Одно соединение:
// иначе каждое новое соединение видит свою пустую базу.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type testEnv struct {
	db            *gorm.DB
	audit         *audit.Logger
	validation    *ValidationService
	clubs         *ClubService
	events        *EventService
	memberships   *MembershipService
	subscriptions *SubscriptionService
	reconcile     *ReconciliationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	log := zaptest.NewLogger(t)

	clubRepo := repository.NewGormClubRepository(db)
	eventRepo := repository.NewGormEventRepository(db)
	auditLog := audit.New(repository.NewGormAuditRepository(db), log, audit.Config{})

	validation := NewValidationService(db, auditLog, log)
	return &testEnv{
		db:            db,
		audit:         auditLog,
		validation:    validation,
		clubs:         NewClubService(db, clubRepo, validation, auditLog, log),
		events:        NewEventService(eventRepo, clubRepo, validation, auditLog, log),
		memberships:   NewMembershipService(clubRepo, repository.NewGormMembershipRepository(db), auditLog),
		subscriptions: NewSubscriptionService(db, eventRepo, repository.NewGormSubscriptionRepository(db)),
		reconcile:     NewReconciliationService(db, 0.9, auditLog, log),
	}
}

// seedClub пишет клуб напрямую, минуя проверку уникальности имени,
// как это бывало в старых данных.
func seedClub(t *testing.T, db *gorm.DB, name, description string, status model.ValidationStatus) *model.Club {
	t.Helper()
	c := &model.Club{Name: name, Description: description, ValidationStatus: status}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed club: %v", err)
	}
	return c
}

func seedMember(t *testing.T, db *gorm.DB, clubID uint64, userID uuid.UUID, role model.MemberRole, valid int) {
	t.Helper()
	m := &model.Membership{ClubID: clubID, UserID: userID, Role: role, Valid: valid}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed membership: %v", err)
	}
}

func auditActions(t *testing.T, db *gorm.DB, action string) []model.AuditRecord {
	t.Helper()
	recs, err := repository.NewGormAuditRepository(db).List(context.Background(), repository.AuditFilter{Action: action}, 100)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	return recs
}
