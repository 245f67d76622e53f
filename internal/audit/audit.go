package audit

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Leganyst/association-portal/internal/model"
	"github.com/Leganyst/association-portal/internal/repository"
	"github.com/Leganyst/association-portal/internal/workflow"
)

// Категории событий.
const (
	CategoryWorkflow = "workflow"
	CategorySecurity = "security"
)

// Типы событий.
const (
	ActionSubmitted       = "submitted"
	ActionUpdated         = "updated"
	ActionApprovalSet     = "approval_set"
	ActionValidated       = "validated"
	ActionRejected        = "rejected"
	ActionDeleted         = "deleted"
	ActionDeleteRefused   = "delete_refused"
	ActionClubsMerged     = "clubs_merged"
	ActionMembershipAdded = "membership_added"
	ActionAccessDenied    = "access_denied"
)

// Режимы записи для категории.
const (
	ModeAll = "all" // база + zap
	ModeDB  = "db"
	ModeLog = "log"
	ModeOff = "off"
)

// Entry: одно событие аудита. Ядро заполняет сущность, статусы и актора,
// всё остальное кладётся в Details.
type Entry struct {
	Category  string
	Action    string
	Actor     workflow.Actor
	Kind      workflow.Kind
	EntityID  uint64
	OldStatus *model.ValidationStatus
	NewStatus *model.ValidationStatus
	Success   bool
	Reason    string
	Details   map[string]string
}

// Sink принимает события аудита. Ошибки записи не возвращаются
// вызывающему: журнал не должен ломать согласование.
type Sink interface {
	Record(ctx context.Context, e Entry)
}

// Config задаёт режим для каждой категории: "all", "db", "log" или "off".
type Config struct {
	Workflow string
	Security string
}

// Logger пишет события в audit_records и в zap.
type Logger struct {
	store  repository.AuditRepository
	zapLog *zap.Logger
	config Config
}

func New(store repository.AuditRepository, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// Record сохраняет событие согласно настройкам категории.
// На nil-логгере ничего не делает, это удобно в тестах.
func (l *Logger) Record(ctx context.Context, e Entry) {
	if l == nil {
		return
	}

	var mode string
	switch e.Category {
	case CategoryWorkflow:
		mode = l.config.Workflow
	case CategorySecurity:
		mode = l.config.Security
	}
	if mode == "" {
		mode = ModeAll
	}
	if mode == ModeOff {
		return
	}

	if mode == ModeAll || mode == ModeLog {
		l.logToZap(e)
	}

	if (mode == ModeAll || mode == ModeDB) && l.store != nil {
		if err := l.store.Save(ctx, toRecord(e)); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("action", e.Action),
			)
		}
	}
}

func (l *Logger) logToZap(e Entry) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", e.Category),
		zap.String("action", e.Action),
		zap.Bool("success", e.Success),
		zap.String("actor", e.Actor.String()),
	}
	if e.Kind != "" {
		fields = append(fields, zap.String("entity_kind", string(e.Kind)))
	}
	if e.EntityID != 0 {
		fields = append(fields, zap.Uint64("entity_id", e.EntityID))
	}
	if e.OldStatus != nil {
		fields = append(fields, zap.String("old_status", e.OldStatus.String()))
	}
	if e.NewStatus != nil {
		fields = append(fields, zap.String("new_status", e.NewStatus.String()))
	}
	if e.Reason != "" {
		fields = append(fields, zap.String("reason", e.Reason))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if e.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func toRecord(e Entry) *model.AuditRecord {
	rec := &model.AuditRecord{
		Category:   e.Category,
		Action:     e.Action,
		ActorRole:  string(e.Actor.Role),
		EntityKind: string(e.Kind),
		OldStatus:  e.OldStatus,
		NewStatus:  e.NewStatus,
		Success:    e.Success,
	}
	if e.Actor.ID != uuid.Nil {
		id := e.Actor.ID
		rec.ActorID = &id
	}
	if e.EntityID != 0 {
		id := e.EntityID
		rec.EntityID = &id
	}

	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	if e.Reason != "" {
		details["reason"] = e.Reason
	}
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			rec.Details = datatypes.JSON(b)
		}
	}
	return rec
}

// Status: короткий помощник для заполнения OldStatus/NewStatus.
func Status(s model.ValidationStatus) *model.ValidationStatus {
	return &s
}

// Count форматирует счётчик для Details.
func Count(n int64) string {
	return strconv.FormatInt(n, 10)
}

// Nop: приёмник, который ничего не пишет.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}

var (
	_ Sink = (*Logger)(nil)
	_ Sink = Nop{}
)
