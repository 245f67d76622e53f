package model

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotProvisioned — таблица ещё не создана миграцией.
var ErrNotProvisioned = errors.New("storage is not provisioned")

// AutoMigrate выполняет миграцию всех сущностей портала.
// Идемпотентна: запускается один раз при старте, повторный запуск
// (в том числе параллельный) ничего не ломает.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Role{},
		&UserRole{},
		&Club{},
		&Event{},
		&Membership{},
		&Subscription{},
		&AuditRecord{},
	)
}

// SubscriptionsReady — явная проверка готовности хранилища подписок
// вместо перехвата ошибки "no such table".
// Контекст берётся из db.WithContext; отменённый запрос не проверяет схему.
func SubscriptionsReady(db *gorm.DB) error {
	if ctx := db.Statement.Context; ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if !db.Migrator().HasTable(&Subscription{}) {
		return fmt.Errorf("subscriptions: %w", ErrNotProvisioned)
	}
	return nil
}
