package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Leganyst/association-portal/internal/workflow"
)

// translate приводит ошибки GORM к доменным: отсутствие строки превращается
// в workflow.ErrNotFound, остальные ошибки хранилища пробрасываются как есть.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, workflow.ErrNotFound)
	}
	return err
}
