package config

import "fmt"

// AppConfig: настройки процесса, не относящиеся к БД.
type AppConfig struct {
	GRPCAddr  string
	LogLevel  string
	LogFormat string // json | console

	AuditWorkflow string // all | db | log | off
	AuditSecurity string

	// Порог похожести имён клубов для подсказок сверки (0..1].
	NearDuplicateThreshold float32

	// Email первого администратора; пусто: не заводить.
	BootstrapAdminEmail string
}

func LoadAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		GRPCAddr:               getEnv("GRPC_ADDR", ":50051"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "json"),
		AuditWorkflow:          getEnv("AUDIT_LOG_WORKFLOW", "all"),
		AuditSecurity:          getEnv("AUDIT_LOG_SECURITY", "all"),
		NearDuplicateThreshold: float32(getEnvFloat("NEAR_DUPLICATE_THRESHOLD", 0.9)),
		BootstrapAdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want json or console", cfg.LogFormat)
	}
	for key, mode := range map[string]string{
		"AUDIT_LOG_WORKFLOW": cfg.AuditWorkflow,
		"AUDIT_LOG_SECURITY": cfg.AuditSecurity,
	} {
		switch mode {
		case "all", "db", "log", "off":
		default:
			return nil, fmt.Errorf("invalid %s %q: want all, db, log or off", key, mode)
		}
	}
	if cfg.NearDuplicateThreshold <= 0 || cfg.NearDuplicateThreshold > 1 {
		return nil, fmt.Errorf("invalid NEAR_DUPLICATE_THRESHOLD %v: want (0, 1]", cfg.NearDuplicateThreshold)
	}
	return cfg, nil
}
