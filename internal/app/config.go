package app

import (
	"github.com/talentrail/talentrail-backend/internal/logger"
	"github.com/talentrail/talentrail-backend/internal/utils"
)

type Config struct {
	ServiceName    string
	Environment    string
	SyncPolicyPath string
	Port           string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		ServiceName:    utils.GetEnv("SERVICE_NAME", "talentrail-backend", log),
		Environment:    utils.GetEnv("ENVIRONMENT", "development", log),
		SyncPolicyPath: utils.GetEnv("SYNC_POLICY_PATH", "", log),
		Port:           utils.GetEnv("PORT", "8080", log),
	}
}
