package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, "rideshare", cfg.Database.DBName)
	require.Equal(t, "0.1", cfg.Payment.PlatformFeeRate.String())
	require.Equal(t, SettlementQueueMemory, cfg.Settlement.Queue)
	require.Equal(t, 4, cfg.Settlement.Workers)
	require.Equal(t, 2*time.Second, cfg.Settlement.Delay)
	require.False(t, cfg.RabbitMQ.Enabled)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PLATFORM_FEE_RATE", "0.125")
	t.Setenv("SETTLEMENT_QUEUE", "redis")
	t.Setenv("SETTLEMENT_WORKERS", "8")
	t.Setenv("SETTLEMENT_DELAY", "250ms")
	t.Setenv("RABBITMQ_ENABLED", "true")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := Load()

	require.Equal(t, "0.125", cfg.Payment.PlatformFeeRate.String())
	require.Equal(t, SettlementQueueRedis, cfg.Settlement.Queue)
	require.Equal(t, 8, cfg.Settlement.Workers)
	require.Equal(t, 250*time.Millisecond, cfg.Settlement.Delay)
	require.True(t, cfg.RabbitMQ.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("PLATFORM_FEE_RATE", "ten percent")
	t.Setenv("SETTLEMENT_WORKERS", "many")

	cfg := Load()

	require.True(t, cfg.Payment.PlatformFeeRate.Equal(defaultFeeRate))
	require.Equal(t, 4, cfg.Settlement.Workers)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Setenv("PLATFORM_FEE_RATE", "1.5")
	t.Setenv("SETTLEMENT_QUEUE", "kafka")
	t.Setenv("SETTLEMENT_WORKERS", "0")
	t.Setenv("JWT_SECRET", "")

	err := Load().Validate()
	require.Error(t, err)
	for _, want := range []string{"PLATFORM_FEE_RATE", "SETTLEMENT_QUEUE", "SETTLEMENT_WORKERS", "JWT_SECRET"} {
		require.ErrorContains(t, err, want)
	}
}
