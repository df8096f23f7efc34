package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONFormat(t *testing.T) {
	logger, err := Setup(Config{Level: "warn", Format: "json"})
	require.NoError(t, err)
	defer logger.SetOutput(log.StandardLogger().Out)

	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.Info("不应输出")
	logger.WithField("order_number", "OD240101ABC123").Warn("订单告警")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "OD240101ABC123", entry["order_number"])
	assert.Equal(t, "订单告警", entry["msg"])
}

func TestSetup_InvalidLevel(t *testing.T) {
	_, err := Setup(Config{Level: "verbose"})
	assert.Error(t, err)
}

func TestFromContext(t *testing.T) {
	entry := log.WithField("request_id", "req-1")
	ctx := WithContext(context.Background(), entry)

	assert.Equal(t, "req-1", FromContext(ctx).Data["request_id"])
	assert.NotNil(t, FromContext(context.Background()))
}
