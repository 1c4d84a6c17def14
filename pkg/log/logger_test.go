package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/go-auth-client/pkg/config"
	"github.com/klwxsrx/go-auth-client/pkg/log"
)

func TestLogger_Log_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithWriter(&buf, log.LevelInfo)

	ctx := logger.WithContext(context.Background(), log.Fields{"requestID": "r1"})
	logger.
		With(log.Fields{"url": "/api/admin"}).
		WithError(errors.New("boom")).
		Warn(ctx, "http call completed with error")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "http call completed with error", entry["message"])
	assert.Equal(t, "/api/admin", entry["url"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "r1", entry["requestID"])
}

func TestLogger_Log_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithWriter(&buf, log.LevelWarn)

	logger.Info(context.Background(), "skipped")
	assert.Zero(t, buf.Len())

	logger.Error(context.Background(), "written")
	assert.NotZero(t, buf.Len())
}

func TestNewWithWriter_DisabledIsNoop(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithWriter(&buf, log.LevelDisabled)

	logger.Error(context.Background(), "nothing")
	assert.Zero(t, buf.Len())
}

func TestForMode(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		expect func(t *testing.T, output string)
	}{
		{
			name: "console_in_dev_mode",
			mode: config.ModeDev,
			expect: func(t *testing.T, output string) {
				assert.False(t, json.Valid([]byte(output)))
				assert.Contains(t, output, "INF logged in")
				assert.Contains(t, output, "username=alice")
			},
		},
		{
			name: "json_otherwise",
			mode: "prod",
			expect: func(t *testing.T, output string) {
				var entry map[string]any
				require.NoError(t, json.Unmarshal([]byte(output), &entry))
				assert.Equal(t, "logged in", entry["message"])
				assert.Equal(t, "alice", entry["username"])
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := log.ForMode(config.Config{Mode: tc.mode}, &buf, log.LevelInfo)

			logger.WithField("username", "alice").Info(context.Background(), "logged in")

			tc.expect(t, strings.TrimSpace(buf.String()))
		})
	}
}
