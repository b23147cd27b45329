package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		want    zerolog.Level
		wantErr bool
	}{
		{"", "", zerolog.InfoLevel, false},
		{"debug", "json", zerolog.DebugLevel, false},
		{"WARN", "console", zerolog.WarnLevel, false},
		{"loud", "json", zerolog.Disabled, true},
		{"info", "xml", zerolog.Disabled, true},
	}
	for _, tt := range tests {
		log, err := New(tt.level, tt.format, &bytes.Buffer{})
		if tt.wantErr {
			assert.Error(t, err, "New(%q, %q)", tt.level, tt.format)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, log.GetLevel())
	}
}

func TestNew_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := New("info", FormatJSON, buf)
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Int("inserted", 3).Msg("import done")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"inserted":3`)
	assert.Contains(t, out, `"message":"import done"`)
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), zerolog.New(buf))

	log := FromContext(ctx)
	log.Info().Msg("test")
	assert.Contains(t, buf.String(), "test")
}

func TestFromContext_Default(t *testing.T) {
	log := FromContext(context.Background())
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}
