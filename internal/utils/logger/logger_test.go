package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLevelForEnvironment(t *testing.T) {
	tests := []struct {
		environment string
		want        zerolog.Level
	}{
		{"dev", zerolog.TraceLevel},
		{"TEST", zerolog.TraceLevel},
		{"prod", zerolog.InfoLevel},
		{"staging", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelForEnvironment(tt.environment))
		})
	}
}

func TestSugarBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		Sugar().Infow("not initialised", "key", "value")
	})
}
