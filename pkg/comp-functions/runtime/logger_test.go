package runtime

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
)

func TestNewZapLogger(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		level      int
	}{
		{
			name: "GivenConsoleFormat_ThenExpectLogger",
		},
		{
			name:       "GivenJSONFormat_ThenExpectLogger",
			production: true,
			level:      1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewZapLogger("dagbucket", "v0.0.1", tt.level, tt.production)
			assert.NoError(t, err)
			assert.True(t, log.Enabled())
			assert.Equal(t, tt.level >= 1, log.V(1).Enabled())

			ctx := logr.NewContext(context.Background(), log)
			assert.NoError(t, LogMetadata(ctx, AppInfo{AppName: "dagbucket", Version: "v0.0.1"}))
		})
	}
}
