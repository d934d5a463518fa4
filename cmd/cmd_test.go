package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashdl/internal/config"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "flashdl "+Version+"\n", out.String())
}

func TestApplyServeFlags(t *testing.T) {
	t.Cleanup(func() {
		flagListen = ""
		flagRateLimit = -1
	})

	c := config.Default()
	applyServeFlags(c)
	assert.Equal(t, ":5000", c.Listen)
	assert.Equal(t, 30, c.RateLimit)

	flagListen = "127.0.0.1:8080"
	flagRateLimit = 0
	applyServeFlags(c)
	assert.Equal(t, "127.0.0.1:8080", c.Listen)
	assert.Equal(t, 0, c.RateLimit)
}

func TestOptionIndex(t *testing.T) {
	tests := []struct {
		name     string
		n, count int
		want     int
		wantErr  error
		anyErr   bool
	}{
		{"explicit first", 1, 3, 0, nil, false},
		{"explicit last", 3, 3, 2, nil, false},
		{"single option taken", 0, 1, 0, nil, false},
		{"prompt needed", 0, 3, -1, errNoOption, true},
		{"too high", 4, 3, -1, nil, true},
		{"negative", -2, 3, -1, nil, true},
		{"nothing to pick", 0, 0, -1, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := optionIndex(tt.n, tt.count)
			assert.Equal(t, tt.want, got)
			if !tt.anyErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NotErrorIs(t, err, errNoOption)
			}
		})
	}
}
