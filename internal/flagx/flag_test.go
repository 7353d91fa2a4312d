package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "separate value",
			args:         []string{"-d", "postgres://db", "-x", "1"},
			allowedFlags: []string{"-d"},
			want:         []string{"-d", "postgres://db"},
		},
		{
			name:         "equals form",
			args:         []string{"--config=alt.json", "-a", ":8080"},
			allowedFlags: []string{"--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag at the end keeps no value",
			args:         []string{"-s"},
			allowedFlags: []string{"-s"},
			want:         []string{"-s"},
		},
		{
			name:         "next dash token is not a value",
			args:         []string{"-c", "-t", "30"},
			allowedFlags: []string{"-c", "-t"},
			want:         []string{"-c", "-t", "30"},
		},
		{
			name:         "repeated flag keeps order",
			args:         []string{"-a", ":1", "-a", ":2"},
			allowedFlags: []string{"-a"},
			want:         []string{"-a", ":1", "-a", ":2"},
		},
		{
			name:         "empty",
			args:         []string{},
			allowedFlags: []string{"-a"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigFile(t *testing.T) {
	t.Run("short flag", func(t *testing.T) {
		assert.Equal(t, "/etc/financas.json", ConfigFile([]string{"-c", "/etc/financas.json"}))
	})

	t.Run("long flag", func(t *testing.T) {
		assert.Equal(t, "cfg.json", ConfigFile([]string{"-a", ":8080", "-config", "cfg.json"}))
	})

	t.Run("absent", func(t *testing.T) {
		assert.Empty(t, ConfigFile([]string{"-a", ":8080"}))
	})

	t.Run("last wins", func(t *testing.T) {
		assert.Equal(t, "2.json", ConfigFile([]string{"-c", "1.json", "-config", "2.json"}))
	})
}
