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
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.toml", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.toml"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-test.v", "-test.run", "TestX"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag followed by another flag keeps no value",
			args:         []string{"-s", "-t", "15"},
			allowedFlags: []string{"-s", "-t"},
			want:         []string{"-s", "-t", "15"},
		},
		{
			name:         "repeated allowed flag is preserved in order",
			args:         []string{"-c", "one.json", "-c", "two.json"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "one.json", "-c", "two.json"},
		},
		{
			name:         "empty args",
			args:         nil,
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	assert.Equal(t, "/etc/authkeeper.json", ConfigFileFlag([]string{"-c", "/etc/authkeeper.json"}))
	assert.Equal(t, "/etc/authkeeper.toml", ConfigFileFlag([]string{"-a", ":8080", "-config", "/etc/authkeeper.toml"}))
	assert.Equal(t, "b.json", ConfigFileFlag([]string{"-c", "a.json", "-config", "b.json"}))
	assert.Empty(t, ConfigFileFlag([]string{"-x", "1"}))
}
