package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{"separate value", []string{"-c", "conf.json", "-a", "localhost"}, []string{"-c"}, []string{"-c", "conf.json"}},
		{"equals form", []string{"-config=alt.json", "-a", "x"}, []string{"-config"}, []string{"-config=alt.json"}},
		{"unknown ignored", []string{"-x", "1", "-y=2", "positional"}, []string{"-c"}, []string{}},
		{"trailing flag without value", []string{"-c"}, []string{"-c"}, []string{"-c"}},
		{"next flag is not a value", []string{"-c", "-bootstrap", "a@b"}, []string{"-c"}, []string{"-c"}},
		{"several allowed", []string{"-a", ":8080", "-d", "dsn", "-z"}, []string{"-a", "-d"}, []string{"-a", ":8080", "-d", "dsn"}},
		{"repeated flag keeps order", []string{"-c", "1.json", "-c", "2.json"}, []string{"-c"}, []string{"-c", "1.json", "-c", "2.json"}},
		{"empty", []string{}, []string{"-c"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"bin", "-c", "/etc/dualcal.json"}
	assert.Equal(t, "/etc/dualcal.json", ConfigPath())

	os.Args = []string{"bin", "-config=/tmp/x.json", "-a", ":1"}
	assert.Equal(t, "/tmp/x.json", ConfigPath())

	os.Args = []string{"bin", "-a", ":1"}
	assert.Empty(t, ConfigPath())

	os.Args = []string{"bin", "-c", "1.json", "-config", "2.json"}
	assert.Equal(t, "2.json", ConfigPath())
}
