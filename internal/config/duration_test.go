package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalYAML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "seconds", input: `"30s"`, want: 30 * time.Second},
		{name: "milliseconds", input: `"300ms"`, want: 300 * time.Millisecond},
		{name: "compound", input: `"1h30m"`, want: 90 * time.Minute},
		{name: "empty string", input: `""`, want: 0},
		{name: "invalid", input: `"soon"`, wantErr: true},
		{name: "bare number", input: `30`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var d Duration
			err := yaml.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration())
		})
	}
}

func TestDuration_MarshalYAML(t *testing.T) {
	t.Parallel()

	d := Duration(90 * time.Second)
	out, err := yaml.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, "1m30s\n", string(out))
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "quoted", input: `"5m"`, want: 5 * time.Minute},
		{name: "null", input: `null`, want: 0},
		{name: "empty", input: `""`, want: 0},
		{name: "invalid", input: `"later"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration())
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	t.Parallel()

	d := Duration(30 * time.Second)
	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"30s"`, string(out))
}

func TestDuration_RoundTrip(t *testing.T) {
	t.Parallel()

	type wrapper struct {
		Timeout Duration `yaml:"timeout"`
	}

	in := wrapper{Timeout: Duration(45 * time.Second)}
	data, err := yaml.Marshal(in)
	require.NoError(t, err)

	var out wrapper
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.Equal(t, in.Timeout, out.Timeout)
}
