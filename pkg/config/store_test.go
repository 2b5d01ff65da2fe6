package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinDefaults(t *testing.T) {
	s := New()

	assert.True(t, s.Bool("radio.harqEnabled"))
	assert.False(t, s.Bool("radio.rlcAmEnabled"))
	assert.Equal(t, "flex-tti", s.String("sched.type"))
	assert.Equal(t, "100Gb/s", s.String("p2p.dataRate"))
	assert.Equal(t, uint(1500), s.Uint("p2p.mtu"))
	assert.Equal(t, 10*time.Millisecond, s.Duration("p2p.delay"))
	assert.Equal(t, 100*time.Microsecond, s.Duration("rlc.am.reportBufferStatusTimer"))
}

func TestSetDefault(t *testing.T) {
	testCases := []struct {
		name    string
		key     string
		val     interface{}
		wantErr bool
	}{
		{name: "bool ok", key: "radio.harqEnabled", val: false},
		{name: "uint from int", key: "p2p.mtu", val: 9000},
		{name: "uint from float", key: "p2p.mtu", val: 9000.0},
		{name: "float from int", key: "radio.lossPct", val: 2},
		{name: "duration from string", key: "p2p.delay", val: "5ms"},
		{name: "string ok", key: "sched.type", val: "round-robin"},
		{name: "unknown key", key: "no.such.key", val: 1, wantErr: true},
		{name: "bool from string", key: "radio.harqEnabled", val: "yes", wantErr: true},
		{name: "negative uint", key: "p2p.mtu", val: -1, wantErr: true},
		{name: "fractional uint", key: "p2p.mtu", val: 1.5, wantErr: true},
		{name: "bad duration", key: "p2p.delay", val: "fast", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := New()
			err := s.SetDefault(tc.key, tc.val)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadBytes(t *testing.T) {
	s := New()
	doc := []byte("radio.lossPct: 1.5\np2p.delay: 20ms\nsched.type: round-robin\np2p.mtu: 9000\n")
	require.NoError(t, s.LoadBytes(doc))

	assert.Equal(t, 1.5, s.Float("radio.lossPct"))
	assert.Equal(t, 20*time.Millisecond, s.Duration("p2p.delay"))
	assert.Equal(t, "round-robin", s.String("sched.type"))
	assert.Equal(t, uint(9000), s.Uint("p2p.mtu"))
}

func TestLoadBytesUnknownKey(t *testing.T) {
	s := New()
	err := s.LoadBytes([]byte("not.a.key: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}
