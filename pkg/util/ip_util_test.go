package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidIpv4(t *testing.T) {
	testCases := []struct {
		ip   string
		want bool
	}{
		{"192.168.1.1/24", true},
		{"10.0.0.5", true},
		{"192.168.1.300/24", false},
		{"192.168.1", false},
		{"not-an-ip", false},
		{"", false},
		{"1.0.0.2/8", false}, // internet pool is reserved
		{"7.0.0.2/8", false}, // UE pool is reserved
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, ValidIpv4(tc.ip), "ip %q", tc.ip)
	}
}

func TestAddressPoolNext(t *testing.T) {
	p, err := NewAddressPool("7.0.0.0", "255.0.0.0")
	require.NoError(t, err)

	first, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "7.0.0.1/8", first)

	second, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "7.0.0.2/8", second)

	assert.Equal(t, "7.0.0.0", p.Network())
	assert.Equal(t, "255.0.0.0", p.Mask())
}

func TestAddressPoolExhaustion(t *testing.T) {
	p, err := NewAddressPool("10.1.1.0", "255.255.255.252")
	require.NoError(t, err)

	// /30 leaves two assignable hosts between network and broadcast
	for i := 0; i < 2; i++ {
		_, err := p.Next()
		require.NoError(t, err)
	}
	_, err = p.Next()
	assert.Error(t, err)
}

func TestParseDataRate(t *testing.T) {
	testCases := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "100Gb/s", want: 100_000_000_000},
		{in: "500Mb/s", want: 500_000_000},
		{in: "64Kb/s", want: 64_000},
		{in: "1200b/s", want: 1200},
		{in: "100", wantErr: true},
		{in: "fastb/s", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := ParseDataRate(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "rate %q", tc.in)
			continue
		}
		require.NoError(t, err, "rate %q", tc.in)
		assert.Equal(t, tc.want, got, "rate %q", tc.in)
	}
}
