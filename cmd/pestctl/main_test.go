package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatPayload_sorted(t *testing.T) {
	got := formatPayload(map[string]string{"owner": "alice", "facility_id": "1"})
	assert.Equal(t, "facility_id=1 owner=alice", got)
	assert.Equal(t, "", formatPayload(nil))
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"facility", "register"},
		{"facility", "update"},
		{"technician", "renew"},
		{"technician", "verified"},
		{"admin", "transfer"},
		{"ledger", "verify"},
		{"events", "watch"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
