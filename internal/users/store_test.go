package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateSeededRoot(t *testing.T) {
	store := NewMemoryStore("toor")
	record, err := store.Authenticate("root", "toor")
	require.NoError(t, err)
	assert.Equal(t, uint16(0), record.UID)
	assert.Equal(t, uint16(0), record.GID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	store := NewMemoryStore("toor")
	_, err := store.Authenticate("root", "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	store := NewMemoryStore("toor")
	_, err := store.Authenticate("ghost", "anything")
	assert.ErrorAs(t, err, new(ErrUnknownUser))
}

func TestAddRejectsDuplicateUsername(t *testing.T) {
	store := NewMemoryStore("toor")
	require.NoError(t, store.Add(Record{Username: "alice", Password: "p", UID: 10, GID: 10}))

	err := store.Add(Record{Username: "alice", Password: "q", UID: 11, GID: 11})
	assert.ErrorAs(t, err, new(ErrUserExists))
}

func TestListIsSortedByUsername(t *testing.T) {
	store := NewMemoryStore("toor")
	require.NoError(t, store.Add(Record{Username: "zeus", Password: "p", UID: 10, GID: 10}))
	require.NoError(t, store.Add(Record{Username: "alice", Password: "p", UID: 11, GID: 11}))

	records := store.List()
	require.Len(t, records, 3)
	assert.Equal(t, "alice", records[0].Username)
	assert.Equal(t, "root", records[1].Username)
	assert.Equal(t, "zeus", records[2].Username)
}

func TestAddThenAuthenticate(t *testing.T) {
	store := NewMemoryStore("toor")
	require.NoError(t, store.Add(Record{Username: "alice", Password: "p", UID: 10, GID: 20}))

	record, err := store.Authenticate("alice", "p")
	require.NoError(t, err)
	assert.Equal(t, uint16(10), record.UID)
	assert.Equal(t, uint16(20), record.GID)
}
