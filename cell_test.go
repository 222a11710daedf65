package goSession

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateCellPublishesOnlyChanges(t *testing.T) {
	c := newStateCell()
	ch, cancel := c.subscribe(4)
	defer cancel()
	require.Equal(t, StatusUninitialized, (<-ch).Status)

	require.True(t, c.set(State{Status: StatusUnauthenticated}))
	require.False(t, c.set(State{Status: StatusUnauthenticated}))
	require.Len(t, ch, 1)

	u := &UserProfile{ID: "1", Role: "User"}
	require.True(t, c.set(State{Status: StatusAuthenticated, User: u}))
	require.False(t, c.set(State{Status: StatusAuthenticated, User: &UserProfile{ID: "1", Role: "User"}}))
	require.True(t, c.set(State{Status: StatusAuthenticated, User: &UserProfile{ID: "1", Role: "Admin"}}))
	require.Len(t, ch, 3)
}

func TestStateCellIsolatesCallerProfile(t *testing.T) {
	c := newStateCell()
	u := &UserProfile{ID: "1", Role: "User"}
	c.set(State{Status: StatusAuthenticated, User: u})
	u.Role = "Admin"
	require.Equal(t, "User", c.load().User.Role)
}

func TestStateCellSubscribeAfterClose(t *testing.T) {
	c := newStateCell()
	c.close()
	ch, cancel := c.subscribe(1)
	cancel()
	_, open := <-ch
	require.False(t, open)
}

func TestDeliverLatestDropsOldest(t *testing.T) {
	ch := make(chan State, 2)
	deliverLatest(ch, State{Status: StatusUninitialized})
	deliverLatest(ch, State{Status: StatusUnauthenticated})
	deliverLatest(ch, State{Status: StatusAuthenticated})

	require.Equal(t, StatusUnauthenticated, (<-ch).Status)
	require.Equal(t, StatusAuthenticated, (<-ch).Status)
}
