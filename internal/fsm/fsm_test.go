package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateListening, next)

	next, err = Transition(next, EventStop)
	require.NoError(t, err)
	require.Equal(t, StateProcessing, next)

	next, err = Transition(next, EventComplete)
	require.NoError(t, err)
	require.Equal(t, StateComplete, next)

	next, err = Transition(next, EventRevert)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionFailureRevert(t *testing.T) {
	next, err := Transition(StateProcessing, EventFail)
	require.NoError(t, err)
	require.Equal(t, StateError, next)

	next, err = Transition(next, EventRevert)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionCancel(t *testing.T) {
	next, err := Transition(StateListening, EventCancel)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)

	next, err = Transition(StateProcessing, EventCancel)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionRejectsInvalidEvents(t *testing.T) {
	cases := []struct {
		state State
		event Event
	}{
		{StateIdle, EventStop},
		{StateIdle, EventCancel},
		{StateIdle, EventRevert},
		{StateListening, EventStart},
		{StateProcessing, EventStart},
		{StateProcessing, EventStop},
		{StateComplete, EventStart},
		{StateComplete, EventCancel},
		{StateError, EventStart},
		{StateError, EventCancel},
	}

	for _, tc := range cases {
		next, err := Transition(tc.state, tc.event)
		require.Error(t, err, "state=%s event=%s", tc.state, tc.event)
		require.Equal(t, tc.state, next)
	}
}

func TestTransitionUnknownState(t *testing.T) {
	_, err := Transition(State("warp"), EventStart)
	require.Error(t, err)
}
