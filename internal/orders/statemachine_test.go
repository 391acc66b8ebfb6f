package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

func TestCanTransitionTable(t *testing.T) {
	all := []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusConfirmed,
		enums.OrderStatusPreparing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
	}
	allowed := map[enums.OrderStatus]map[enums.OrderStatus]bool{
		enums.OrderStatusPending:   {enums.OrderStatusConfirmed: true, enums.OrderStatusCancelled: true},
		enums.OrderStatusConfirmed: {enums.OrderStatusPreparing: true, enums.OrderStatusCancelled: true},
		enums.OrderStatusPreparing: {enums.OrderStatusShipped: true, enums.OrderStatusCancelled: true},
		enums.OrderStatusShipped:   {enums.OrderStatusDelivered: true},
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[from][to], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	assert.Empty(t, AllowedTransitions(enums.OrderStatusDelivered))
	assert.Empty(t, AllowedTransitions(enums.OrderStatusCancelled))
}

func TestAllowedTransitionsReturnsCopy(t *testing.T) {
	next := AllowedTransitions(enums.OrderStatusPending)
	next[0] = enums.OrderStatusDelivered
	assert.Equal(t, enums.OrderStatusConfirmed, AllowedTransitions(enums.OrderStatusPending)[0])
}

func TestValidateTransitionError(t *testing.T) {
	require.NoError(t, ValidateTransition(enums.OrderStatusShipped, enums.OrderStatusDelivered))

	err := ValidateTransition(enums.OrderStatusPending, enums.OrderStatusShipped)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, enums.OrderStatusPending, details["from"])
	assert.Equal(t, enums.OrderStatusShipped, details["to"])
}

func TestCancellableAndTrackable(t *testing.T) {
	cases := []struct {
		status      enums.OrderStatus
		cancellable bool
		trackable   bool
	}{
		{enums.OrderStatusPending, true, false},
		{enums.OrderStatusConfirmed, true, true},
		{enums.OrderStatusPreparing, true, true},
		{enums.OrderStatusShipped, false, false},
		{enums.OrderStatusDelivered, false, false},
		{enums.OrderStatusCancelled, false, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.cancellable, IsCancellable(tc.status), "cancellable %s", tc.status)
		assert.Equal(t, tc.trackable, IsTrackable(tc.status), "trackable %s", tc.status)
	}
}
