package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDemandStatus(t *testing.T) {
	cases := []struct {
		confirmed, toSend string
		want              string
	}{
		{"0", "40", DemandPending},
		{"0.5", "40", DemandPartial},
		{"39", "40", DemandPartial},
		{"40", "40", DemandDone},
		{"41", "40", DemandDone},
		{"0", "0", DemandPending},
	}
	for _, c := range cases {
		t.Run(c.confirmed+"/"+c.toSend, func(t *testing.T) {
			assert.Equal(t, c.want, DemandStatus(d(c.confirmed), d(c.toSend)))
		})
	}
}

func TestPendingNeverNegative(t *testing.T) {
	assert.True(t, Pending(d("40"), d("10")).Equal(d("30")))
	assert.True(t, Pending(d("40"), d("50")).IsZero())
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("confirm: %w", ErrExhausted)
	assert.True(t, errors.Is(wrapped, ErrExhausted))
	assert.Equal(t, ErrConflict, Kind(wrapped))

	assert.Equal(t, ErrWrongState, Kind(ErrBlocked))
	assert.Equal(t, ErrWrongState, Kind(ErrEmpty))
	assert.Equal(t, ErrNotFound, Kind(ErrNoDemand))
	assert.Equal(t, ErrValidation, Kind(ErrComplete))
	assert.Equal(t, ErrValidation, Kind(Errorf(ErrValidation, "qty %d", 3)))
	assert.Nil(t, Kind(errors.New("boom")))
}

func TestRequireActor(t *testing.T) {
	assert.ErrorIs(t, RequireActor(""), ErrUnauthenticated)
	assert.NoError(t, RequireActor("op1"))
}

func TestRoles(t *testing.T) {
	assert.True(t, ValidRole(RoleOperator))
	assert.False(t, ValidRole("GUEST"))
	assert.True(t, CanSupervise(RoleSupervisor))
	assert.False(t, CanSupervise(RoleAuditor))
}
