package errorx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := NotFound("booking %d", 7)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "not_found: booking 7", err.Error())

	wrapped := fmt.Errorf("decide: %w", InvalidTransition("already Approved"))
	assert.True(t, errors.Is(wrapped, ErrInvalidTransition))
	assert.Equal(t, KindInvalidTransition, KindOf(wrapped))
}

func TestSelfBookingIsAuthorization(t *testing.T) {
	err := SelfBooking("unit 3")
	assert.True(t, errors.Is(err, ErrSelfBooking))
	assert.True(t, errors.Is(err, ErrAuthorization))
	assert.False(t, errors.Is(Authorization("x"), ErrSelfBooking))
}

func TestFromStore(t *testing.T) {
	assert.Nil(t, FromStore(nil, "property %d", 1))

	err := FromStore(gorm.ErrRecordNotFound, "property %d", 1)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "property 1 not found")

	cause := errors.New("connection reset")
	err = FromStore(cause, "load unit %d", 2)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, Kind(""), KindOf(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		Validation("bad rent"):      http.StatusBadRequest,
		Authorization("no"):         http.StatusForbidden,
		SelfBooking("own unit"):     http.StatusForbidden,
		InvalidTransition("done"):   http.StatusConflict,
		NotFound("unit"):            http.StatusNotFound,
		DataIntegrity("occupied>n"): http.StatusInternalServerError,
		errors.New("boom"):          http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
}

func TestDescribe(t *testing.T) {
	kind, msg := Describe(fmt.Errorf("decide: %w", InvalidTransition("booking %d is already %s", 3, "Approved")))
	assert.Equal(t, KindInvalidTransition, kind)
	assert.Equal(t, "booking 3 is already Approved", msg)

	kind, msg = Describe(errors.New("dial tcp: connection refused"))
	assert.Equal(t, KindInternal, kind)
	assert.NotContains(t, msg, "dial")
}
