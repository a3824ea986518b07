package collab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopAuth_AlwaysSucceeds(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	userID, err := NoopAuth{}.Verify(r)
	assert.NoError(t, err)
	assert.NotEmpty(t, userID)
}

func TestHeaderTokenAuth_AcceptsMatchingBearerToken(t *testing.T) {
	a := HeaderTokenAuth{HeaderKey: "Authorization", Secret: "s3cret"}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer s3cret")

	_, err := a.Verify(r)
	assert.NoError(t, err)
}

func TestHeaderTokenAuth_RejectsWrongToken(t *testing.T) {
	a := HeaderTokenAuth{HeaderKey: "Authorization", Secret: "s3cret"}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer wrong")

	_, err := a.Verify(r)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestHeaderTokenAuth_RejectsMissingHeader(t *testing.T) {
	a := HeaderTokenAuth{HeaderKey: "Authorization", Secret: "s3cret"}
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := a.Verify(r)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestNoopRateLimiter_AlwaysAllows(t *testing.T) {
	l := NoopRateLimiter{}
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("user"))
	}
}

func TestTokenBucketLimiter_RejectsAfterBurstWithinWindow(t *testing.T) {
	l := NewTokenBucketLimiter(2, time.Minute)
	assert.True(t, l.Allow("u"))
	assert.True(t, l.Allow("u"))
	assert.False(t, l.Allow("u"))
}

func TestTokenBucketLimiter_TracksCallersIndependently(t *testing.T) {
	l := NewTokenBucketLimiter(1, time.Minute)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.False(t, l.Allow("a"))
}

func TestTokenBucketLimiter_ResetsAfterWindowElapses(t *testing.T) {
	l := NewTokenBucketLimiter(1, 5*time.Millisecond)
	assert.True(t, l.Allow("u"))
	assert.False(t, l.Allow("u"))
	time.Sleep(10 * time.Millisecond)
	assert.True(t, l.Allow("u"))
}

func TestNoopObjectStore_GetAlwaysMisses(t *testing.T) {
	s := NoopObjectStore{}
	assert.NoError(t, s.Put(context.Background(), "k", []byte("v")))
	_, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestDisabledTranslator_AlwaysFails(t *testing.T) {
	_, err := DisabledTranslator{}.Translate(context.Background(), "how many widgets?", 1)
	assert.ErrorIs(t, err, ErrTranslatorDisabled)
}
