package uplinkctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAndGet(t *testing.T) {
	s := New()

	id := s.Store([]byte{1, 2, 3})
	assert.Equal(t, uint16(1), id)

	ctx, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, ctx)
}

func TestStoreIncrementsAndWraps(t *testing.T) {
	s := New()

	var last uint16
	for i := 0; i < maxUplinkID; i++ {
		last = s.Store([]byte{byte(i)})
	}
	// ids 1..4095 are assigned first, then the counter wraps to 0 on the
	// maxUplinkID-th call.
	assert.Equal(t, uint16(0), last)

	// The next call resumes at 1, silently overwriting the first entry.
	wrapped := s.Store([]byte{0xff})
	assert.Equal(t, uint16(1), wrapped)

	ctx, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff}, ctx)
}

func TestGetUnknownIDFails(t *testing.T) {
	s := New()
	_, err := s.Get(5)
	assert.Error(t, err)
}
