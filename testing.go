package w3g

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kelindar/w3g-sdk/mock"
)

// TestWith decodes a synthetic replay and passes it to the test function.
// The build function can adjust the mock game before it is rendered; nil
// keeps the default two-player game.
func TestWith(t *testing.T, build func(*mock.Builder), testFn func(*testing.T, *Replay)) {
	b := mock.Default()
	if build != nil {
		build(b)
	}

	replay, err := Decode(b.Bytes())
	require.NoError(t, err, "failed to decode mock replay")
	require.NotNil(t, replay, "decoded replay should not be nil")

	testFn(t, replay)
}
