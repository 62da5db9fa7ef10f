package placement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/zzenonn/cryptoshard/internal/errors"
	"github.com/zzenonn/cryptoshard/internal/nodeclient"
	"github.com/zzenonn/cryptoshard/internal/placement"
)

func TestPlace_PositionLocked(t *testing.T) {
	set := placement.NewNodeSet()
	a := nodeclient.New("http://node-a")
	b := nodeclient.New("http://node-b")
	set.RegisterNode(a)
	set.RegisterNode(b)

	got, err := set.Place(0)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	got, err = set.Place(1)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestPlace_OutOfRange(t *testing.T) {
	set := placement.NewNodeSet()
	set.RegisterNode(nodeclient.New("http://node-a"))

	_, err := set.Place(5)
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestURLsAndLen(t *testing.T) {
	set := placement.NewNodeSet()
	set.RegisterNode(nodeclient.New("http://node-a"))
	set.RegisterNode(nodeclient.New("http://node-b"))

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"http://node-a", "http://node-b"}, set.URLs())
	assert.Len(t, set.All(), 2)
}
