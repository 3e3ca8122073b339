package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/sketch-arena-backend/internal/errs"
	"github.com/DoyleJ11/sketch-arena-backend/internal/lobby"
	"github.com/DoyleJ11/sketch-arena-backend/internal/mode"
	"github.com/DoyleJ11/sketch-arena-backend/internal/room"
	"github.com/DoyleJ11/sketch-arena-backend/internal/voting"
)

func TestResolver(t *testing.T) {
	reg := mode.NewRegistry(zaptest.NewLogger(t))
	for _, c := range mode.Builtin() {
		require.NoError(t, reg.Register(c))
	}
	res := NewResolver(reg)

	pub, err := res.Kit("classic", room.KindPublic)
	require.NoError(t, err)
	assert.IsType(t, lobby.Standard{}, pub.Lobby)
	assert.IsType(t, voting.Elo{}, pub.Voting)

	priv, err := res.Kit("classic", room.KindPrivate)
	require.NoError(t, err)
	assert.IsType(t, lobby.Private{}, priv.Lobby)
	assert.Same(t, pub.Mode, priv.Mode)

	again, err := res.Kit("classic", room.KindPublic)
	require.NoError(t, err)
	assert.Equal(t, pub, again)
	assert.Len(t, res.kits, 2)

	_, err = res.Kit("nope", room.KindPublic)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}
