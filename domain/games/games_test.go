package games

import (
	"bytes"
	"testing"

	"betledger/domain/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSeed(b byte) []byte {
	return bytes.Repeat([]byte{b}, SeedSize)
}

func TestNewSeed(t *testing.T) {
	t.Parallel()

	a, err := NewSeed()
	require.NoError(t, err)
	b, err := NewSeed()
	require.NoError(t, err)
	assert.Len(t, a, SeedSize)
	assert.NotEqual(t, a, b)
}

func TestRngFor_RejectsShortSeed(t *testing.T) {
	t.Parallel()

	_, err := DrawColor(entities.DefaultColorSettings(), []byte("short"))
	assert.Error(t, err)
}

func TestDrawColor(t *testing.T) {
	t.Parallel()

	t.Run("deterministic per seed", func(t *testing.T) {
		settings := entities.DefaultColorSettings()
		first, err := DrawColor(settings, fixedSeed(1))
		require.NoError(t, err)
		second, err := DrawColor(settings, fixedSeed(1))
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.True(t, settings.HasColor(first))
	})

	t.Run("forced colour wins", func(t *testing.T) {
		settings := entities.DefaultColorSettings()
		settings.NextColor = "green"
		for i := byte(0); i < 20; i++ {
			drawn, err := DrawColor(settings, fixedSeed(i))
			require.NoError(t, err)
			assert.Equal(t, "green", drawn)
		}
	})

	t.Run("every colour reachable", func(t *testing.T) {
		settings := entities.DefaultColorSettings()
		seen := map[string]bool{}
		for i := 0; i < 200 && len(seen) < 3; i++ {
			drawn, err := DrawColor(settings, fixedSeed(byte(i)))
			require.NoError(t, err)
			seen[drawn] = true
		}
		assert.Len(t, seen, 3)
	})
}

func TestColorPayout(t *testing.T) {
	t.Parallel()

	settings := entities.DefaultColorSettings()
	assert.Equal(t, int64(300), ColorPayout(settings, 100, "green", "green"))
	assert.Equal(t, int64(150), ColorPayout(settings, 100, "blue", "blue"))
	assert.Equal(t, int64(16), ColorPayout(settings, 11, "blue", "blue"))
	assert.Zero(t, ColorPayout(settings, 100, "red", "blue"))
}

func TestMinesLayout(t *testing.T) {
	t.Parallel()

	settings := entities.DefaultMinesSettings()
	bombs, err := MinesLayout(settings, fixedSeed(7))
	require.NoError(t, err)
	require.Len(t, bombs, settings.BombCount)

	seen := map[int]bool{}
	for i, b := range bombs {
		assert.GreaterOrEqual(t, b, 0)
		assert.Less(t, b, settings.TileCount())
		assert.False(t, seen[b], "duplicate bomb %d", b)
		seen[b] = true
		if i > 0 {
			assert.Less(t, bombs[i-1], b)
		}
	}

	again, err := MinesLayout(settings, fixedSeed(7))
	require.NoError(t, err)
	assert.Equal(t, bombs, again)
}

func TestReveal(t *testing.T) {
	t.Parallel()

	settings := entities.DefaultMinesSettings()
	settings.GridSize = 2
	settings.BombCount = 1

	t.Run("safe tiles raise multiplier then clear", func(t *testing.T) {
		board := NewMinesBoard(settings, []int{3})

		result, err := Reveal(board, 0)
		require.NoError(t, err)
		assert.False(t, result.HitBomb)
		assert.False(t, result.Cleared)
		assert.Equal(t, "1.2", board.CurrentMultiplier)

		_, err = Reveal(board, 1)
		require.NoError(t, err)
		result, err = Reveal(board, 2)
		require.NoError(t, err)
		assert.True(t, result.Cleared)

		m, err := BoardMultiplier(board)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("1.6").Equal(m))
	})

	t.Run("bomb ends the board", func(t *testing.T) {
		board := NewMinesBoard(settings, []int{3})
		result, err := Reveal(board, 3)
		require.NoError(t, err)
		assert.True(t, result.HitBomb)
		require.NotNil(t, board.HitBomb)
		assert.Equal(t, 3, *board.HitBomb)
		assert.Empty(t, board.Revealed)
	})

	t.Run("board keeps its own multiplier terms", func(t *testing.T) {
		board := NewMinesBoard(settings, []int{3})
		assert.Equal(t, "0.2", board.MultiplierIncrement)

		board.MultiplierIncrement = "0.5"
		_, err := Reveal(board, 0)
		require.NoError(t, err)
		assert.Equal(t, "1.5", board.CurrentMultiplier)
	})

	t.Run("corrupt board", func(t *testing.T) {
		board := NewMinesBoard(settings, []int{3})
		board.BaseMultiplier = "abc"
		_, err := Reveal(board, 0)
		assert.Error(t, err)
	})

	t.Run("invalid and repeated tiles", func(t *testing.T) {
		board := NewMinesBoard(settings, []int{3})
		_, err := Reveal(board, 4)
		assert.ErrorIs(t, err, entities.ErrValidation)
		_, err = Reveal(board, -1)
		assert.ErrorIs(t, err, entities.ErrValidation)

		_, err = Reveal(board, 0)
		require.NoError(t, err)
		_, err = Reveal(board, 0)
		assert.ErrorIs(t, err, entities.ErrValidation)
		assert.Equal(t, []int{0}, board.Revealed)
	})
}

func TestDropPlinko(t *testing.T) {
	t.Parallel()

	settings := entities.DefaultPlinkoSettings()

	t.Run("path is a monotonic walk", func(t *testing.T) {
		outcome, err := DropPlinko(settings, fixedSeed(3))
		require.NoError(t, err)
		require.Len(t, outcome.Path, settings.Rows)

		prev := 0
		for _, pos := range outcome.Path {
			step := pos - prev
			assert.True(t, step == 0 || step == 1, "step %d", step)
			prev = pos
		}
		assert.Equal(t, prev, outcome.FinalSlot)
		assert.Equal(t, settings.Multipliers[outcome.FinalSlot].String(), outcome.Multiplier)
	})

	t.Run("deterministic per seed", func(t *testing.T) {
		a, err := DropPlinko(settings, fixedSeed(9))
		require.NoError(t, err)
		b, err := DropPlinko(settings, fixedSeed(9))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("centre slots dominate", func(t *testing.T) {
		counts := make([]int, settings.Rows+1)
		for i := 0; i < 256; i++ {
			seed := fixedSeed(byte(i))
			seed[0] = byte(i >> 1)
			outcome, err := DropPlinko(settings, seed)
			require.NoError(t, err)
			counts[outcome.FinalSlot]++
		}
		middle := counts[6] + counts[7] + counts[8] + counts[9] + counts[10]
		edges := counts[0] + counts[1] + counts[15] + counts[16]
		assert.Greater(t, middle, edges)
	})

	t.Run("payout floors", func(t *testing.T) {
		assert.Equal(t, int64(3), PlinkoPayout(settings, 11, 8))
		assert.Equal(t, int64(1100), PlinkoPayout(settings, 10, 0))
	})
}
