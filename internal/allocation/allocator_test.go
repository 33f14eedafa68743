package allocation_test

import (
	"testing"

	"cambios-backend/internal/allocation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineSum(lines []allocation.Line) int64 {
	var total int64
	for _, l := range lines {
		total += l.Value()
	}
	return total
}

func TestForAmount(t *testing.T) {
	tests := []struct {
		name     string
		target   int64
		ceilings map[int64]int64
		feasible bool
	}{
		{
			name:     "exacto con dos denominaciones",
			target:   250,
			ceilings: map[int64]int64{100: 3, 50: 5},
			feasible: true,
		},
		{
			name:     "valor total insuficiente",
			target:   500,
			ceilings: map[int64]int64{100: 2, 50: 4}, // máximo alcanzable: 400
			feasible: false,
		},
		{
			name:     "monto cero siempre factible",
			target:   0,
			ceilings: map[int64]int64{},
			feasible: true,
		},
		{
			name:     "sin denominaciones candidatas",
			target:   100,
			ceilings: map[int64]int64{100: 0, 50: 0},
			feasible: false,
		},
		{
			name:     "valor suficiente pero sin combinación exacta",
			target:   150, // solo hay billetes de 100
			ceilings: map[int64]int64{100: 5},
			feasible: false,
		},
		{
			name:     "obligado a usar denominaciones chicas",
			target:   300,
			ceilings: map[int64]int64{100: 1, 50: 10},
			feasible: true,
		},
		{
			name:   "denominaciones de guaraníes",
			target: 385_000,
			ceilings: map[int64]int64{
				100_000: 3, 50_000: 2, 20_000: 5, 10_000: 10, 5_000: 10, 2_000: 10,
			},
			feasible: true,
		},
		{
			name:     "fuera de la granularidad del MCD",
			target:   2_501,
			ceilings: map[int64]int64{1000: 10, 500: 10},
			feasible: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := allocation.ForAmount(tt.target, tt.ceilings)

			if !tt.feasible {
				assert.ErrorIs(t, err, allocation.ErrInfeasible)
				assert.Nil(t, lines)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.target, lineSum(lines))
			for _, l := range lines {
				assert.Positive(t, l.Quantity)
				assert.LessOrEqual(t, l.Quantity, tt.ceilings[l.Denomination],
					"denominación %d excede su techo", l.Denomination)
			}
			// Orden descendente para los cajeros.
			for i := 1; i < len(lines); i++ {
				assert.Greater(t, lines[i-1].Denomination, lines[i].Denomination)
			}
		})
	}
}

func TestForAmount_TargetZeroReturnsEmptyBreakdown(t *testing.T) {
	lines, err := allocation.ForAmount(0, map[int64]int64{100: 3})
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestForAmount_Deterministic(t *testing.T) {
	ceilings := map[int64]int64{100_000: 2, 50_000: 5, 20_000: 9, 10_000: 4}

	first, err := allocation.ForAmount(370_000, ceilings)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := allocation.ForAmount(370_000, ceilings)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestForAmount_UsesBoundedCounts(t *testing.T) {
	// Greedy puro fallaría: tomar 2x100 deja 50 inalcanzable con techo 0 de 50.
	lines, err := allocation.ForAmount(250, map[int64]int64{100: 2, 75: 2, 50: 0, 25: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(250), lineSum(lines))
}

func TestForAmount_NegativeTarget(t *testing.T) {
	_, err := allocation.ForAmount(-1, map[int64]int64{100: 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, allocation.ErrInfeasible)
}

func TestReachable(t *testing.T) {
	pyg := []int64{2_000, 5_000, 10_000, 20_000, 50_000, 100_000}

	tests := []struct {
		name   string
		target int64
		denoms []int64
		want   bool
	}{
		{"cero", 0, pyg, true},
		{"múltiplo simple", 150_000, pyg, true},
		{"combinación de chicas", 7_000, pyg, true},
		{"por debajo de la mínima", 1_000, pyg, false},
		{"fuera de granularidad", 2_500, pyg, false},
		{"3000 no alcanzable, 4000 sí", 3_000, pyg, false},
		{"cuatro mil", 4_000, pyg, true},
		{"negativo", -5, pyg, false},
		{"sin denominaciones", 100, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, allocation.Reachable(tt.target, tt.denoms))
		})
	}
}
