package convergence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
)

func TestDivergence(t *testing.T) {
	tests := []struct {
		name string
		u, a *float64
		want float64
	}{
		{"missing understanding", nil, models.Float(9), 1},
		{"missing alignment", models.Float(9), nil, 1},
		{"perfect", models.Float(10), models.Float(10), 0},
		{"zero", models.Float(0), models.Float(0), 1},
		{"middle", models.Float(5), models.Float(5), 0.5},
		{"cursor", models.Float(3), models.Float(2), 0.75},
		{"above scale clamps", models.Float(15), models.Float(15), 0},
		{"below scale clamps", models.Float(-5), models.Float(-5), 1},
		{"nan", models.Float(math.NaN()), models.Float(5), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Divergence(tt.u, tt.a)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestDivergence_DecreasesWithScores(t *testing.T) {
	prev := 1.1
	for s := 0.0; s <= 10; s += 0.5 {
		d := Divergence(models.Float(s), models.Float(s))
		assert.Less(t, d, prev)
		prev = d
	}
}
