// Package allocation resuelve la selección de denominaciones para cubrir un
// monto exacto con stock acotado por denominación (change-making acotado).
// Es una función pura sobre una foto inmutable del stock: no toca la base de
// datos, así que el servicio puede invocarla en modo solo-lectura bajo lock.
package allocation

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInfeasible: ninguna combinación de las denominaciones disponibles suma el
// monto exacto. Es un resultado esperado que el caller muestra al usuario, no
// una falla del sistema.
var ErrInfeasible = errors.New("el monto no puede cubrirse con el stock actual")

// Los montos están acotados por los límites de transacción configurados; por
// encima de este tope (luego de reducir por el MCD de las denominaciones) la
// tabla DP dejaría de ser razonable en memoria.
const maxScaledTarget = 2_000_000

// Line: cantidad elegida de una denominación.
type Line struct {
	Denomination int64 `json:"denominacion"`
	Quantity     int64 `json:"cantidad"`
}

// Value: valor de la línea.
func (l Line) Value() int64 { return l.Denomination * l.Quantity }

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// ForAmount devuelve un desglose cuyas líneas suman exactamente target,
// respetando el techo de unidades por denominación. Con igual entrada devuelve
// siempre el mismo desglose (la auditoría depende de decisiones repetibles).
// El desglose sale ordenado por denominación descendente y tiende a preferir
// billetes grandes, sin garantizar cantidad mínima de billetes.
func ForAmount(target int64, ceilings map[int64]int64) ([]Line, error) {
	if target < 0 {
		return nil, fmt.Errorf("monto objetivo negativo: %d", target)
	}
	if target == 0 {
		return []Line{}, nil
	}

	// Denominaciones candidatas: techo > 0, ordenadas descendente.
	denoms := make([]int64, 0, len(ceilings))
	for d, max := range ceilings {
		if d > 0 && max > 0 {
			denoms = append(denoms, d)
		}
	}
	sort.Slice(denoms, func(i, j int) bool { return denoms[i] > denoms[j] })

	n := len(denoms)
	if n == 0 {
		return nil, ErrInfeasible
	}

	// Las denominaciones reales comparten factores grandes (en guaraníes son
	// múltiplos de 1000): reducir por el MCD achica la tabla y descarta de
	// entrada los montos fuera de granularidad.
	g := denoms[0]
	for _, d := range denoms[1:] {
		g = gcd(g, d)
	}
	if target%g != 0 {
		return nil, ErrInfeasible
	}
	scaled := target / g
	if scaled > maxScaledTarget {
		return nil, fmt.Errorf("monto objetivo %d supera el máximo soportado", target)
	}

	// dp[a][k] = true si el monto a (escalado) es alcanzable usando solo las
	// primeras k denominaciones (las k más grandes), respetando sus techos.
	dp := make([][]bool, scaled+1)
	for a := int64(0); a <= scaled; a++ {
		dp[a] = make([]bool, n+1)
	}
	for k := 0; k <= n; k++ {
		dp[0][k] = true
	}
	for k := 1; k <= n; k++ {
		d := denoms[k-1] / g
		max := ceilings[denoms[k-1]]
		for a := int64(1); a <= scaled; a++ {
			if dp[a][k-1] {
				dp[a][k] = true
				continue
			}
			bound := a / d
			if bound > max {
				bound = max
			}
			for c := int64(1); c <= bound; c++ {
				if dp[a-c*d][k-1] {
					dp[a][k] = true
					break
				}
			}
		}
	}

	if !dp[scaled][n] {
		return nil, ErrInfeasible
	}

	// Reconstrucción hacia atrás: para cada denominación (de la más chica del
	// prefijo hacia arriba) se toma la menor cantidad admisible que deja un
	// resto alcanzable con las denominaciones restantes.
	lines := make([]Line, 0, n)
	remaining := scaled
	for k := n; k >= 1 && remaining > 0; k-- {
		if dp[remaining][k-1] {
			continue // alcanzable sin esta denominación
		}
		d := denoms[k-1] / g
		bound := remaining / d
		if max := ceilings[denoms[k-1]]; bound > max {
			bound = max
		}
		for c := int64(1); c <= bound; c++ {
			if dp[remaining-c*d][k-1] {
				lines = append(lines, Line{Denomination: denoms[k-1], Quantity: c})
				remaining -= c * d
				break
			}
		}
	}
	if remaining != 0 {
		// dp[scaled][n] era true; si la reconstrucción no cierra hay un bug.
		return nil, fmt.Errorf("reconstrucción inconsistente: resto %d", remaining*g)
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].Denomination > lines[j].Denomination })
	return lines, nil
}

// Reachable verifica si un monto puede formarse con las denominaciones del
// catálogo sin límite de unidades (validación previa de montos solicitados,
// independiente del stock real).
func Reachable(target int64, denoms []int64) bool {
	if target < 0 {
		return false
	}
	if target == 0 {
		return true
	}

	positive := make([]int64, 0, len(denoms))
	g := int64(0)
	for _, d := range denoms {
		if d > 0 {
			positive = append(positive, d)
			g = gcd(g, d)
		}
	}
	if len(positive) == 0 || target%g != 0 {
		return false
	}
	scaled := target / g
	if scaled > maxScaledTarget {
		return false
	}

	reachable := make([]bool, scaled+1)
	reachable[0] = true
	for _, d := range positive {
		step := d / g
		for a := step; a <= scaled; a++ {
			if reachable[a-step] {
				reachable[a] = true
			}
		}
	}
	return reachable[scaled]
}
