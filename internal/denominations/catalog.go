// Package denominations carga el catálogo de referencia de denominaciones por
// divisa desde un archivo JSON. Es dato estático de solo lectura: qué billetes
// y monedas existen, independiente del stock físico.
package denominations

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

type catalogEntry struct {
	ISO           string  `json:"iso"`
	Denominations []int64 `json:"denominations"`
}

// Catalog: denominaciones válidas por código ISO, ordenadas descendente.
type Catalog struct {
	byISO map[string][]int64
}

// Load lee el catálogo desde un archivo JSON con registros
// {"iso": "USD", "denominations": [100, 50, ...]}.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no se pudo leer el catálogo de denominaciones: %w", err)
	}

	var entries []catalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("catálogo de denominaciones inválido: %w", err)
	}

	byISO := make(map[string][]int64, len(entries))
	for _, e := range entries {
		if e.ISO == "" {
			continue
		}
		denoms := make([]int64, 0, len(e.Denominations))
		for _, d := range e.Denominations {
			if d > 0 {
				denoms = append(denoms, d)
			}
		}
		sort.Slice(denoms, func(i, j int) bool { return denoms[i] > denoms[j] })
		byISO[e.ISO] = denoms
	}

	return &Catalog{byISO: byISO}, nil
}

// FromMap arma un catálogo en memoria (tests, seeds).
func FromMap(m map[string][]int64) *Catalog {
	byISO := make(map[string][]int64, len(m))
	for iso, denoms := range m {
		copied := make([]int64, len(denoms))
		copy(copied, denoms)
		sort.Slice(copied, func(i, j int) bool { return copied[i] > copied[j] })
		byISO[iso] = copied
	}
	return &Catalog{byISO: byISO}
}

// For devuelve las denominaciones de una divisa (descendente) y si existe en
// el catálogo.
func (c *Catalog) For(iso string) ([]int64, bool) {
	denoms, ok := c.byISO[iso]
	if !ok {
		return nil, false
	}
	out := make([]int64, len(denoms))
	copy(out, denoms)
	return out, true
}

// Contains indica si una denominación está catalogada para la divisa.
func (c *Catalog) Contains(iso string, denomination int64) bool {
	for _, d := range c.byISO[iso] {
		if d == denomination {
			return true
		}
	}
	return false
}

// Currencies lista los códigos ISO catalogados, ordenados.
func (c *Catalog) Currencies() []string {
	isos := make([]string, 0, len(c.byISO))
	for iso := range c.byISO {
		isos = append(isos, iso)
	}
	sort.Strings(isos)
	return isos
}
