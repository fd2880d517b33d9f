package inventory

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

// Allocation resultado de descontar una cantidad de las filas de stock (FIFO).
type Allocation struct {
	Deleted     []int64           // filas agotadas que deben eliminarse
	Updated     []entity.StockRow // filas decrementadas con su nueva cantidad
	Depleted    decimal.Decimal   // cantidad efectivamente descontada
	Unsatisfied decimal.Decimal   // cantidad que no pudo cubrirse con las filas disponibles
}

// Deplete descuenta amount de las filas empezando por la más antigua (id ascendente).
// Una fila cuya cantidad es menor o igual al pendiente se elimina completa; la primera fila
// con más cantidad que el pendiente se decrementa y el recorrido termina.
// Función pura: no modifica rows.
func Deplete(rows []entity.StockRow, amount decimal.Decimal) Allocation {
	alloc := Allocation{Depleted: decimal.Zero, Unsatisfied: decimal.Zero}
	if !amount.IsPositive() {
		return alloc
	}

	ordered := make([]entity.StockRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	remaining := amount
	for _, row := range ordered {
		if !remaining.IsPositive() {
			break
		}
		if !row.Quantity.IsPositive() {
			// fila residual: se limpia sin consumir el pendiente
			alloc.Deleted = append(alloc.Deleted, row.ID)
			continue
		}
		if row.Quantity.LessThanOrEqual(remaining) {
			alloc.Deleted = append(alloc.Deleted, row.ID)
			alloc.Depleted = alloc.Depleted.Add(row.Quantity)
			remaining = remaining.Sub(row.Quantity)
			continue
		}
		row.Quantity = row.Quantity.Sub(remaining)
		alloc.Updated = append(alloc.Updated, row)
		alloc.Depleted = alloc.Depleted.Add(remaining)
		remaining = decimal.Zero
	}
	alloc.Unsatisfied = remaining
	return alloc
}

// Total suma las cantidades de las filas.
func Total(rows []entity.StockRow) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Quantity)
	}
	return sum
}
