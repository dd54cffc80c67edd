// Package boq exports Bill of Quantities line items to estimating-software
// interchange formats (XLSX, CSV, XML, JSON).
package boq

// Item is a single Bill of Quantities line.
type Item struct {
	ItemNumber       string  `json:"item_number"`
	Section          string  `json:"section,omitempty"`
	Subsection       string  `json:"subsection,omitempty"`
	Description      string  `json:"description"`
	Unit             string  `json:"unit"`
	Quantity         float64 `json:"quantity"`
	Rate             float64 `json:"rate"`
	Amount           float64 `json:"amount"`
	CalculationNotes string  `json:"calculation_notes,omitempty"`
	ReferenceDrawing string  `json:"reference_drawing,omitempty"`
	MeasurementRule  string  `json:"measurement_rule,omitempty"`
}

// ResolveAmount fills Amount from Quantity×Rate when it was not supplied.
func (i *Item) ResolveAmount() {
	if i.Amount <= 0 {
		i.Amount = i.Quantity * i.Rate
	}
}

func totalAmount(items []Item) float64 {
	var total float64
	for _, it := range items {
		total += it.Amount
	}
	return total
}
