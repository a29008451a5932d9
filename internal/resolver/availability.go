package resolver

// Shortage describes one insufficient requirement line for user-facing
// messaging. The check behind it is advisory only: the authoritative
// validation happens again inside the store's atomic commit, because stock
// can change between viewing feasibility and confirming production.
type Shortage struct {
	Name      string  `json:"name"`
	Unit      string  `json:"unit"`
	Required  float64 `json:"required"`
	Stock     float64 `json:"stock"`
	Shortfall float64 `json:"shortfall"`
	Retired   bool    `json:"retired"`
	Missing   bool    `json:"missing"`
}

// Shortages lists every requirement line the current stock cannot cover.
// An empty slice means the batch is fully available.
func Shortages(result *Result) []Shortage {
	var shortages []Shortage
	for _, leaf := range result.Ingredients {
		if leaf.Enough {
			continue
		}
		shortages = append(shortages, Shortage{
			Name:      leaf.Name,
			Unit:      leaf.Unit,
			Required:  leaf.Quantity,
			Stock:     leaf.Stock,
			Shortfall: leaf.Shortfall,
			Retired:   leaf.Retired,
			Missing:   leaf.Missing,
		})
	}
	return shortages
}
