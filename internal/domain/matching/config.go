package matching

// Config pesos y tolerancias del puntaje. Los pesos suman 1.
type Config struct {
	WeightNIT         float64
	WeightAmount      float64
	WeightDate        float64
	WeightDescription float64

	AmountTolNear  float64 // diferencia relativa que puntúa 0.7 (1%)
	AmountTolFar   float64 // diferencia relativa que puntúa 0.3 (5%)
	DateWindowDays int     // días hasta que la proximidad de fecha llega a 0
	MinScore       float64 // piso: candidatos por debajo se descartan
}

// DefaultConfig valores por defecto de la conciliación.
func DefaultConfig() Config {
	return Config{
		WeightNIT:         0.40,
		WeightAmount:      0.35,
		WeightDate:        0.15,
		WeightDescription: 0.10,
		AmountTolNear:     0.01,
		AmountTolFar:      0.05,
		DateWindowDays:    30,
		MinScore:          0.5,
	}
}

// withDefaults completa los campos en cero.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WeightNIT == 0 && c.WeightAmount == 0 && c.WeightDate == 0 && c.WeightDescription == 0 {
		c.WeightNIT, c.WeightAmount, c.WeightDate, c.WeightDescription = d.WeightNIT, d.WeightAmount, d.WeightDate, d.WeightDescription
	}
	if c.AmountTolNear <= 0 {
		c.AmountTolNear = d.AmountTolNear
	}
	if c.AmountTolFar < c.AmountTolNear {
		c.AmountTolFar = d.AmountTolFar
		if c.AmountTolFar < c.AmountTolNear {
			c.AmountTolFar = c.AmountTolNear
		}
	}
	if c.DateWindowDays <= 0 {
		c.DateWindowDays = d.DateWindowDays
	}
	if c.MinScore <= 0 {
		c.MinScore = d.MinScore
	}
	return c
}
