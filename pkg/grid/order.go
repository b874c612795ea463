package grid

// OrderKey is a fractional sheet-ordering key (§3, GLOSSARY "Fractional
// order"): sheets sort by OrderKey, and inserting or moving a sheet between
// two neighbors only requires computing a midpoint — never renumbering the
// rest of the collection.
type OrderKey float64

const (
	orderKeyStep = 1024.0
)

// FirstOrderKey is used for the very first sheet in an empty grid.
func FirstOrderKey() OrderKey { return OrderKey(orderKeyStep) }

// OrderKeyAfter returns a key that sorts after all existing keys.
func OrderKeyAfter(last OrderKey) OrderKey { return last + orderKeyStep }

// OrderKeyBefore returns a key that sorts before all existing keys.
func OrderKeyBefore(first OrderKey) OrderKey { return first - orderKeyStep }

// OrderKeyBetween returns the midpoint key strictly between a and b.
func OrderKeyBetween(a, b OrderKey) OrderKey { return (a + b) / 2 }
