package nspotential

// Box is an ns.AcceptTest that rejects any configuration with a coordinate
// outside [-halfWidth, halfWidth].
type Box struct {
	HalfWidth float64
}

// NewBox builds a Box constraint of the given half-width.
func NewBox(halfWidth float64) Box {
	return Box{HalfWidth: halfWidth}
}

// Accept implements ns.AcceptTest.
func (b Box) Accept(x []float64) bool {
	for _, xi := range x {
		if xi < -b.HalfWidth || xi > b.HalfWidth {
			return false
		}
	}
	return true
}
