package deck

// EMU is an English Metric Unit, the native physical unit of OOXML shape
// geometry. There are 914400 EMUs per inch.
type EMU int64

// EMUPerInch is the number of EMUs in one inch.
const EMUPerInch EMU = 914400

// Inches converts the value to inches.
func (e EMU) Inches() float64 {
	return float64(e) / float64(EMUPerInch)
}

// FromPixels converts a pixel count at the given DPI to EMUs.
// The division truncates, matching the unit conversion used when a padding
// thickness specified in pixels is applied to physical page geometry.
func FromPixels(px, dpi int) EMU {
	return EMU(int64(px) * int64(EMUPerInch) / int64(dpi))
}
