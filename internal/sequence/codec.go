package sequence

// Packed word layout:
//
//	bits  0-7   position
//	bits  8-15  completedToday
//	bits 16-17  mode
//	bits 18-31  reserved, written as zero
const (
	positionShift  = 0
	completedShift = 8
	modeShift      = 16

	byteMask = 0xFF
	modeMask = 0x3
)

// Encode packs position, completedToday and mode into one word.
func (s *Sequence) Encode() uint32 {
	var w uint32
	w |= uint32(s.position&byteMask) << positionShift
	w |= uint32(s.completedToday&byteMask) << completedShift
	w |= uint32(uint8(s.mode)&modeMask) << modeShift
	return w
}

// Decode restores a word produced by Encode. Fields that do not fit the
// current configuration are replaced with defaults: an unknown mode becomes
// Classic and an out-of-range position becomes 1. It reports whether the
// word was accepted without substitutions.
func (s *Sequence) Decode(w uint32) bool {
	valid := true

	mode := Mode((w >> modeShift) & modeMask)
	if mode > Custom {
		mode = Classic
		valid = false
	}
	s.mode = mode
	s.completedToday = uint8((w >> completedShift) & byteMask)

	position := uint8((w >> positionShift) & byteMask)
	if position < 1 || position > s.TotalPositions() {
		position = 1
		valid = false
	}
	s.position = position
	return valid
}
