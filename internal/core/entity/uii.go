package entity

import "fmt"

// Uii packs a 20-bit slot index in the low bits and a 12-bit generation in
// the high bits. The generation is bumped every time a slot is released, so an
// identifier captured before the release never matches the slot again.
type Uii uint32

const (
	IndexBits      = 20
	GenerationBits = 32 - IndexBits

	IndexMask      = uint32(1)<<IndexBits - 1
	GenerationMask = uint32(1)<<GenerationBits - 1

	generationStep = uint32(1) << IndexBits

	// MaxCapacity is the largest slot count a Vector or Queue may hold. Index
	// IndexMask is never issued so that Invalid stays unambiguous.
	MaxCapacity = int(IndexMask)
)

// Invalid is the "none" identifier: every index and generation bit set.
const Invalid = Uii(IndexMask | GenerationMask<<IndexBits)

func NewUii(index, generation uint32) Uii {
	return Uii(index&IndexMask | (generation&GenerationMask)<<IndexBits)
}

func (id Uii) Index() uint32      { return uint32(id) & IndexMask }
func (id Uii) Generation() uint32 { return uint32(id) >> IndexBits }
func (id Uii) Valid() bool        { return id != Invalid }

// nextGeneration returns the identifier for the same slot with the
// generation advanced by one. The generation wraps modulo 4096.
func (id Uii) nextGeneration() Uii {
	return Uii(uint32(id) + generationStep)
}

func (id Uii) String() string {
	if id == Invalid {
		return "uii(none)"
	}
	return fmt.Sprintf("uii(%d:%d)", id.Index(), id.Generation())
}
