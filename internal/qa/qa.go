package qa

import (
	"fmt"
	"math"
	"strings"
)

// Pixel holds the per-pixel inputs a decoder may look at
type Pixel struct {
	QA               uint32  // Raw quality/flag value
	CloudProbability float64 // Auxiliary cloud probability in percent
	HasProbability   bool    // False when the scene carries no probability band
}

// Decoder turns one pixel's quality inputs into a usable/unusable decision
type Decoder interface {
	Usable(p Pixel) bool
	String() string
}

// FlagBits marks a pixel unusable when any configured hazard bit is set
type FlagBits struct {
	Bits []uint
}

// Usable returns true iff every configured hazard bit is clear
func (f FlagBits) Usable(p Pixel) bool {
	for _, bit := range f.Bits {
		if p.QA&(1<<bit) != 0 {
			return false
		}
	}
	return true
}

func (f FlagBits) String() string {
	parts := make([]string, len(f.Bits))
	for i, bit := range f.Bits {
		parts[i] = fmt.Sprintf("%d", bit)
	}
	return "flag-bits[" + strings.Join(parts, ",") + "]"
}

// Field is one multi-bit sub-field of a composite quality value
type Field struct {
	Name string
	Mask uint32 // Bits of the field in place, e.g. 0x3C for bits 2-5
	Good uint32 // Accepted value of qa&Mask
}

// FieldRange marks a pixel usable only when each sub-field holds its good value
type FieldRange struct {
	Fields []Field
}

// Usable returns true iff qa&Mask == Good for all fields
func (f FieldRange) Usable(p Pixel) bool {
	for _, field := range f.Fields {
		if p.QA&field.Mask != field.Good {
			return false
		}
	}
	return true
}

func (f FieldRange) String() string {
	parts := make([]string, len(f.Fields))
	for i, field := range f.Fields {
		parts[i] = fmt.Sprintf("%s&%#x==%d", field.Name, field.Mask, field.Good)
	}
	return "field-range[" + strings.Join(parts, ",") + "]"
}

// DefaultMaxCloudProbability is the percentage below which a pixel is clear
const DefaultMaxCloudProbability = 50.0

// CloudProbability uses an auxiliary probability band when the pixel has one
// and falls back to another decoder when it does not.
type CloudProbability struct {
	MaxPercent float64
	Fallback   Decoder
}

// Usable returns probability < MaxPercent, or the fallback decision
func (c CloudProbability) Usable(p Pixel) bool {
	if !p.HasProbability {
		if c.Fallback == nil {
			return true
		}
		return c.Fallback.Usable(p)
	}
	if math.IsNaN(p.CloudProbability) {
		return false
	}
	limit := c.MaxPercent
	if limit <= 0 {
		limit = DefaultMaxCloudProbability
	}
	return p.CloudProbability < limit
}

func (c CloudProbability) String() string {
	fallback := "none"
	if c.Fallback != nil {
		fallback = c.Fallback.String()
	}
	return fmt.Sprintf("cloud-probability[<%g, fallback=%s]", c.MaxPercent, fallback)
}

// Clone returns a deep copy of the built-in decoders. Other decoders are
// returned as is.
func Clone(d Decoder) Decoder {
	switch d := d.(type) {
	case FlagBits:
		return FlagBits{Bits: append([]uint(nil), d.Bits...)}
	case FieldRange:
		return FieldRange{Fields: append([]Field(nil), d.Fields...)}
	case CloudProbability:
		d.Fallback = Clone(d.Fallback)
		return d
	default:
		return d
	}
}

// FromSample converts a raster sample into a quality value.
// Only non-negative integers that fit in bitWidth bits are accepted.
func FromSample(v float64, bitWidth int) (uint32, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v != math.Trunc(v) {
		return 0, false
	}
	if bitWidth <= 0 || bitWidth > 32 {
		bitWidth = 32
	}
	if v >= math.Exp2(float64(bitWidth)) {
		return 0, false
	}
	return uint32(v), true
}
