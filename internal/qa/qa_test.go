package qa

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var landsatHazards = FlagBits{Bits: []uint{1, 3, 4, 5}}

func TestFlagBitsAllClear(t *testing.T) {
	// Bits outside the hazard set must not matter
	for _, v := range []uint32{0, 1 << 0, 1 << 2, 1 << 6, 1<<6 | 1<<7 | 1<<8 | 1<<15} {
		assert.True(t, landsatHazards.Usable(Pixel{QA: v}), "qa=%#x", v)
	}
}

func TestFlagBitsAnySingleHazardFlips(t *testing.T) {
	background := []uint32{0, 1 << 0, 1<<6 | 1<<2, 0xFFC0}
	for _, base := range background {
		for _, bit := range landsatHazards.Bits {
			v := base | 1<<bit
			assert.False(t, landsatHazards.Usable(Pixel{QA: v}), "base=%#x bit=%d", base, bit)
		}
	}
}

func TestFieldRangeModis(t *testing.T) {
	modis := FieldRange{Fields: []Field{
		{Name: "modland", Mask: 0x3},
		{Name: "vi_quality", Mask: 0x3C},
		{Name: "cloud_state", Mask: 0xC0},
	}}

	tests := []struct {
		name string
		qa   uint32
		want bool
	}{
		{"all good", 0, true},
		{"land/water bits ignored", 1 << 8, true},
		{"aerosol bits ignored", 0x7 << 10, true},
		{"modland not good", 0x1, false},
		{"vi quality not good", 0x4, false},
		{"vi quality high bit", 0x20, false},
		{"cloudy", 0x40, false},
		{"cloud state mixed", 0x80, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, modis.Usable(Pixel{QA: tt.qa}))
		})
	}
}

func TestFieldRangeNonZeroGood(t *testing.T) {
	f := FieldRange{Fields: []Field{{Name: "land", Mask: 0x300, Good: 0x100}}}
	assert.True(t, f.Usable(Pixel{QA: 0x100}))
	assert.False(t, f.Usable(Pixel{QA: 0x000}))
	assert.False(t, f.Usable(Pixel{QA: 0x300}))
}

func TestCloudProbability(t *testing.T) {
	qa60 := FlagBits{Bits: []uint{10, 11}}
	d := CloudProbability{MaxPercent: 50, Fallback: qa60}

	assert.True(t, d.Usable(Pixel{HasProbability: true, CloudProbability: 49.9}))
	assert.False(t, d.Usable(Pixel{HasProbability: true, CloudProbability: 50}))
	assert.False(t, d.Usable(Pixel{HasProbability: true, CloudProbability: math.NaN()}))

	// The probability band wins over QA60 when present
	assert.True(t, d.Usable(Pixel{HasProbability: true, CloudProbability: 10, QA: 1 << 10}))

	// Without the band the flag-bit policy decides
	assert.True(t, d.Usable(Pixel{QA: 0}))
	assert.False(t, d.Usable(Pixel{QA: 1 << 10}))
	assert.False(t, d.Usable(Pixel{QA: 1 << 11}))
}

func TestCloudProbabilityDefaults(t *testing.T) {
	d := CloudProbability{}
	assert.True(t, d.Usable(Pixel{}))
	assert.True(t, d.Usable(Pixel{HasProbability: true, CloudProbability: 20}))
	assert.False(t, d.Usable(Pixel{HasProbability: true, CloudProbability: 80}))
}

func TestFromSample(t *testing.T) {
	tests := []struct {
		v     float64
		width int
		want  uint32
		ok    bool
	}{
		{0, 16, 0, true},
		{21824, 16, 21824, true},
		{65535, 16, 65535, true},
		{65536, 16, 0, false},
		{-1, 16, 0, false},
		{1.5, 16, 0, false},
		{math.NaN(), 16, 0, false},
		{math.Inf(1), 16, 0, false},
		{4095, 0, 4095, true},
	}
	for _, tt := range tests {
		got, ok := FromSample(tt.v, tt.width)
		assert.Equal(t, tt.ok, ok, "v=%v", tt.v)
		assert.Equal(t, tt.want, got, "v=%v", tt.v)
	}
}

func TestDecoderStrings(t *testing.T) {
	assert.Equal(t, "flag-bits[1,3,4,5]", landsatHazards.String())
	assert.Contains(t, FieldRange{Fields: []Field{{Name: "modland", Mask: 3}}}.String(), "modland&0x3==0")
	assert.Contains(t, CloudProbability{MaxPercent: 50}.String(), "fallback=none")
}
