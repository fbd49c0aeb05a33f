// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package cc1101

import (
	"fmt"
	"math"
	"strings"
)

// Xtal is the frequency of the crystal on all supported modules.
const Xtal = 26000000

// Band limits supported by the 433MHz matching network.
const (
	MinFreq = 430000000
	MaxFreq = 440000000
)

// Modulation is the modulation format.
type Modulation byte

const (
	FSK2 Modulation = iota
	GFSK
	OOK
	FSK4
	MSK
)

var modNames = map[Modulation]string{FSK2: "2-FSK", GFSK: "GFSK", OOK: "OOK", FSK4: "4-FSK", MSK: "MSK"}

func (m Modulation) String() string {
	if n, ok := modNames[m]; ok {
		return n
	}
	return fmt.Sprintf("Modulation(%d)", byte(m))
}

// ParseModulation accepts the names printed by String, case insensitive, with or without dash.
func ParseModulation(s string) (Modulation, error) {
	s = strings.ToUpper(strings.Replace(s, "-", "", -1))
	for m, n := range modNames {
		if strings.Replace(n, "-", "", -1) == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("cc1101: unknown modulation %q: %w", s, ErrInvalidConfig)
}

// Rates lists the supported nominal data rates in baud.
var Rates = []uint32{
	50, 110, 300, 600, 1200, 2400, 4800, 9600,
	14400, 19200, 28800, 38400, 57600, 76800, 115200,
}

// Preambles lists the supported preamble lengths in bytes, the index is the register code.
var Preambles = []int{2, 3, 4, 6, 8, 12, 16, 24}

// Sync word qualifier modes for MDMCFG2.
const (
	SyncNone     = 0 // no preamble/sync
	Sync15of16   = 1
	Sync16of16   = 2
	Sync30of32   = 3
	SyncCarrier  = 4 // carrier sense only
	Sync15of16CS = 5
	Sync16of16CS = 6
	Sync30of32CS = 7
	numSyncModes = 8
)

// Config is the human-level description of the radio setup.
type Config struct {
	Freq         uint32     // carrier frequency in Hz
	IF           uint32     // intermediate frequency in Hz
	Modulation   Modulation // modulation format
	Rate         uint32     // nominal data rate in baud, must be in Rates
	ModIndex     float64    // modulation index, deviation = Rate*ModIndex
	PacketLength int        // fixed packet length, 1..255
	FEC          bool       // forward error correction
	Whitening    bool       // data whitening
	Preamble     int        // preamble length in bytes, must be in Preambles
	SyncMode     byte       // sync word qualifier, 0..7
}

// DefaultConfig returns 433.92MHz 2-FSK at 9600 baud with 255 byte packets.
func DefaultConfig() Config {
	return Config{
		Freq:         433920000,
		IF:           310000,
		Modulation:   FSK2,
		Rate:         9600,
		ModIndex:     0.5,
		PacketLength: MaxPacket,
		Preamble:     4,
		SyncMode:     Sync30of32,
	}
}

// Validate checks that the config can be turned into register settings.
func (c *Config) Validate() error {
	bad := func(format string, v ...interface{}) error {
		return fmt.Errorf("cc1101: "+format+": %w", append(v, ErrInvalidConfig)...)
	}
	if c.Freq < MinFreq || c.Freq > MaxFreq {
		return bad("frequency %dHz outside %d..%dHz", c.Freq, MinFreq, MaxFreq)
	}
	if c.PacketLength < 1 || c.PacketLength > MaxPacket {
		return bad("packet length %d outside 1..%d", c.PacketLength, MaxPacket)
	}
	if rateIndex(c.Rate) < 0 {
		return bad("unsupported data rate %d", c.Rate)
	}
	if !(c.ModIndex > 0) || math.IsInf(c.ModIndex, 0) {
		return bad("invalid modulation index %v", c.ModIndex)
	}
	if preambleCode(c.Preamble) < 0 {
		return bad("unsupported preamble length %d", c.Preamble)
	}
	if c.SyncMode >= numSyncModes {
		return bad("sync mode %d outside 0..7", c.SyncMode)
	}
	return nil
}

func rateIndex(baud uint32) int {
	for i, r := range Rates {
		if r == baud {
			return i
		}
	}
	return -1
}

func preambleCode(n int) int {
	for i, p := range Preambles {
		if p == n {
			return i
		}
	}
	return -1
}

// Params are the register fields derived from a Config, each masked to its width.
type Params struct {
	Xtal     uint32
	FreqWord uint32 // 24 bits
	IFWord   byte   // 5 bits
	DrateE   byte   // 4 bits
	DrateM   byte   // 8 bits
	DeviatE  byte   // 3 bits
	DeviatM  byte   // 3 bits
	ChanBWE  byte   // 2 bits
	ChanBWM  byte   // 2 bits
	ChanSpcE byte   // 2 bits, always 0
	ChanSpcM byte   // 8 bits, always 0
	ModCode  byte   // 3 bits
	Preamble byte   // 3 bits
}

// Derive validates the config and computes all register fields.
func Derive(c Config) (Params, error) {
	if err := c.Validate(); err != nil {
		return Params{}, err
	}
	p := Params{
		Xtal:     Xtal,
		FreqWord: FreqWord(Xtal, c.Freq),
		IFWord:   IFWord(Xtal, c.IF),
		ModCode:  ModCode(c.Modulation),
		Preamble: byte(preambleCode(c.Preamble)),
	}
	p.DrateE, p.DrateM, p.DeviatE, p.DeviatM, p.ChanBWE, p.ChanBWM =
		RateWords(c.Rate, c.ModIndex, Xtal)
	return p, nil
}

// FreqWord returns floor(hz*2^16/xtal) for FREQ2..0.
func FreqWord(xtal, hz uint32) uint32 {
	return uint32((uint64(hz)<<16)/uint64(xtal)) & 0xFFFFFF
}

// IFWord returns floor(hz*2^10/xtal) for FSCTRL1.
func IFWord(xtal, hz uint32) byte {
	return byte((uint64(hz)<<10)/uint64(xtal)) & 0x1F
}

// ModCode returns the MOD_FORMAT field, unknown modulations fall back to 2-FSK.
func ModCode(m Modulation) byte {
	switch m {
	case GFSK:
		return 1
	case OOK:
		return 3
	case FSK4:
		return 4
	case MSK:
		return 7
	default:
		return 0
	}
}

// chanBWLimits are the usable bandwidths for each CHANBW setting, index is 4*E+M.
var chanBWLimits = [16]float64{
	812000, 650000, 541000, 464000, 406000, 325000, 270000, 232000,
	203000, 162000, 135000, 116000, 102000, 81000, 68000, 58000,
}

// ChanBW returns the widest CHANBW setting whose limit is below bw. If bw is narrower than all
// of them it returns the narrowest setting.
func ChanBW(bw float64) (e, m byte) {
	for i, lim := range chanBWLimits {
		if bw > lim {
			return byte(i / 4), byte(i % 4)
		}
	}
	return 3, 3
}

// RateWords computes the data rate, deviation, and channel bandwidth fields. The deviation is
// computed once and used both for Carson's rule and for DEVIATN. Fields that overflow wrap.
func RateWords(baud uint32, modIndex float64, xtal uint32) (drateE, drateM, deviatE, deviatM, bwE, bwM byte) {
	r := float64(baud)
	x := float64(xtal)
	dev := r * modIndex

	bwE, bwM = ChanBW(2 * (dev + r))

	e := int(math.Floor(math.Log2(r * (1 << 20) / x)))
	m := int(math.Floor(math.Ldexp(r*(1<<28)/x, -e))) - 256
	drateE, drateM = byte(e&0x0F), byte(m&0xFF)

	e = int(math.Floor(math.Log2(dev * (1 << 14) / x)))
	m = int(math.Floor(math.Ldexp(dev*(1<<17)/x, -e))) - 8
	deviatE, deviatM = byte(e&0x07), byte(m&0x07)
	return
}

// Carrier returns the synthesizer frequency in Hz.
func (p Params) Carrier() float64 {
	return float64(p.FreqWord) * float64(p.Xtal) / (1 << 16)
}

// DataRate returns the programmed data rate in baud.
func (p Params) DataRate() float64 {
	return float64(p.Xtal) / (1 << 28) * float64(256+int(p.DrateM)) * float64(int(1)<<p.DrateE)
}

// Deviation returns the programmed FSK deviation in Hz.
func (p Params) Deviation() float64 {
	return float64(p.Xtal) / (1 << 17) * float64(8+int(p.DeviatM)) * float64(int(1)<<p.DeviatE)
}

// Bandwidth returns the programmed channel filter bandwidth in Hz.
func (p Params) Bandwidth() float64 {
	return float64(p.Xtal) / (8 * float64(4+int(p.ChanBWM)) * float64(int(1)<<p.ChanBWE))
}

// IntermediateFreq returns the programmed IF in Hz.
func (p Params) IntermediateFreq() float64 {
	return float64(p.Xtal) / (1 << 10) * float64(p.IFWord)
}

func (p Params) String() string {
	return fmt.Sprintf("carrier %.0fHz IF %.0fHz rate %.1fBd dev %.0fHz bw %.0fHz mod %d",
		p.Carrier(), p.IntermediateFreq(), p.DataRate(), p.Deviation(), p.Bandwidth(), p.ModCode)
}

// RSSIdBm converts the raw RSSI register value to dBm.
func RSSIdBm(raw byte) float64 {
	return float64(int8(raw))/2 - 74
}
