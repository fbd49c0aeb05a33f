// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package cc1101

// Configuration registers.
const (
	REG_IOCFG2   = 0x00
	REG_IOCFG1   = 0x01
	REG_IOCFG0   = 0x02
	REG_FIFOTHR  = 0x03
	REG_SYNC1    = 0x04
	REG_SYNC0    = 0x05
	REG_PKTLEN   = 0x06
	REG_PKTCTRL1 = 0x07
	REG_PKTCTRL0 = 0x08
	REG_ADDR     = 0x09
	REG_CHANNR   = 0x0A
	REG_FSCTRL1  = 0x0B
	REG_FSCTRL0  = 0x0C
	REG_FREQ2    = 0x0D
	REG_FREQ1    = 0x0E
	REG_FREQ0    = 0x0F
	REG_MDMCFG4  = 0x10
	REG_MDMCFG3  = 0x11
	REG_MDMCFG2  = 0x12
	REG_MDMCFG1  = 0x13
	REG_MDMCFG0  = 0x14
	REG_DEVIATN  = 0x15
	REG_MCSM2    = 0x16
	REG_MCSM1    = 0x17
	REG_MCSM0    = 0x18
	REG_FOCCFG   = 0x19
	REG_BSCFG    = 0x1A
	REG_AGCCTRL2 = 0x1B
	REG_AGCCTRL1 = 0x1C
	REG_AGCCTRL0 = 0x1D
	REG_WOREVT1  = 0x1E
	REG_WOREVT0  = 0x1F
	REG_WORCTRL  = 0x20
	REG_FREND1   = 0x21
	REG_FREND0   = 0x22
	REG_FSCAL3   = 0x23
	REG_FSCAL2   = 0x24
	REG_FSCAL1   = 0x25
	REG_FSCAL0   = 0x26
	REG_RCCTRL1  = 0x27
	REG_RCCTRL0  = 0x28
	REG_FSTEST   = 0x29
	REG_PTEST    = 0x2A
	REG_AGCTEST  = 0x2B
	REG_TEST2    = 0x2C
	REG_TEST1    = 0x2D
	REG_TEST0    = 0x2E
)

// Status registers, only readable with the burst bit set.
const (
	REG_PARTNUM    = 0x30
	REG_VERSION    = 0x31
	REG_FREQEST    = 0x32
	REG_LQI        = 0x33
	REG_RSSI       = 0x34
	REG_MARCSTATE  = 0x35
	REG_PKTSTATUS  = 0x38
	REG_TXBYTES    = 0x3A
	REG_RXBYTES    = 0x3B
	REG_PATABLE    = 0x3E
	REG_FIFO       = 0x3F
	NUM_CONFIG_REG = 0x2F
)

// Command strobes.
const (
	SRES    = 0x30
	SFSTXON = 0x31
	SXOFF   = 0x32
	SCAL    = 0x33
	SRX     = 0x34
	STX     = 0x35
	SIDLE   = 0x36
	SWOR    = 0x38
	SPWD    = 0x39
	SFRX    = 0x3A
	SFTX    = 0x3B
	SWORRST = 0x3C
	SNOP    = 0x3D
)

// Header byte flags.
const (
	WRITE_BURST = 0x40
	READ_SINGLE = 0x80
	READ_BURST  = 0xC0
)

// MARCSTATE values (after masking with 0x1F).
const (
	STATE_SLEEP            = 0x00
	STATE_IDLE             = 0x01
	STATE_XOFF             = 0x02
	STATE_VCOON_MC         = 0x03
	STATE_REGON_MC         = 0x04
	STATE_MANCAL           = 0x05
	STATE_VCOON            = 0x06
	STATE_REGON            = 0x07
	STATE_STARTCAL         = 0x08
	STATE_BWBOOST          = 0x09
	STATE_FS_LOCK          = 0x0A
	STATE_IFADCON          = 0x0B
	STATE_ENDCAL           = 0x0C
	STATE_RX               = 0x0D
	STATE_RX_END           = 0x0E
	STATE_RX_RST           = 0x0F
	STATE_TXRX_SWITCH      = 0x10
	STATE_RXFIFO_OVERFLOW  = 0x11
	STATE_FSTXON           = 0x12
	STATE_TX               = 0x13
	STATE_TX_END           = 0x14
	STATE_RXTX_SWITCH      = 0x15
	STATE_TXFIFO_UNDERFLOW = 0x16
)

// GDOx pin functions written into IOCFG2/IOCFG0.
const (
	GDO_RX_THRESHOLD = 0x00 // asserts when RX FIFO at or above threshold
	GDO_TX_THRESHOLD = 0x02 // asserts when TX FIFO at or above threshold, deasserts below
	GDO_SYNC_WORD    = 0x06 // asserts on sync word, deasserts at end of packet
	GDO_CCA          = 0x09 // clear channel assessment
)

const (
	FifoSize  = 64  // bytes in each of the chip's FIFOs
	MaxPacket = 255 // largest fixed packet length

	// FIFOTHR=0x0E puts the RX threshold at 60 bytes and the TX threshold at 5 bytes.
	fifoThreshold = 0x0E
	rxChunk       = 59 // bytes unloaded per RX threshold interrupt
	txChunk       = 58 // bytes refilled per TX threshold interrupt
)

var marcStateNames = [...]string{
	"SLEEP", "IDLE", "XOFF", "VCOON_MC", "REGON_MC", "MANCAL", "VCOON", "REGON", "STARTCAL",
	"BWBOOST", "FS_LOCK", "IFADCON", "ENDCAL", "RX", "RX_END", "RX_RST", "TXRX_SWITCH",
	"RXFIFO_OVERFLOW", "FSTXON", "TX", "TX_END", "RXTX_SWITCH", "TXFIFO_UNDERFLOW",
}

// StateName returns the datasheet name of a MARCSTATE value.
func StateName(s byte) string {
	if int(s) < len(marcStateNames) {
		return marcStateNames[s]
	}
	return "UNKNOWN"
}
