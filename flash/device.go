package flash

import "fmt"

// Known flash chip device ids, as reported by the enter-ID-mode command.
const (
	idMX29L010     uint16 = 0x09C2 // Macronix 128K
	idLE26FV10N1TS uint16 = 0x1362 // Sanyo 128K
	idMN63F805MNP  uint16 = 0x1B32 // Panasonic 64K
	idMX29L512     uint16 = 0x1CC2 // Macronix 64K
	idAT29LV512    uint16 = 0x3D1F // Atmel 64K
	idLE39FW512    uint16 = 0xD4B4 // SST 64K
)

var deviceNames = map[uint16]string{
	idMX29L010:     "MX29L010",
	idLE26FV10N1TS: "LE26FV10N1TS",
	idMN63F805MNP:  "MN63F805MNP",
	idMX29L512:     "MX29L512",
	idAT29LV512:    "AT29LV512",
	idLE39FW512:    "LE39FW512",
}

func knownDevice(id uint16) bool {
	_, ok := deviceNames[id]
	return ok
}

// UnknownDeviceIDError is returned by Identify when the chip reports an id
// outside the known device table. Identification cannot proceed
// speculatively; there is no fallback variant.
type UnknownDeviceIDError struct {
	ID uint16
}

func (e UnknownDeviceIDError) Error() string {
	return fmt.Sprintf("flash: unknown device id 0x%04x", e.ID)
}
