package mmio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gbakit/gbasave/memsim"
	"github.com/gbakit/gbasave/mmio"
)

func TestSetBackupWaitstate(t *testing.T) {
	cart := memsim.New()
	cart.WriteHalf(mmio.WaitstateControl, 0x4F1E)

	mmio.SetBackupWaitstate(cart, mmio.Cycles8)

	// Only bits 0-1 may change.
	assert.Equal(t, uint16(0x4F1F), cart.ReadHalf(mmio.WaitstateControl))
}

func TestSetEepromWaitstate(t *testing.T) {
	cart := memsim.New()
	cart.WriteHalf(mmio.WaitstateControl, 0x4F1E)

	mmio.SetEepromWaitstate(cart, mmio.Cycles8)

	// Only bits 8-9 may change.
	assert.Equal(t, uint16(0x4F1E&^(0b11<<8)|0b11<<8), cart.ReadHalf(mmio.WaitstateControl))
}

func TestWithInterruptsDisabled(t *testing.T) {
	cart := memsim.New()
	cart.WriteHalf(mmio.InterruptMasterEnable, 1)

	ran := false
	mmio.WithInterruptsDisabled(cart, func() {
		ran = true
		assert.Equal(t, uint16(0), cart.ReadHalf(mmio.InterruptMasterEnable))
	})

	assert.True(t, ran)
	assert.Equal(t, uint16(1), cart.ReadHalf(mmio.InterruptMasterEnable))
}
