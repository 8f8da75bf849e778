package mmdvm

/*------------------------------------------------------------------
 *
 * Purpose:   	PTT and status LED outputs.
 *
 * Description:	The SDR does its own transmit keying, so these lines
 *		are informational by default and are just logged.  When
 *		a GPIO chip is configured they also drive real output
 *		lines, e.g. to key an external amplifier or light a
 *		front-panel LED.
 *
 *---------------------------------------------------------------*/

import (
	gpiocdev "github.com/warthog618/go-gpiocdev"
)

type OutputLines struct {
	ptt *gpiocdev.Line
	led *gpiocdev.Line
}

// OpenOutputLines requests the configured GPIO lines.  Best effort:
// a line that cannot be requested is logged and left nil.
func OpenOutputLines(cfg *Config) *OutputLines {
	var lines = &OutputLines{}
	if cfg.GPIOChip == "" {
		return lines
	}

	if cfg.PTTLine >= 0 {
		var l, err = gpiocdev.RequestLine(cfg.GPIOChip, cfg.PTTLine, gpiocdev.AsOutput(0))
		if err != nil {
			logger.Error("Could not request PTT line", "chip", cfg.GPIOChip, "line", cfg.PTTLine, "error", err)
		} else {
			lines.ptt = l
		}
	}
	if cfg.LEDLine >= 0 {
		var l, err = gpiocdev.RequestLine(cfg.GPIOChip, cfg.LEDLine, gpiocdev.AsOutput(0))
		if err != nil {
			logger.Error("Could not request LED line", "chip", cfg.GPIOChip, "line", cfg.LEDLine, "error", err)
		} else {
			lines.led = l
		}
	}
	return lines
}

func (o *OutputLines) SetPTT(on bool) {
	if o.ptt != nil {
		o.ptt.SetValue(boolToLine(on))
	}
}

func (o *OutputLines) SetLED(on bool) {
	if o.led != nil {
		o.led.SetValue(boolToLine(on))
	}
}

func (o *OutputLines) Close() {
	if o.ptt != nil {
		o.ptt.Close()
		o.ptt = nil
	}
	if o.led != nil {
		o.led.Close()
		o.led = nil
	}
}

func boolToLine(on bool) int {
	if on {
		return 1
	}
	return 0
}
