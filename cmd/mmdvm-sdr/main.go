package main

/*------------------------------------------------------------------
 *
 * Purpose:   	Main program for the SDR build of the MMDVM modem.
 *
 *		Bridges the firmware's 24 kHz FM sample stream to a
 *		SoapySDR device (or a simulation file), exposes the
 *		host protocol on a virtual serial port, and optionally
 *		publishes per-sample state for the waveform monitor.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/spf13/pflag"

	mmdvm "github.com/oresmaa/lapphund/src"
)

func main() {
	var configFile = pflag.StringP("config", "c", "", "YAML configuration file")
	var driver = pflag.String("driver", "", "transport driver: file, limesdr or sxxcvr")
	var rxFrequency = pflag.Float64("rx-frequency", 0, "RX carrier frequency in Hz")
	var txFrequency = pflag.Float64("tx-frequency", 0, "TX carrier frequency in Hz")
	var rxGain = pflag.Float64("rx-gain", -1, "RX gain in dB")
	var txGain = pflag.Float64("tx-gain", -1, "TX gain in dB")
	var latencyBlocks = pflag.Int("latency-blocks", 0, "I/Q blocks of TX latency budget")
	var monitor = pflag.Bool("monitor", false, "publish per-sample state for the monitor")
	var logDir = pflag.String("log-dir", "", "directory for daily log files")
	var showVersion = pflag.BoolP("version", "V", false, "print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println("mmdvm-sdr", mmdvm.Version())
		os.Exit(0)
	}

	var log = mmdvm.Logger()

	var cfg = mmdvm.DefaultConfig()
	if *configFile != "" {
		var loaded, err = mmdvm.LoadConfig(*configFile)
		if err != nil {
			log.Fatal("Could not load configuration", "error", err)
		}
		cfg = loaded
	}

	/* Command line beats the file, the file beats the defaults. */
	if pflag.CommandLine.Changed("driver") {
		cfg.Driver = *driver
	}
	if pflag.CommandLine.Changed("rx-frequency") {
		cfg.RXFrequency = *rxFrequency
	}
	if pflag.CommandLine.Changed("tx-frequency") {
		cfg.TXFrequency = *txFrequency
	}
	if pflag.CommandLine.Changed("rx-gain") {
		cfg.RXGain = *rxGain
	}
	if pflag.CommandLine.Changed("tx-gain") {
		cfg.TXGain = *txGain
	}
	if pflag.CommandLine.Changed("latency-blocks") {
		cfg.LatencyBlocks = *latencyBlocks
	}
	if pflag.CommandLine.Changed("monitor") {
		cfg.Monitor = *monitor
	}
	if pflag.CommandLine.Changed("log-dir") {
		cfg.LogDir = *logDir
	}

	if cfg.LogDir != "" {
		if err := mmdvm.OpenLogDir(cfg.LogDir); err != nil {
			log.Error("Could not open log directory", "error", err)
		}
	}

	log.Info("Starting mmdvm-sdr", "version", mmdvm.Version(), "driver", cfg.Driver)

	var running atomic.Bool
	running.Store(true)

	var serial = mmdvm.NewSerialPort(cfg)
	serial.BeginInt(1, mmdvm.SERIAL_BAUDRATE)

	var io = mmdvm.NewIO(cfg, &running)
	io.InitInt()

	/* Single-threaded cooperative loop: the host protocol parser and
	 * the I/O core take turns.  The parser lives above this repo and
	 * attaches through the serial port; its slot in the loop is here. */
	for running.Load() {
		io.ProcessInt()
	}

	log.Info("Shutting down")
	io.ExitInt()
	serial.Close()
}
