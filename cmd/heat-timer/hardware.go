package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"

	"github.com/sweeney/heat-timer/internal/adc"
	"github.com/sweeney/heat-timer/internal/button"
	"github.com/sweeney/heat-timer/internal/config"
	"github.com/sweeney/heat-timer/internal/gpio"
)

func openReader(cfg config.ADCConfig, logger *zap.SugaredLogger) (adc.Reader, error) {
	switch cfg.Backend {
	case config.BackendSerial:
		r := adc.NewSerialReader(cfg.SerialPort, cfg.BaudRate, cfg.MaxAge, logger)
		if err := r.Connect(); err != nil {
			return nil, err
		}
		return r, nil
	case config.BackendIIO:
		return adc.NewIIOReader(cfg.IIODevice)
	}
	return nil, fmt.Errorf("unknown adc backend %q", cfg.Backend)
}

// outputs holds the three driven lines.
type outputs struct {
	chip    *gpio.Chip
	relay   gpio.Line
	jobLED  gpio.Line
	heatLED gpio.Line
}

func openOutputs(cfg config.GPIOConfig) (*outputs, error) {
	chip, err := gpio.OpenChip(cfg.Chip)
	if err != nil {
		return nil, err
	}
	o := &outputs{chip: chip}
	for _, l := range []struct {
		pin  config.PinConfig
		dest *gpio.Line
		name string
	}{
		{cfg.Relay, &o.relay, "relay"},
		{cfg.JobLED, &o.jobLED, "job led"},
		{cfg.HeatLED, &o.heatLED, "heat led"},
	} {
		line, err := chip.Output(l.pin.Pin, l.pin.ActiveLow)
		if err != nil {
			o.Close()
			return nil, fmt.Errorf("%s: %w", l.name, err)
		}
		*l.dest = line
	}
	return o, nil
}

// Close releases every line, leaving them off, then the chip.
func (o *outputs) Close() error {
	var errs []error
	for _, l := range []gpio.Line{o.relay, o.jobLED, o.heatLED} {
		if l != nil {
			errs = append(errs, l.Close())
		}
	}
	errs = append(errs, o.chip.Close())
	return errors.Join(errs...)
}

// printSamples reads every keypad channel once and reports the classification.
func printSamples(w io.Writer, c *button.Classifier, r adc.Reader) error {
	channels := c.Channels()
	sort.Ints(channels)
	samples := make(map[int]int, len(channels))
	for _, ch := range channels {
		v, err := r.Read(ch)
		if err != nil {
			return fmt.Errorf("read channel %d: %w", ch, err)
		}
		samples[ch] = v
		fmt.Fprintf(w, "channel %d: %d\n", ch, v)
	}
	if id, ok := c.Classify(samples); ok {
		fmt.Fprintf(w, "button: %s\n", id)
	} else {
		fmt.Fprintln(w, "button: none")
	}
	return nil
}
