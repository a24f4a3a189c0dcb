// Package config reads the settings of the smdevinfo tool from a gcfg (git-config style) file:
//
//	[device]
//	error-retries = 4
//	error-granularity = 2k
//	zero-on-error
//
//	[log]
//	level = debug
//	format = json
package config

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/t9t/gosmdev/device"
	"gopkg.in/gcfg.v1"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// DeviceSection holds the read error handling settings of a device handle.
type DeviceSection struct {
	ErrorRetries     int    `gcfg:"error-retries"`
	ErrorGranularity string `gcfg:"error-granularity"` // Bytes, optionally suffixed by k or m
	ZeroOnError      bool   `gcfg:"zero-on-error"`
}

// LogSection holds the logging settings.
type LogSection struct {
	Level  string
	Format string
}

// File is the contents of a configuration file.
type File struct {
	Device DeviceSection
	Log    LogSection
}

// Default returns the settings used when there is no configuration file.
func Default() *File {
	return &File{
		Device: DeviceSection{ErrorRetries: int(device.DefaultConfig().ErrorRetries)},
		Log:    LogSection{Level: "warn", Format: LogFormatText},
	}
}

// ReadFile reads the configuration file at path. Settings missing from the file keep their default value.
func ReadFile(path string) (*File, error) {
	f := Default()
	if err := gcfg.ReadFileInto(f, path); err != nil {
		return nil, errors.Wrapf(err, "unable to read configuration file %s", path)
	}
	if err := f.validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration file %s", path)
	}
	return f, nil
}

// ReadString reads a configuration from the contents of a file.
func ReadString(s string) (*File, error) {
	f := Default()
	if err := gcfg.ReadStringInto(f, s); err != nil {
		return nil, errors.Wrap(err, "unable to parse configuration")
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) validate() error {
	if _, err := f.DeviceConfig(); err != nil {
		return err
	}
	if _, err := f.LogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(f.Log.Format) {
	case LogFormatText, LogFormatJSON:
	default:
		return errors.Errorf("unknown log format %q", f.Log.Format)
	}
	return nil
}

// DeviceConfig returns the device section as the settings of a device handle.
func (f *File) DeviceConfig() (device.Config, error) {
	if f.Device.ErrorRetries < 0 || f.Device.ErrorRetries > math.MaxUint8 {
		return device.Config{}, errors.Errorf("error-retries %d out of range [0, %d]", f.Device.ErrorRetries,
			math.MaxUint8)
	}
	granularity, err := ParseSize(f.Device.ErrorGranularity)
	if err != nil {
		return device.Config{}, errors.Wrap(err, "invalid error-granularity")
	}
	c := device.Config{ErrorRetries: uint8(f.Device.ErrorRetries), ErrorGranularity: granularity}
	if f.Device.ZeroOnError {
		c.ErrorFlags |= device.ErrorFlagZeroOnError
	}
	return c, nil
}

// LogLevel returns the slog level of the log section, such as "info" or "debug-2".
func (f *File) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.Log.Level)); err != nil {
		return 0, errors.Wrapf(err, "unknown log level %q", f.Log.Level)
	}
	return level, nil
}

// ParseSize parses a size in bytes such as "2048", "2k" or "1m". An empty string is 0.
func ParseSize(s string) (uint32, error) {
	ss := strings.TrimSpace(strings.ToLower(s))
	if ss == "" {
		return 0, nil
	}
	mult := uint64(1)
	switch {
	case strings.HasSuffix(ss, "k"):
		mult = 1024
		ss = strings.TrimSuffix(ss, "k")
	case strings.HasSuffix(ss, "m"):
		mult = 1024 * 1024
		ss = strings.TrimSuffix(ss, "m")
	}
	v, err := strconv.ParseUint(ss, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size %q", s)
	}
	if v*mult > math.MaxUint32 {
		return 0, errors.Errorf("size %q too large", s)
	}
	return uint32(v * mult), nil
}
