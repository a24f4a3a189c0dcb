/*
	Package device provides fault-tolerant access to a storage media device, such as a hard disk, removable media or an
	optical disc.

	A Handle reads from a Channel, the byte-level connection to the device. Read failures are retried; data that
	cannot be read after the configured number of retries is filled with zeroes and recorded as an error range, so a
	read over bad media degrades instead of failing:
			// Error handling left out for brevity
			ch, _ := devfile.Open("/dev/sr0", false)
			h := device.New(device.WithConfig(device.Config{ErrorRetries: 2, ErrorGranularity: 2048}))
			_ = h.Open(ch)
			defer h.Close()
			n, _ := h.Read(buf)
			for i := 0; i < h.NumberOfErrors(); i++ {
				r, _ := h.Error(i)
				fmt.Printf("unable to read %d bytes at offset %d\n", r.Length, r.Offset)
			}

	Optional capabilities of a Channel are detected by type assertion: scsi.Commander, optical.TOCReader, SectorSizer,
	HostProber and ATAIdentifier. Metadata depending on them is determined once, on first use.

	A Handle is not safe for concurrent use, except for SignalAbort.
*/
package device

import (
	"io"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/t9t/gosmdev/fragment"
	"github.com/t9t/gosmdev/media"
)

// A Channel is the byte-level connection to a device.
type Channel interface {
	io.ReadWriteSeeker
	io.Closer
	// Size returns the size of the media in bytes.
	Size() (uint64, error)
}

// A SectorSizer reports the number of bytes per sector of the media.
type SectorSizer interface {
	SectorSize() (uint32, error)
}

// A HostProber reports the description of the SCSI host adapter the device is attached to.
type HostProber interface {
	ProbeHost() (string, error)
}

// An ATAIdentifier returns the 512 bytes of ATA IDENTIFY DEVICE data.
type ATAIdentifier interface {
	ATAIdentity() ([]byte, error)
}

// ErrorFlags select the behavior for data that cannot be read.
type ErrorFlags uint8

// ErrorFlagZeroOnError zeroes the entire error granularity unit when a read error occurs, including data that was
// read successfully. Without it, only the data that could not be read is zeroed.
const ErrorFlagZeroOnError ErrorFlags = 0x01

// Config holds the read error handling settings of a Handle.
type Config struct {
	ErrorRetries     uint8  // Number of times a failed read is retried
	ErrorGranularity uint32 // Size of the unit a read error applies to, 0 for the whole buffer
	ErrorFlags       ErrorFlags
}

// DefaultConfig returns the settings used when no Config is provided.
func DefaultConfig() Config {
	return Config{ErrorRetries: 2}
}

// An Option configures a Handle.
type Option func(h *Handle)

// WithLogger sets the logger that receives trace events of read retries and media probing.
func WithLogger(log logr.Logger) Option {
	return func(h *Handle) {
		h.log = log
	}
}

// WithConfig sets the read error handling settings.
func WithConfig(c Config) Option {
	return func(h *Handle) {
		h.config = c
	}
}

// Handle provides access to a single device.
type Handle struct {
	channel Channel
	offset  int64

	mediaSize         uint64
	mediaSizeSet      bool
	bytesPerSector    uint32
	bytesPerSectorSet bool

	mediaInformationSet bool
	busType             media.BusType
	deviceType          byte
	removable           bool
	vendor              string
	model               string
	serialNumber        string

	tracks      []media.Track
	sessions    []media.SectorRange
	leadOuts    []media.SectorRange
	errorRanges fragment.List

	config Config
	abort  atomic.Bool
	log    logr.Logger
}

// New creates a Handle that is not yet attached to a channel.
func New(opts ...Option) *Handle {
	h := &Handle{
		config: DefaultConfig(),
		log:    logr.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Open attaches the handle to ch. The handle takes ownership of ch, which is closed by Close.
func (h *Handle) Open(ch Channel) error {
	if ch == nil {
		return errors.Wrap(ErrInvalidArgument, "missing channel")
	}
	if h.channel != nil {
		return ErrAlreadyOpen
	}
	h.reset()
	h.channel = ch
	return nil
}

// Close closes the channel and forgets everything known about the media, including the recorded read errors.
func (h *Handle) Close() error {
	if h.channel == nil {
		return ErrClosed
	}
	err := h.channel.Close()
	h.channel = nil
	h.reset()
	if err != nil {
		return errors.Wrap(err, "unable to close device channel")
	}
	return nil
}

// IsOpen checks if the handle is attached to a channel.
func (h *Handle) IsOpen() bool {
	return h.channel != nil
}

func (h *Handle) reset() {
	h.offset = 0
	h.mediaSize, h.mediaSizeSet = 0, false
	h.bytesPerSector, h.bytesPerSectorSet = 0, false
	h.mediaInformationSet = false
	h.busType = media.BusTypeUnknown
	h.deviceType = 0
	h.removable = false
	h.vendor, h.model, h.serialNumber = "", "", ""
	h.tracks, h.sessions, h.leadOuts = nil, nil, nil
	h.errorRanges.Clear()
	h.abort.Store(false)
}

// SignalAbort makes a Read in progress return after its current attempt, with the data read so far. It may be called
// from any goroutine.
func (h *Handle) SignalAbort() {
	h.abort.Store(true)
}

// NumberOfErrorRetries returns the number of times a failed read is retried.
func (h *Handle) NumberOfErrorRetries() uint8 {
	return h.config.ErrorRetries
}

// SetNumberOfErrorRetries sets the number of times a failed read is retried.
func (h *Handle) SetNumberOfErrorRetries(retries uint8) {
	h.config.ErrorRetries = retries
}

// ErrorGranularity returns the size of the unit a read error applies to; 0 means the whole buffer of a Read.
func (h *Handle) ErrorGranularity() uint32 {
	return h.config.ErrorGranularity
}

// SetErrorGranularity sets the size of the unit a read error applies to; 0 means the whole buffer of a Read.
func (h *Handle) SetErrorGranularity(granularity uint32) {
	h.config.ErrorGranularity = granularity
}

// ErrorFlags returns the flags that select how unreadable data is zeroed.
func (h *Handle) ErrorFlags() ErrorFlags {
	return h.config.ErrorFlags
}

// SetErrorFlags sets the flags that select how unreadable data is zeroed. Unknown flags result in
// ErrInvalidArgument and leave the current flags unchanged.
func (h *Handle) SetErrorFlags(flags ErrorFlags) error {
	if flags&^ErrorFlagZeroOnError != 0 {
		return errors.Wrapf(ErrInvalidArgument, "unsupported error flags 0x%02x", uint8(flags))
	}
	h.config.ErrorFlags = flags
	return nil
}
