/*
	Package scsi builds SCSI command descriptor blocks (CDB), issues them through a Commander and validates the
	responses.

	Every response declares its own valid length in its first bytes. A declared length larger than the caller's buffer
	is rejected with a *ResponseLengthError, so a malfunctioning device can never claim more data than was
	transferred. The error carries the declared length, which allows a caller to retry with a larger buffer:
			// Error handling left out for brevity
			n, err := scsi.ReadTOC(dev, scsi.TOCFormatRawTOC, buf)
			var lengthErr *scsi.ResponseLengthError
			if errors.As(err, &lengthErr) {
				buf = make([]byte, lengthErr.Declared)
				n, err = scsi.ReadTOC(dev, scsi.TOCFormatRawTOC, buf)
			}
*/
package scsi

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Operation codes of the commands issued by this package.
const (
	OpInquiry              = 0x12
	OpReadTOC              = 0x43
	OpReadDiscInformation  = 0x51
	OpReadTrackInformation = 0x52
)

// CDB field values.
const (
	InquiryEVPD             = 0x01 // Enable vital product data
	PageUnitSerialNumber    = 0x80 // Vital product data page holding the unit serial number
	TrackAddressTypeLBA     = 0x00 // READ TRACK INFORMATION addresses by logical block
	TrackAddressTypeTrack   = 0x01 // READ TRACK INFORMATION addresses by track number
	TrackAddressTypeSession = 0x02 // READ TRACK INFORMATION addresses by session number
)

// Peripheral device types (byte 0, bits 0-4 of standard inquiry data).
const (
	DeviceTypeDirectAccess = 0x00 // Magnetic disk
	DeviceTypeCDROM        = 0x05 // CD/DVD
	DeviceTypeOptical      = 0x07 // Optical memory
	DeviceTypeRBC          = 0x0e // Simplified direct-access
)

// READ TOC response formats.
const (
	TOCFormatFormattedTOC = 0x00
	TOCFormatSessionInfo  = 0x01
	TOCFormatRawTOC       = 0x02
)

// SenseSize is the size of the sense buffer passed along with every command.
const SenseSize = 32

// CommandTimeout is the time a device is given to complete a command. It is enforced by the Commander
// implementation, not by this package.
const CommandTimeout = time.Second

// Maximum allocation lengths that fit the CDB fields.
const (
	maxAllocationLength = 0xffff
)

// ErrResponseTooLarge is matched by a *ResponseLengthError.
var ErrResponseTooLarge = errors.New("response length exceeds buffer")

// ErrResponseTooSmall is returned when the response buffer cannot even hold the length header.
var ErrResponseTooSmall = errors.New("response buffer too small")

// ErrCommandFailed is matched by a *CommandError.
var ErrCommandFailed = errors.New("command failed")

// CommandError is returned when a command could not be delivered to the device or the device reported a failure.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("SCSI %s command failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrCommandFailed) match a CommandError.
func (e *CommandError) Is(target error) bool {
	return target == ErrCommandFailed
}

// A Commander sends a SCSI CDB to a device. Data returned by the device is written into response, sense data into
// sense. An error is returned when the command could not be delivered or the device reported a failure status.
type Commander interface {
	Command(cdb []byte, response []byte, sense []byte) error
}

// ResponseLengthError is returned when a device declares a response length larger than the buffer provided.
type ResponseLengthError struct {
	Command   string
	Declared  int
	Available int
}

func (e *ResponseLengthError) Error() string {
	return fmt.Sprintf("%s: declared response length %d exceeds buffer of %d bytes", e.Command, e.Declared,
		e.Available)
}

// Is makes errors.Is(err, ErrResponseTooLarge) match a ResponseLengthError.
func (e *ResponseLengthError) Is(target error) bool {
	return target == ErrResponseTooLarge
}

// CDB6 is a 6-byte command descriptor block.
type CDB6 [6]byte

// CDB10 is a 10-byte command descriptor block.
type CDB10 [10]byte

func allocationLength(response []byte) uint16 {
	if len(response) > maxAllocationLength {
		return maxAllocationLength
	}
	return uint16(len(response))
}
