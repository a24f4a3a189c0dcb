package scsi

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/t9t/gosmdev/binutil"
)

// InquiryCDB builds an INQUIRY CDB. When vpd is set the vital product data page is requested instead of the
// standard inquiry data.
func InquiryCDB(vpd bool, page byte, allocLength uint16) CDB6 {
	var cdb CDB6
	cdb[0] = OpInquiry
	if vpd {
		cdb[1] = InquiryEVPD
		cdb[2] = page
	}
	binary.BigEndian.PutUint16(cdb[3:5], allocLength)
	return cdb
}

// ReadTOCCDB builds a READ TOC CDB for the given response format.
func ReadTOCCDB(format byte, allocLength uint16) CDB10 {
	var cdb CDB10
	cdb[0] = OpReadTOC
	cdb[2] = format & 0x0f
	binary.BigEndian.PutUint16(cdb[7:9], allocLength)
	return cdb
}

// ReadDiscInformationCDB builds a READ DISC INFORMATION CDB for standard disc information.
func ReadDiscInformationCDB(allocLength uint16) CDB10 {
	var cdb CDB10
	cdb[0] = OpReadDiscInformation
	binary.BigEndian.PutUint16(cdb[7:9], allocLength)
	return cdb
}

// ReadTrackInformationCDB builds a READ TRACK INFORMATION CDB addressing the track that contains the logical block
// lba.
func ReadTrackInformationCDB(lba uint32, allocLength uint16) CDB10 {
	var cdb CDB10
	cdb[0] = OpReadTrackInformation
	cdb[1] = TrackAddressTypeLBA
	binary.BigEndian.PutUint32(cdb[2:6], lba)
	binary.BigEndian.PutUint16(cdb[7:9], allocLength)
	return cdb
}

// Inquiry sends an INQUIRY command and returns the number of valid bytes in response. Standard inquiry data declares
// its additional length in byte 4, vital product data in byte 3.
func Inquiry(dev Commander, vpd bool, page byte, response []byte) (int, error) {
	if len(response) < 5 {
		return 0, errors.Wrapf(ErrResponseTooSmall, "INQUIRY needs at least 5 bytes, got %d", len(response))
	}
	cdb := InquiryCDB(vpd, page, allocationLength(response))
	sense := make([]byte, SenseSize)
	if err := dev.Command(cdb[:], response, sense); err != nil {
		return 0, &CommandError{Command: "INQUIRY", Err: err}
	}

	declared := int(response[4]) + 5
	if vpd {
		declared = int(response[3]) + 4
	}
	return checkDeclared("INQUIRY", declared, response)
}

// ReadTOC sends a READ TOC command with the given format and returns the number of valid bytes in response,
// including the 2-byte length field.
func ReadTOC(dev Commander, format byte, response []byte) (int, error) {
	if len(response) < 4 {
		return 0, errors.Wrapf(ErrResponseTooSmall, "READ TOC needs at least 4 bytes, got %d", len(response))
	}
	cdb := ReadTOCCDB(format, allocationLength(response))
	sense := make([]byte, SenseSize)
	if err := dev.Command(cdb[:], response, sense); err != nil {
		return 0, &CommandError{Command: "READ TOC", Err: err}
	}
	return checkDeclared("READ TOC", declaredLength(response), response)
}

// ReadDiscInformation sends a READ DISC INFORMATION command and returns the number of valid bytes in response.
func ReadDiscInformation(dev Commander, response []byte) (int, error) {
	if len(response) < 2 {
		return 0, errors.Wrapf(ErrResponseTooSmall, "READ DISC INFORMATION needs at least 2 bytes, got %d",
			len(response))
	}
	cdb := ReadDiscInformationCDB(allocationLength(response))
	sense := make([]byte, SenseSize)
	if err := dev.Command(cdb[:], response, sense); err != nil {
		return 0, &CommandError{Command: "READ DISC INFORMATION", Err: err}
	}
	return checkDeclared("READ DISC INFORMATION", declaredLength(response), response)
}

// ReadTrackInformation sends a READ TRACK INFORMATION command for the track containing lba and returns the number of
// valid bytes in response.
func ReadTrackInformation(dev Commander, lba uint32, response []byte) (int, error) {
	if len(response) < 2 {
		return 0, errors.Wrapf(ErrResponseTooSmall, "READ TRACK INFORMATION needs at least 2 bytes, got %d",
			len(response))
	}
	cdb := ReadTrackInformationCDB(lba, allocationLength(response))
	sense := make([]byte, SenseSize)
	if err := dev.Command(cdb[:], response, sense); err != nil {
		return 0, &CommandError{Command: "READ TRACK INFORMATION", Err: err}
	}
	return checkDeclared("READ TRACK INFORMATION", declaredLength(response), response)
}

// declaredLength reads the big-endian data length in the first 2 bytes, which does not count the length field itself.
func declaredLength(response []byte) int {
	return int(binutil.NewBigEndianReader(response).Uint16(0)) + 2
}

func checkDeclared(command string, declared int, response []byte) (int, error) {
	if declared > len(response) {
		return 0, &ResponseLengthError{Command: command, Declared: declared, Available: len(response)}
	}
	return declared, nil
}
