package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/t9t/gosmdev/device"
)

var informationIdentifiers = []string{
	device.InformationVendor,
	device.InformationModel,
	device.InformationSerialNumber,
}

func newInfoCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info <device>",
		Short: "Show the media size, sector size, media type and identification of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := opts.openDevice(args[0])
			if err != nil {
				return err
			}
			defer h.Close()
			return printInfo(cmd.OutOrStdout(), h)
		},
	}
}

func printInfo(out io.Writer, h *device.Handle) error {
	size, err := h.MediaSize()
	if err != nil {
		return technical(err)
	}
	bps, err := h.BytesPerSector()
	if err != nil {
		return technical(err)
	}
	mediaType, err := h.MediaType()
	if err != nil {
		return technical(err)
	}
	busType, err := h.BusType()
	if err != nil {
		return technical(err)
	}

	fmt.Fprintf(out, "Media size:       %d bytes (%s)\n", size, formatBytes(int64(size)))
	fmt.Fprintf(out, "Bytes per sector: %d\n", bps)
	fmt.Fprintf(out, "Media type:       %s\n", mediaType)
	fmt.Fprintf(out, "Bus type:         %s\n", busType)
	for _, identifier := range informationIdentifiers {
		value, err := h.InformationValue(identifier)
		if errors.Is(err, device.ErrValueMissing) {
			continue
		}
		if err != nil {
			return technical(err)
		}
		fmt.Fprintf(out, "%-18s%s\n", identifier+":", value)
	}
	return nil
}
