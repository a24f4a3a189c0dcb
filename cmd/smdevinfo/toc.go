package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/t9t/gosmdev/device"
)

func newTOCCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "toc <device>",
		Short: "Show the sessions, tracks and lead-outs of an optical disc",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := opts.openDevice(args[0])
			if err != nil {
				return err
			}
			defer h.Close()
			return printTOC(cmd.OutOrStdout(), h)
		},
	}
}

func printTOC(out io.Writer, h *device.Handle) error {
	sessions, err := h.NumberOfSessions()
	if err != nil {
		return technical(err)
	}
	tracks, err := h.NumberOfTracks()
	if err != nil {
		return technical(err)
	}
	leadOuts, err := h.NumberOfLeadOuts()
	if err != nil {
		return technical(err)
	}
	if sessions == 0 && tracks == 0 {
		return functional(errors.New("no table of contents available"))
	}

	if info, err := h.DiscInformation(); err == nil {
		fmt.Fprintf(out, "Disc: %d session(s), first track %d, status %d, erasable %t\n", info.NumberOfSessions,
			info.FirstTrack, info.DiscStatus, info.Erasable)
	}

	for i := 0; i < sessions; i++ {
		s, err := h.Session(i)
		if err != nil {
			return technical(err)
		}
		fmt.Fprintf(out, "Session %2d: %s\n", i+1, s)
	}
	for i := 0; i < tracks; i++ {
		t, err := h.Track(i)
		if err != nil {
			return technical(err)
		}
		fmt.Fprintf(out, "Track   %2d: %s\n", i+1, t)
	}
	for i := 0; i < leadOuts; i++ {
		l, err := h.LeadOut(i)
		if err != nil {
			return technical(err)
		}
		fmt.Fprintf(out, "Lead-out %d: %s\n", i+1, l)
	}
	return nil
}
