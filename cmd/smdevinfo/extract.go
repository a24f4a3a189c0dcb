package main

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/t9t/gosmdev/device"
	"github.com/t9t/gosmdev/fragment"
	"github.com/t9t/gosmdev/media"
)

func newExtractCommand(opts *options) *cobra.Command {
	var session, track int
	var overwrite, showProgress bool
	cmd := &cobra.Command{
		Use:   "extract <device> <output file>",
		Short: "Copy a single session or track of an optical disc to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (session > 0) == (track > 0) {
				return errors.New("exactly one of --session and --track is required")
			}

			h, err := opts.openDevice(args[0])
			if err != nil {
				return err
			}
			defer h.Close()

			r, err := selectRange(h, session, track)
			if err != nil {
				return functional(err)
			}
			bps, err := h.BytesPerSector()
			if err != nil {
				return technical(err)
			}
			frag := sectorFragment(r, bps)

			out, err := openOutputFile(args[1], overwrite)
			if err != nil {
				return functional(errors.Wrap(err, "unable to open output file"))
			}
			defer out.Close()

			var progress io.Writer
			if showProgress {
				progress = cmd.ErrOrStderr()
			}
			stop := abortOnInterrupt(h)
			defer stop()

			opts.log.V(1).Info("Extracting", "range", r.String(), "offset", frag.Offset, "size", frag.Length)
			n, err := copyWithProgress(out, fragment.NewReader(h, []fragment.Fragment{frag}), frag.Length, progress)
			if err != nil {
				return technical(errors.Wrapf(err, "extraction stopped after %d bytes", n))
			}
			if n != frag.Length {
				return technical(errors.Errorf("expected to copy %d bytes, but copied only %d", frag.Length, n))
			}
			printErrorRanges(cmd.OutOrStdout(), h)
			return nil
		},
	}
	cmd.Flags().IntVar(&session, "session", 0, "number of the session to extract, starting at 1")
	cmd.Flags().IntVar(&track, "track", 0, "number of the track to extract, starting at 1")
	cmd.Flags().BoolVarP(&overwrite, "force", "f", false, "force; overwrite the output file if it already exists")
	cmd.Flags().BoolVarP(&showProgress, "progress", "p", false, "progress; show progress during extraction")
	return cmd
}

// selectRange returns the sectors of the session or track with the given 1-based number.
func selectRange(h *device.Handle, session int, track int) (media.SectorRange, error) {
	if session > 0 {
		r, err := h.Session(session - 1)
		if errors.Is(err, device.ErrIndexOutOfRange) {
			return media.SectorRange{}, errors.Errorf("disc has no session %d", session)
		}
		return r, err
	}
	t, err := h.Track(track - 1)
	if errors.Is(err, device.ErrIndexOutOfRange) {
		return media.SectorRange{}, errors.Errorf("disc has no track %d", track)
	}
	return t.SectorRange, err
}

// sectorFragment returns the byte range of the sectors in r.
func sectorFragment(r media.SectorRange, bytesPerSector uint32) fragment.Fragment {
	return fragment.Fragment{
		Offset: int64(r.StartSector) * int64(bytesPerSector),
		Length: int64(r.NumberOfSectors) * int64(bytesPerSector),
	}
}
