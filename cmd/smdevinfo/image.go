package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/t9t/gosmdev/device"
)

func newImageCommand(opts *options) *cobra.Command {
	var overwrite, showProgress bool
	cmd := &cobra.Command{
		Use:   "image <device> <output file>",
		Short: "Copy the entire media of a device to an image file, zero-filling unreadable data",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			h, err := opts.openDevice(args[0])
			if err != nil {
				return err
			}
			defer h.Close()

			out, err := openOutputFile(args[1], overwrite)
			if err != nil {
				return functional(errors.Wrap(err, "unable to open output file"))
			}
			defer out.Close()

			var progress io.Writer
			if showProgress {
				progress = cmd.ErrOrStderr()
			}
			n, err := writeImage(h, out, progress)
			if err != nil {
				return technical(errors.Wrapf(err, "imaging stopped after %d bytes", n))
			}
			printErrorRanges(cmd.OutOrStdout(), h)
			opts.log.V(1).Info("Finished", "bytes", n, "duration", time.Since(start).String())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&overwrite, "force", "f", false, "force; overwrite the output file if it already exists")
	cmd.Flags().BoolVarP(&showProgress, "progress", "p", false, "progress; show progress during imaging")
	return cmd
}

// writeImage copies the media of h, from the current offset up to the media size, to out. An interrupt signal aborts
// the copy.
func writeImage(h *device.Handle, out io.Writer, progress io.Writer) (int64, error) {
	size, err := h.MediaSize()
	if err != nil {
		return 0, err
	}

	var src io.Reader = h
	if size > 0 {
		src = io.LimitReader(h, int64(size)-h.Offset())
	}

	stop := abortOnInterrupt(h)
	defer stop()

	n, err := copyWithProgress(out, src, int64(size), progress)
	if err != nil {
		return n, err
	}
	if size > 0 && uint64(h.Offset()) != size {
		return n, errors.Errorf("expected to copy up to offset %d, but stopped at %d", size, h.Offset())
	}
	return n, nil
}

// abortOnInterrupt signals h to abort reading on SIGINT or SIGTERM until the returned function is called.
func abortOnInterrupt(h *device.Handle) func() {
	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			h.SignalAbort()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

func printErrorRanges(out io.Writer, h *device.Handle) {
	ranges := h.Errors()
	if len(ranges) == 0 {
		fmt.Fprintln(out, "All data was read without errors")
		return
	}
	var total int64
	fmt.Fprintf(out, "Unable to read %d range(s), zero-filled in the image:\n", len(ranges))
	for _, r := range ranges {
		fmt.Fprintf(out, "  offset %d to %d (%s)\n", r.Offset, r.End(), formatBytes(r.Length))
		total += r.Length
	}
	fmt.Fprintf(out, "Total: %s\n", formatBytes(total))
}
