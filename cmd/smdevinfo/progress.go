package main

import (
	"fmt"
	"io"
	"strings"
)

const copyBufferSize = 1024 * 1024

// copyWithProgress copies src to dst like io.Copy. When progress is not nil, a progress bar relative to totalLength
// is written to it.
func copyWithProgress(dst io.Writer, src io.Reader, totalLength int64, progress io.Writer) (written int64, err error) {
	buf := make([]byte, copyBufferSize)
	if progress == nil || totalLength <= 0 {
		return io.CopyBuffer(dst, src, buf)
	}

	onePercent := float64(totalLength) / float64(100.0)
	totalSize := formatBytes(totalLength)

	// Below copied from io.copyBuffer (https://golang.org/src/io/io.go?s=12796:12856#L380)
	for {
		printProgress(progress, written, totalSize, onePercent)

		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[0:nr])
			if nw > 0 {
				written += int64(nw)
			}
			if ew != nil {
				err = ew
				break
			}
			if nr != nw {
				err = io.ErrShortWrite
				break
			}
		}
		if er != nil {
			if er != io.EOF {
				err = er
			}
			break
		}
	}
	printProgress(progress, written, totalSize, onePercent)
	fmt.Fprintln(progress)
	return written, err
}

func printProgress(out io.Writer, n int64, totalSize string, onePercent float64) {
	percentage := float64(n) / onePercent
	barCount := int(percentage / 2.0)
	if barCount > 50 {
		barCount = 50
	}
	spaceCount := 50 - barCount
	fmt.Fprintf(out, "\r[%s%s] %.2f%% (%s / %s)     ", strings.Repeat("|", barCount), strings.Repeat(" ", spaceCount),
		percentage, formatBytes(n), totalSize)
}
