//go:build !windows

package cmd

// statusLineFormat pads or truncates printed content to 80 columns, the
// minimum width a VT100-derived terminal is guaranteed to offer, so a
// carriage-return rewrite always fully overwrites whatever was there before.
const statusLineFormat = "\r%-80.80s"
