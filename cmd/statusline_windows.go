//go:build windows

package cmd

// statusLineFormat pads or truncates printed content to 79 columns rather
// than 80: a cmd.exe console is 80 columns wide by default, and a carriage
// return after writing into the very last column wraps to the next line
// instead of returning to the start of the current one, defeating the
// overwrite.
const statusLineFormat = "\r%-79.79s"
