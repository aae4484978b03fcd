package render

import "regexp"

// controlSeq matches a two-byte escape (ESC followed by one of @-Z \ ] ^ _)
// or a CSI sequence. OSC strings and cell attributes are not interpreted.
var controlSeq = regexp.MustCompile(`\x1b(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// StripControl removes terminal control sequences from s.
func StripControl(s string) string {
	return controlSeq.ReplaceAllString(s, "")
}
