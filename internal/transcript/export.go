package transcript

import (
	"bufio"
	"fmt"
	"io"

	"agentroom/internal/persona"
)

// ExportHTML writes the transcript as a standalone HTML page. Message text
// goes through EscapeAngles and names are styled with the persona colors.
func ExportHTML(w io.Writer, msgs []Message, roster []persona.Persona) error {
	out := bufio.NewWriter(w)
	fmt.Fprintln(out, "<!doctype html>")
	fmt.Fprintln(out, `<html><head><meta charset="utf-8"><title>transcript</title></head><body>`)
	fmt.Fprintln(out, `<div id="messages">`)
	for _, msg := range msgs {
		style := Resolve(roster, msg)
		fmt.Fprintf(out, `<div class="bubble %s">`, EscapeAngles(msg.Role))
		if msg.IsAgent() {
			color := style.Color
			if color == "" {
				color = persona.DefaultColor
			}
			fmt.Fprintf(out, `<img class="icon" src="%s"><span class="agent" style="color:%s">%s</span>`,
				EscapeAngles(style.Icon), EscapeAngles(color), EscapeAngles(msg.Name))
		}
		fmt.Fprintf(out, `<span class="time">%s</span><pre>%s</pre></div>`+"\n",
			EscapeAngles(msg.Timestamp), EscapeAngles(msg.Content))
	}
	fmt.Fprintln(out, "</div></body></html>")
	return out.Flush()
}
