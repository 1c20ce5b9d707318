package messaging

import (
	"encoding/xml"
	"strings"
)

// RenderTwiML builds the textual reply document Twilio expects: one
// <Message> element per segment inside a <Response> envelope.
func RenderTwiML(segments []string) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<Response>")
	for _, segment := range segments {
		b.WriteString("<Message>")
		_ = xml.EscapeText(&b, []byte(segment))
		b.WriteString("</Message>")
	}
	b.WriteString("</Response>")
	return b.String()
}
