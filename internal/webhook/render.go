package webhook

import (
	"fmt"
	"strings"
	"time"

	"repair_audit_backend/internal/diagnostic/service"
)

// outgoing is one chat message and the pause to keep after it.
type outgoing struct {
	Text  string
	Delay time.Duration
}

// renderReply flattens a reply into plain chat messages. Links become text
// lines and the keyboard becomes a numbered list on the last message.
func renderReply(reply service.Reply) []outgoing {
	out := make([]outgoing, 0, len(reply.Messages)+1)
	for _, m := range reply.Messages {
		text := strings.TrimSpace(m.Text)
		if links := renderLinks(m.Links); links != "" {
			text += "\n\n" + links
		}
		if text == "" {
			continue
		}
		out = append(out, outgoing{Text: text, Delay: time.Duration(m.DelayMs) * time.Millisecond})
	}

	if menu := renderOptions(reply.Options); menu != "" {
		if len(out) == 0 {
			out = append(out, outgoing{Text: menu})
		} else {
			out[len(out)-1].Text += "\n\n" + menu
		}
	}
	return out
}

func renderLinks(links []service.Link) string {
	lines := make([]string, 0, len(links))
	for _, l := range links {
		switch {
		case l.URL != "":
			lines = append(lines, fmt.Sprintf("%s: %s", l.Label, l.URL))
		case l.Callback != "":
			if cmd, ok := commandForCallback[l.Callback]; ok {
				lines = append(lines, fmt.Sprintf("%s: отправьте %s", l.Label, cmd))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func renderOptions(options []string) string {
	if len(options) == 0 {
		return ""
	}
	lines := make([]string, 0, len(options)+1)
	lines = append(lines, "Ответьте цифрой:")
	for i, o := range options {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, o))
	}
	return strings.Join(lines, "\n")
}
