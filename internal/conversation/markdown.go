package conversation

import (
	"fmt"
	"strings"
)

// Markdown renders the conversation as a chat-style document. This is the
// human-readable twin of the JSON record and is regenerated on every save.
func Markdown(c *Conversation) string {
	var b strings.Builder

	title := c.Preview()
	if title == "" {
		title = "Conversation"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- ID: `%s`\n", c.ID)
	fmt.Fprintf(&b, "- Model: `%s`\n", c.Model)
	fmt.Fprintf(&b, "- Started: %s\n", c.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "- Messages: %d\n\n", len(c.Messages))

	for _, m := range c.Messages {
		b.WriteString("---\n\n")
		switch m.Role {
		case RoleUser:
			b.WriteString("#### You\n\n")
		case RoleAssistant:
			b.WriteString("#### Assistant\n\n")
		default:
			fmt.Fprintf(&b, "#### %s\n\n", m.Role)
		}
		b.WriteString(strings.TrimRight(m.Content, "\n"))
		b.WriteString("\n\n")

		if len(m.Resources) > 0 {
			b.WriteString("Attached:\n")
			for _, r := range m.Resources {
				if r.Path != "" {
					fmt.Fprintf(&b, "- %s: `%s`\n", r.Type, r.Path)
				} else {
					fmt.Fprintf(&b, "- %s\n", r.Type)
				}
			}
			b.WriteString("\n")
		}
		if m.Role == RoleAssistant && !m.Usage.IsZero() {
			fmt.Fprintf(&b, "_%s_\n\n", m.Usage)
		}
	}
	return b.String()
}
