package email

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/castpost/castpost/internal/core"
)

const subjectPrefix = "[castpost]"

// AttachmentName is the fixed ASCII filename used for attached audio.
// Provider titles are frequently non-ASCII and some mail clients choke on
// encoded attachment filenames.
const AttachmentName = "castpost_audio.mp3"

// BuildMessage composes the delivery for a selected item. A non-empty
// overflowLink switches the body to the link variant and drops the
// attachment.
func BuildMessage(to, from string, channel core.Channel, item core.Item, artifactPath, overflowLink string) (Message, error) {
	var md strings.Builder
	fmt.Fprintf(&md, "New audio from **%s**.\n\n", channel.DisplayName())
	fmt.Fprintf(&md, "**Title:** %s\n\n", item.Title)
	if overflowLink != "" {
		md.WriteString("The file exceeds the attachment limit and was uploaded instead.\n\n")
		fmt.Fprintf(&md, "Download it here: <%s>\n\n", overflowLink)
	} else {
		md.WriteString("The MP3 is attached to this email.\n\n")
	}
	md.WriteString("---\n\nThis email was generated automatically.\n")

	body, err := renderMarkdown(md.String())
	if err != nil {
		return Message{}, err
	}

	msg := Message{
		From:    from,
		To:      to,
		Subject: fmt.Sprintf("%s %s", subjectPrefix, item.Title),
		Body:    body,
	}
	if overflowLink == "" {
		msg.AttachmentPath = artifactPath
		msg.AttachmentName = AttachmentName
	}
	return msg, nil
}

func renderMarkdown(source string) (string, error) {
	converter := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := converter.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	return buf.String(), nil
}
