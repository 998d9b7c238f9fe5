package maestro

import "fmt"

// Renderer is the view collaborator of the protocol client. The client
// drives it from the read loop; implementations must not block.
type Renderer interface {
	// ShowTyping displays a pending-reply indicator; ClearTyping removes it.
	ShowTyping()
	ClearTyping()
	// AppendStreamText appends one token to the active streaming reply,
	// implicitly opening it on first call after a finalize.
	AppendStreamText(text string)
	// AppendThinking appends to the visually distinct reasoning side channel.
	AppendThinking(text string)
	// FinalizeStream closes the active streaming reply; media is nil when
	// the stream was preempted by a tool call.
	FinalizeStream(media *ReplyMedia)
	// RenderAssistantMessage renders a complete, non-streamed reply.
	RenderAssistantMessage(text string, media *ReplyMedia)
	RenderError(text string)
	RenderNotice(text string)
}

// ConsoleRenderer writes the chat timeline to stdout. It is the default
// view for the CLI; richer frontends provide their own Renderer.
type ConsoleRenderer struct {
	streaming bool
	thinking  bool
}

func NewConsoleRenderer() *ConsoleRenderer {
	return &ConsoleRenderer{}
}

func (r *ConsoleRenderer) ShowTyping() {
	fmt.Print("assistant is typing...\r")
}

func (r *ConsoleRenderer) ClearTyping() {
	fmt.Print("\r\033[K")
}

func (r *ConsoleRenderer) AppendStreamText(text string) {
	if r.thinking {
		fmt.Println()
		r.thinking = false
	}
	if !r.streaming {
		fmt.Print("assistant: ")
		r.streaming = true
	}
	fmt.Print(text)
}

func (r *ConsoleRenderer) AppendThinking(text string) {
	if !r.thinking {
		fmt.Print("[thinking] ")
		r.thinking = true
	}
	fmt.Print(text)
}

func (r *ConsoleRenderer) FinalizeStream(media *ReplyMedia) {
	if r.streaming || r.thinking {
		fmt.Println()
	}
	r.streaming = false
	r.thinking = false
	if media != nil {
		if media.AudioFileID != "" {
			fmt.Printf("[audio: %s]\n", media.AudioFileID)
		}
		if media.NotationURL != "" {
			fmt.Printf("[notation: %s]\n", media.NotationURL)
		}
	}
}

func (r *ConsoleRenderer) RenderAssistantMessage(text string, media *ReplyMedia) {
	fmt.Printf("assistant: %s\n", text)
	if media != nil {
		if media.AudioFileID != "" {
			fmt.Printf("[audio: %s]\n", media.AudioFileID)
		}
		if media.NotationURL != "" {
			fmt.Printf("[notation: %s]\n", media.NotationURL)
		}
	}
}

func (r *ConsoleRenderer) RenderError(text string) {
	fmt.Printf("error: %s\n", text)
}

func (r *ConsoleRenderer) RenderNotice(text string) {
	fmt.Printf("-- %s --\n", text)
}
