package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// affordanceWidth is the cell width of a title-bar button such as "[x]"
const affordanceWidth = 3

// FrameStyles colors panel borders
type FrameStyles struct {
	Border        lipgloss.Style
	FocusedBorder lipgloss.Style
	Title         lipgloss.Style
	Affordance    lipgloss.Style
}

// NewFrameStyles creates default frame styles
func NewFrameStyles() *FrameStyles {
	return &FrameStyles{
		Border: lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")),
		FocusedBorder: lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")),
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true),
		Affordance: lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")),
	}
}

// affordanceStart returns the relative x of the i-th title-bar button counted
// from the right edge. Buttons sit flush against the "─╮" corner.
func affordanceStart(width, i int) int {
	return width - 2 - affordanceWidth*(i+1)
}

// renderFrame draws a rounded box of exactly width x height cells with the
// title and buttons in the top border. Body lines are clipped or padded to the
// inner size. When resizeHandle is set the cell left of the bottom-right
// corner shows a grip.
func renderFrame(
	styles *FrameStyles,
	title string,
	buttons []string,
	body []string,
	width, height int,
	focused bool,
	resizeHandle bool,
) string {
	if width < 4 || height < 2 {
		return ""
	}
	innerW := width - 2
	innerH := height - 2

	border := styles.Border
	if focused {
		border = styles.FocusedBorder
	}

	// Top border: ╭─ title ───── [e][x]─╮
	buttonsW := affordanceWidth * len(buttons)
	titleRoom := innerW - buttonsW - 3 // "─ " before and " " after the title
	if titleRoom < 0 {
		titleRoom = 0
		buttons = nil
		buttonsW = 0
	}
	title = ansi.Truncate(title, titleRoom, "…")
	fill := innerW - 1 - buttonsW - 2 - ansi.StringWidth(title)
	if fill < 1 {
		fill = 1
	}

	var top strings.Builder
	top.WriteString(border.Render("╭─ "))
	top.WriteString(styles.Title.Render(title))
	top.WriteString(border.Render(" " + strings.Repeat("─", fill-1)))
	// buttons are listed right-to-left so index 0 is nearest the corner
	for i := len(buttons) - 1; i >= 0; i-- {
		top.WriteString(styles.Affordance.Render(buttons[i]))
	}
	top.WriteString(border.Render("─╮"))
	topLine := fitLine(top.String(), width)

	var sb strings.Builder
	sb.WriteString(topLine)
	for i := 0; i < innerH; i++ {
		line := ""
		if i < len(body) {
			line = body[i]
		}
		sb.WriteString("\n")
		sb.WriteString(border.Render("│"))
		sb.WriteString(fitLine(line, innerW))
		sb.WriteString(border.Render("│"))
	}

	sb.WriteString("\n")
	if resizeHandle {
		sb.WriteString(border.Render("╰" + strings.Repeat("─", innerW-1)))
		sb.WriteString(styles.Affordance.Render("◢"))
		sb.WriteString(border.Render("╯"))
	} else {
		sb.WriteString(border.Render("╰" + strings.Repeat("─", innerW) + "╯"))
	}

	return sb.String()
}

// fitLine clips or pads s to exactly width cells
func fitLine(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := ansi.StringWidth(s)
	if w > width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-w)
}

// fitLines pads or clips a block of lines to exactly height entries
func fitLines(lines []string, height int) []string {
	if height <= 0 {
		return nil
	}
	if len(lines) > height {
		return lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines
}
