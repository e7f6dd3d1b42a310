package download

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ExistingAction is the answer to "the destination file already exists".
type ExistingAction int

const (
	// ActionUnknown aborts the download without touching anything.
	ActionUnknown ExistingAction = iota
	ActionOverwrite
	ActionSaveNew
	ActionCancel
)

func (a ExistingAction) String() string {
	switch a {
	case ActionOverwrite:
		return "overwrite"
	case ActionSaveNew:
		return "new"
	case ActionCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Confirmer answers the two questions a download may ask.
type Confirmer interface {
	// ResolveExisting decides what to do when path already exists.
	ResolveExisting(path string) (ExistingAction, error)
	// ConfirmLarge decides whether a download estimated at sizeMB goes ahead.
	ConfirmLarge(sizeMB float64) (bool, error)
}

// ConsoleConfirmer asks on w and reads one line answers from r.
type ConsoleConfirmer struct {
	r *bufio.Reader
	w io.Writer
}

// NewConsoleConfirmer creates a confirmer that writes questions to w and
// reads answers from r.
func NewConsoleConfirmer(r io.Reader, w io.Writer) *ConsoleConfirmer {
	return &ConsoleConfirmer{r: bufio.NewReader(r), w: w}
}

// ResolveExisting asks whether to overwrite path, save under a new name or
// cancel.
func (c *ConsoleConfirmer) ResolveExisting(path string) (ExistingAction, error) {
	answer, err := c.ask(fmt.Sprintf("%s already exists. Do you want to overwrite, save new file, or cancel? (ow/new/cancel): ", path))
	if err != nil {
		return ActionUnknown, err
	}
	return ParseExistingAction(answer), nil
}

// ConfirmLarge asks whether to go on with a download of about sizeMB. Only
// "yes" continues.
func (c *ConsoleConfirmer) ConfirmLarge(sizeMB float64) (bool, error) {
	answer, err := c.ask(fmt.Sprintf("The estimated download size is %.2f MB. Do you want to continue? (yes/no): ", sizeMB))
	if err != nil {
		return false, err
	}
	return answer == "yes", nil
}

func (c *ConsoleConfirmer) ask(question string) (string, error) {
	if _, err := io.WriteString(c.w, question); err != nil {
		return "", err
	}
	line, err := c.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("could not read answer: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

// ParseExistingAction maps an ow/new/cancel answer. Anything else is
// ActionUnknown.
func ParseExistingAction(answer string) ExistingAction {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "ow":
		return ActionOverwrite
	case "new":
		return ActionSaveNew
	case "cancel":
		return ActionCancel
	default:
		return ActionUnknown
	}
}

// AssumeYes overwrites existing files and accepts large downloads.
type AssumeYes struct{}

func (AssumeYes) ResolveExisting(string) (ExistingAction, error) { return ActionOverwrite, nil }
func (AssumeYes) ConfirmLarge(float64) (bool, error)             { return true, nil }

// Decline cancels whenever a question would be asked.
type Decline struct{}

func (Decline) ResolveExisting(string) (ExistingAction, error) { return ActionCancel, nil }
func (Decline) ConfirmLarge(float64) (bool, error)             { return false, nil }
