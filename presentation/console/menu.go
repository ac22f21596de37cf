package console

import (
	"github.com/manifoldco/promptui"
)

// MenuAction identifies an operation chosen from the interactive menu.
type MenuAction int

const (
	// ActionBatch uploads every pending video in the configured directory.
	ActionBatch MenuAction = iota
	// ActionSingle uploads one chosen pending video.
	ActionSingle
	// ActionLogin runs the login flow on its own.
	ActionLogin
	// ActionHistory lists uploaded videos.
	ActionHistory
	// ActionClearHistory resets the upload history.
	ActionClearHistory
	// ActionTestBrowser opens the browser and navigates to the upload page.
	ActionTestBrowser
	// ActionQuit exits.
	ActionQuit
)

var menuLabels = []string{
	"Upload all pending videos",
	"Upload a single video",
	"Log in only",
	"Show upload history",
	"Clear upload history",
	"Test browser",
	"Quit",
}

// RunMenu shows the main menu and returns the chosen action.
func RunMenu() (MenuAction, error) {
	prompt := promptui.Select{
		Label: "tokpost",
		Items: menuLabels,
		Size:  len(menuLabels),
	}
	idx, _, err := prompt.Run()
	if err != nil {
		// Ctrl-C inside the menu means quit, not an error.
		if err == promptui.ErrInterrupt {
			return ActionQuit, nil
		}
		return ActionQuit, err
	}
	return MenuAction(idx), nil
}

// ChooseVideo shows a picker over the given file paths and returns the
// selected index.
func ChooseVideo(paths []string) (int, error) {
	prompt := promptui.Select{
		Label: "Pick a video",
		Items: paths,
		Size:  10,
	}
	idx, _, err := prompt.Run()
	return idx, err
}
