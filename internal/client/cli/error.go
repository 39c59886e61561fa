package cli

import (
	"context"
	"fmt"
)

// errorScreen is the full-screen fallback for failures that left no
// usable state behind. It shows the last recorded error and offers a
// retry by going back to the camera.
func (a *App) errorScreen(ctx context.Context) screen {
	msg := a.lastError
	if msg == "" {
		msg = "Something went wrong."
	}
	a.alert(msg)

	for {
		fmt.Print(a.prompt(screenError))
		line, err := a.readLine()
		if err != nil {
			return screenExit
		}
		cmd, _ := splitCommand(line)

		switch cmd {
		case "":
			continue
		case "retry", "back":
			a.lastError = ""
			return screenCamera
		case "exit", "quit":
			return screenExit
		default:
			a.say("Type retry to go back, or exit to quit.")
		}
	}
}
