package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/nicolasssh/cosplaiii/internal/common"
)

// dexScreen shows the catalog grid with unlock counts. Visitors without a
// session see a blocking message in place of the grid, never a partial one.
func (a *App) dexScreen(ctx context.Context) screen {
	a.renderBoard(ctx)

	for {
		fmt.Print(a.prompt(screenDex))
		line, err := a.readLine()
		if err != nil {
			return screenExit
		}
		cmd, _ := splitCommand(line)

		switch cmd {
		case "":
			continue
		case "help":
			a.say("Available commands: refresh, login, menu, back, exit")
		case "refresh":
			a.renderBoard(ctx)
		case "login":
			return screenLogin
		case "menu":
			a.menu.Toggle()
		case "back":
			return screenCamera
		case "exit", "quit":
			return screenExit
		default:
			a.say("Unknown command: " + cmd)
		}
	}
}

func (a *App) renderBoard(ctx context.Context) {
	board, err := a.dex.Fetch(ctx)
	if err != nil {
		if errors.Is(err, common.ErrSignInRequired) {
			a.say("Sign in to see your cosplaydex.")
		} else {
			a.alert("Could not load the cosplaydex: " + err.Error())
		}
		return
	}

	a.say(fmt.Sprintf("Cosplaydex: %d/%d (%.0f%%)",
		board.Unlocked, board.Total, board.Progress()*100))
	for _, e := range board.Entries {
		if e.Count > 0 {
			a.say(fmt.Sprintf("  %s x%d", e.Name, e.Count))
		} else {
			a.say("  " + lockedName(e.Name))
		}
	}
}

// lockedName masks a not-yet-unlocked character the way the grid greys out
// its tile, keeping only the first letter as a hint.
func lockedName(name string) string {
	if name == "" {
		return "???"
	}
	masked := []rune(name)
	for i := 1; i < len(masked); i++ {
		if masked[i] != ' ' {
			masked[i] = '?'
		}
	}
	return string(masked)
}
