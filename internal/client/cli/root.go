package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

type screen int

const (
	screenExit screen = iota
	screenOnboarding
	screenCamera
	screenPreview
	screenResult
	screenCommunity
	screenDex
	screenLogin
	screenSignup
	screenProfile
	screenSettings
	screenError
)

func (s screen) String() string {
	switch s {
	case screenOnboarding:
		return "onboarding"
	case screenCamera:
		return "camera"
	case screenPreview:
		return "preview"
	case screenResult:
		return "result"
	case screenCommunity:
		return "community"
	case screenDex:
		return "cosplaydex"
	case screenLogin:
		return "login"
	case screenSignup:
		return "signup"
	case screenProfile:
		return "profile"
	case screenSettings:
		return "settings"
	case screenError:
		return "error"
	}
	return "exit"
}

// runScreen runs one screen under its own context and returns the next
// one. The screen context is cancelled on teardown, so a request that is
// still in flight when the user navigates away cannot update a screen
// that is no longer mounted.
func (a *App) runScreen(ctx context.Context, s screen) screen {
	screenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	switch s {
	case screenOnboarding:
		return a.onboardingScreen(screenCtx)
	case screenCamera:
		return a.cameraScreen(screenCtx)
	case screenPreview:
		return a.previewScreen(screenCtx)
	case screenResult:
		return a.resultScreen(screenCtx)
	case screenCommunity:
		return a.communityScreen(screenCtx)
	case screenDex:
		return a.dexScreen(screenCtx)
	case screenLogin:
		return a.loginScreen(screenCtx)
	case screenSignup:
		return a.signupScreen(screenCtx)
	case screenProfile:
		return a.profileScreen(screenCtx)
	case screenSettings:
		return a.settingsScreen(screenCtx)
	case screenError:
		return a.errorScreen(screenCtx)
	}
	return screenExit
}

// status renders the prompt suffix: signed-in identity and menu state.
func (a *App) status() string {
	s := ""
	if user, ok := a.session.Current(); ok {
		s = user.Email
	}
	if a.menu.IsOpen() {
		if s != "" {
			s += " "
		}
		s += "menu"
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) prompt(s screen) string {
	return fmt.Sprintf("cosplaiii %s %s> ", s, a.status())
}

// readLine reads one input line, trimming the newline. EOF with a partial
// line returns the partial input; a bare EOF propagates so the loop exits.
func (a *App) readLine() (string, error) {
	line, err := a.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(strings.TrimSpace(line)) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// splitCommand separates the command word from the rest of the line.
func splitCommand(line string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
	cmd := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return cmd, ""
	}
	return cmd, strings.TrimSpace(parts[1])
}
