package cli

import (
	"context"

	"github.com/nicolasssh/cosplaiii/internal/client/device"
	"github.com/nicolasssh/cosplaiii/internal/client/repositories/prefs"
)

type slide struct {
	title string
	text  string
}

var onboardingSlides = []slide{
	{"Take a picture", "Take a picture of your favorite cosplay"},
	{"Ask for infos", "Ask for information about the cosplay"},
	{"Get a response", "Get the character of the cosplay"},
}

// onboardingScreen walks the intro slides on first run. The camera
// permission is requested on the first slide; a denial keeps the user on
// it. Completing the last slide persists the launch flag so subsequent
// cold starts go straight to the camera.
func (a *App) onboardingScreen(ctx context.Context) screen {
	for i := 0; i < len(onboardingSlides); {
		s := onboardingSlides[i]
		a.say("")
		a.say(s.title)
		a.say(s.text)

		label := "Next?"
		if i == len(onboardingSlides)-1 {
			label = "Confirm?"
		}
		ok, err := Confirm(a.reader, label, a.out)
		if err != nil {
			return screenExit
		}
		if !ok {
			continue
		}

		if i == 0 && !a.gate.Granted(ctx, device.PermissionCamera) {
			granted, err := a.gate.Request(ctx, device.PermissionCamera)
			if err != nil {
				return screenExit
			}
			if !granted {
				a.alert("You must allow camera access to continue.")
				continue
			}
		}
		i++
	}

	if err := a.prefs.Set(ctx, prefs.KeyHasLaunched, "true"); err != nil {
		a.log.Warn(ctx, "failed to persist launch flag", "error", err)
	}
	return screenCamera
}
