package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nicolasssh/cosplaiii/internal/client/capture"
	"github.com/nicolasssh/cosplaiii/internal/client/device"
	"github.com/nicolasssh/cosplaiii/internal/common"
)

// cameraScreen is the home screen: the shutter plus navigation into the
// side branches. A successful capture or pick moves to the preview.
func (a *App) cameraScreen(ctx context.Context) screen {
	for {
		fmt.Print(a.prompt(screenCamera))
		line, err := a.readLine()
		if err != nil {
			return screenExit
		}
		cmd, arg := splitCommand(line)

		switch cmd {
		case "":
			continue
		case "help":
			a.say("Available commands: snap <file>, pick <file>, community, dex, login, signup, profile, settings, menu, exit")
		case "snap", "pick":
			if arg == "" {
				a.say("Usage: " + cmd + " <file>")
				continue
			}
			photo, err := device.LoadPhoto(arg)
			if err != nil {
				a.alert("Could not capture the photo: " + err.Error())
				continue
			}
			if cmd == "snap" {
				err = a.pipeline.Capture(ctx, photo)
			} else {
				err = a.pipeline.Pick(ctx, photo)
			}
			if err != nil {
				if errors.Is(err, common.ErrPermissionDenied) {
					a.alert("Camera access is required to take pictures.")
				} else {
					a.alert(err.Error())
				}
				continue
			}
			return screenPreview
		case "community":
			return screenCommunity
		case "dex", "cosplaydex":
			return screenDex
		case "login":
			return screenLogin
		case "signup":
			return screenSignup
		case "profile":
			return screenProfile
		case "settings":
			return screenSettings
		case "menu":
			a.menu.Toggle()
		case "exit", "quit":
			return screenExit
		default:
			a.say("Unknown command: " + cmd)
		}
	}
}

// previewScreen shows the captured photo and offers "find informations"
// or a discard. With no photo in flight there is nothing to show and the
// screen falls straight back to the camera.
func (a *App) previewScreen(ctx context.Context) screen {
	photo, ok := a.pipeline.Photo()
	if !ok {
		return screenCamera
	}
	a.say(fmt.Sprintf("Previewing %s (%dx%d)", photo.URI, photo.Width, photo.Height))

	for {
		fmt.Print(a.prompt(screenPreview))
		line, err := a.readLine()
		if err != nil {
			return screenExit
		}
		cmd, arg := splitCommand(line)

		switch cmd {
		case "":
			continue
		case "help":
			a.say("Available commands: find, drag <distance>, discard, exit")
		case "find":
			if err := a.pipeline.Submit(ctx); err != nil {
				switch {
				case errors.Is(err, capture.ErrBusy):
					// The control is disabled while a submission runs.
				case errors.Is(err, capture.ErrStale):
					return screenCamera
				default:
					a.alert("Could not process the image: " + err.Error())
				}
				continue
			}
			return screenResult
		case "drag":
			distance, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				a.say("Usage: drag <distance>")
				continue
			}
			if a.pipeline.DragRelease(distance) {
				return screenCamera
			}
			// Below the threshold the preview springs back in place.
		case "discard", "cancel":
			a.pipeline.Cancel()
			return screenCamera
		case "exit", "quit":
			return screenExit
		default:
			a.say("Unknown command: " + cmd)
		}
	}
}

// resultScreen displays the recognition and, below the confidence
// threshold, collects the user's correctness judgment.
func (a *App) resultScreen(ctx context.Context) screen {
	for {
		result, ok := a.pipeline.Result()
		if !ok {
			return screenCamera
		}

		a.say("")
		a.say(result.Character)
		a.say("sure at " + capture.FormatConfidence(result.Confidence))

		if a.pipeline.State() == capture.StateFinalized {
			if a.pipeline.Succeeded() {
				a.say("Added to your cosplaydex!")
			}
			a.pipeline.Reset()
			return screenCamera
		}

		answer, err := GetSimpleText(a.reader, "Is this right? (yes/no/close)", a.out)
		if err != nil {
			return screenExit
		}
		switch strings.ToLower(answer) {
		case "yes", "y":
			if err := a.pipeline.Affirm(ctx); err != nil {
				if errors.Is(err, common.ErrSignInRequired) {
					a.alert("You must sign in to save recognitions.")
				} else {
					a.alert(err.Error())
				}
				continue
			}
		case "no", "n":
			if err := a.pipeline.Reject(ctx); err != nil {
				a.alert(err.Error())
				continue
			}
			if a.pipeline.State() == capture.StateDisplaying {
				a.say("How about this one?")
			}
		case "close":
			a.pipeline.Cancel()
			return screenCamera
		default:
			a.say("Please answer yes, no or close.")
		}
	}
}
