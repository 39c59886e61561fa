package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/nicolasssh/cosplaiii/internal/client/device"
	"github.com/nicolasssh/cosplaiii/internal/common"
)

var settingsPermissions = []device.Permission{
	device.PermissionCamera,
	device.PermissionPhotoLibrary,
	device.PermissionNotifications,
	device.PermissionLocation,
}

// settingsScreen lists permission toggles and the destructive account
// actions. Granted permissions cannot be switched off from here, matching
// how the host system owns revocation.
func (a *App) settingsScreen(ctx context.Context) screen {
	a.renderSettings(ctx)

	for {
		fmt.Print(a.prompt(screenSettings))
		line, err := a.readLine()
		if err != nil {
			return screenExit
		}
		cmd, arg := splitCommand(line)

		switch cmd {
		case "":
			continue
		case "help":
			a.say("Available commands: grant <permission>, revoke <permission>, logout, delete-data, delete-account, back, exit")
		case "grant":
			p, ok := permissionByName(arg)
			if !ok {
				a.say("Usage: grant <camera|photo_library|notifications|location>")
				continue
			}
			granted, err := a.gate.Request(ctx, p)
			if err != nil {
				a.alert(err.Error())
				continue
			}
			if !granted {
				a.say("Permission not granted.")
			}
			a.renderSettings(ctx)
		case "revoke":
			a.alert(device.ErrCannotRevoke.Error())
		case "logout":
			if _, ok := a.session.Current(); !ok {
				a.say("You are not signed in.")
				continue
			}
			a.account.SignOut(ctx)
			a.say("You are signed out.")
			return screenCamera
		case "delete-data":
			confirmed, err := Confirm(a.reader,
				"Erase all local data, including the onboarding flag?", a.out)
			if err != nil {
				return screenExit
			}
			if !confirmed {
				continue
			}
			if err := a.prefs.Clear(ctx); err != nil {
				a.alert("Could not erase the local data: " + err.Error())
				continue
			}
			a.say("Local data erased.")
			return screenOnboarding
		case "delete-account":
			next, done := a.doDeleteAccount(ctx)
			if done {
				return next
			}
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

func (a *App) renderSettings(ctx context.Context) {
	a.say("Permissions:")
	for _, p := range settingsPermissions {
		state := "not granted"
		if a.gate.Granted(ctx, p) {
			state = "granted"
		}
		a.say(fmt.Sprintf("  %-15s %s", p, state))
	}
}

func permissionByName(name string) (device.Permission, bool) {
	for _, p := range settingsPermissions {
		if string(p) == name {
			return p, true
		}
	}
	return "", false
}

func (a *App) doDeleteAccount(ctx context.Context) (screen, bool) {
	if _, ok := a.session.Current(); !ok {
		a.say("You are not signed in.")
		return 0, false
	}

	confirmed, err := Confirm(a.reader,
		"Delete your account and everything you posted? This cannot be undone.", a.out)
	if err != nil {
		return screenExit, true
	}
	if !confirmed {
		return 0, false
	}

	password, err := GetPassword("Password", a.out)
	if err != nil {
		return screenExit, true
	}
	defer common.WipeByteArray(password)

	if err := a.account.DeleteAccount(ctx, password); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			a.alert("Wrong password.")
		} else {
			a.alert("Could not delete the account: " + err.Error())
		}
		return 0, false
	}

	a.say("Your account was deleted.")
	return screenCamera, true
}
