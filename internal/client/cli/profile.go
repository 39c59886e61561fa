package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/nicolasssh/cosplaiii/internal/common"
)

// profileScreen shows the signed-in user's profile and lets them edit the
// display name, email and password. Unauthenticated visitors are sent to
// the login form.
func (a *App) profileScreen(ctx context.Context) screen {
	if _, ok := a.session.Current(); !ok {
		a.say("Sign in to see your profile.")
		return screenLogin
	}

	a.renderProfile(ctx)

	for {
		fmt.Print(a.prompt(screenProfile))
		line, err := a.readLine()
		if err != nil {
			return screenExit
		}
		cmd, arg := splitCommand(line)

		switch cmd {
		case "":
			continue
		case "help":
			a.say("Available commands: username <name>, email <address>, password, logout, back, exit")
		case "username":
			if arg == "" {
				a.say("Usage: username <name>")
				continue
			}
			if err := a.account.UpdateUsername(ctx, arg); err != nil {
				a.alert("Could not update the username: " + err.Error())
				continue
			}
			a.say("Username updated.")
			a.renderProfile(ctx)
		case "email":
			if arg == "" {
				a.say("Usage: email <address>")
				continue
			}
			if err := a.account.UpdateEmail(ctx, arg); err != nil {
				if errors.Is(err, common.ErrUnauthorized) {
					a.alert("Please sign in again to change your email.")
				} else {
					a.alert("Could not update the email: " + err.Error())
				}
				continue
			}
			a.say("Email updated.")
			a.renderProfile(ctx)
		case "password":
			if exit := a.doUpdatePassword(ctx); exit {
				return screenExit
			}
		case "logout":
			a.account.SignOut(ctx)
			a.say("You are signed out.")
			return screenCamera
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

func (a *App) renderProfile(ctx context.Context) {
	profile, err := a.account.Profile(ctx)
	if err != nil {
		a.alert("Could not load the profile: " + err.Error())
		return
	}
	a.say("Username: " + profile.Username)
	a.say("Email:    " + profile.Email)
	a.say("Joined:   " + profile.CreatedAt.Format("02/01/2006"))
}

func (a *App) doUpdatePassword(ctx context.Context) bool {
	password, err := GetPassword("New password", a.out)
	if err != nil {
		return true
	}
	defer common.WipeByteArray(password)
	confirm, err := GetPassword("Confirm password", a.out)
	if err != nil {
		return true
	}
	defer common.WipeByteArray(confirm)

	if string(password) != string(confirm) {
		a.alert("The passwords do not match.")
		return false
	}
	if err := a.account.UpdatePassword(ctx, password); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			a.alert("Please sign in again to change your password.")
		} else {
			a.alert("Could not update the password: " + err.Error())
		}
		return false
	}
	a.say("Password updated.")
	return false
}
