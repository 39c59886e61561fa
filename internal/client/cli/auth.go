package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/nicolasssh/cosplaiii/internal/client/services"
	"github.com/nicolasssh/cosplaiii/internal/common"
)

// loginScreen collects credentials and signs the user in. A success goes
// straight back to the camera; errors keep the user on the form.
func (a *App) loginScreen(ctx context.Context) screen {
	if _, ok := a.session.Current(); ok {
		a.say("You are already signed in.")
		return screenCamera
	}

	for {
		fmt.Print(a.prompt(screenLogin))
		line, err := a.readLine()
		if err != nil {
			return screenExit
		}
		cmd, _ := splitCommand(line)

		switch cmd {
		case "":
			continue
		case "help":
			a.say("Available commands: login, signup, back, exit")
		case "login":
			next, done := a.doSignIn(ctx)
			if done {
				return next
			}
		case "signup":
			return screenSignup
		case "back":
			return screenCamera
		case "exit", "quit":
			return screenExit
		default:
			a.say("Unknown command: " + cmd)
		}
	}
}

func (a *App) doSignIn(ctx context.Context) (screen, bool) {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return screenExit, true
	}
	password, err := GetPassword("Password", a.out)
	if err != nil {
		return screenExit, true
	}
	defer common.WipeByteArray(password)

	if err := a.account.SignIn(ctx, email, password); err != nil {
		switch {
		case errors.Is(err, services.ErrEmailRequired),
			errors.Is(err, services.ErrPasswordRequired):
			a.alert(err.Error())
		case errors.Is(err, common.ErrUnauthorized):
			a.alert("Wrong email or password.")
		default:
			a.alert("Could not sign in: " + err.Error())
		}
		return 0, false
	}

	a.say("Welcome back!")
	return screenCamera, true
}

// signupScreen walks the registration form. The password is asked twice
// and both copies are wiped after use.
func (a *App) signupScreen(ctx context.Context) screen {
	if _, ok := a.session.Current(); ok {
		a.say("You are already signed in.")
		return screenCamera
	}

	for {
		fmt.Print(a.prompt(screenSignup))
		line, err := a.readLine()
		if err != nil {
			return screenExit
		}
		cmd, _ := splitCommand(line)

		switch cmd {
		case "":
			continue
		case "help":
			a.say("Available commands: signup, login, back, exit")
		case "signup":
			next, done := a.doSignUp(ctx)
			if done {
				return next
			}
		case "login":
			return screenLogin
		case "back":
			return screenCamera
		case "exit", "quit":
			return screenExit
		default:
			a.say("Unknown command: " + cmd)
		}
	}
}

func (a *App) doSignUp(ctx context.Context) (screen, bool) {
	username, err := GetSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return screenExit, true
	}
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return screenExit, true
	}
	password, err := GetPassword("Password", a.out)
	if err != nil {
		return screenExit, true
	}
	defer common.WipeByteArray(password)
	confirm, err := GetPassword("Confirm password", a.out)
	if err != nil {
		return screenExit, true
	}
	defer common.WipeByteArray(confirm)

	if err := a.account.SignUp(ctx, username, email, password, confirm); err != nil {
		switch {
		case errors.Is(err, services.ErrUsernameRequired),
			errors.Is(err, services.ErrEmailRequired),
			errors.Is(err, services.ErrPasswordRequired),
			errors.Is(err, services.ErrPasswordMismatch):
			a.alert(err.Error())
		default:
			a.alert("Could not create the account: " + err.Error())
		}
		return 0, false
	}

	a.say("Your account was created. Welcome!")
	return screenCamera, true
}
