package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nicolasssh/cosplaiii/internal/client/models"
	"github.com/nicolasssh/cosplaiii/internal/client/services"
	"github.com/nicolasssh/cosplaiii/internal/common"
)

// communityScreen renders the feed and handles post/like/delete actions.
// Every mutation ends in a refetch so the list only ever shows what the
// server confirmed.
func (a *App) communityScreen(ctx context.Context) screen {
	posts, err := a.feed.FetchPosts(ctx)
	if err != nil {
		if errors.Is(err, common.ErrUnavailable) {
			a.lastError = "The community feed is unreachable right now."
			return screenError
		}
		a.alert("Could not load the posts: " + err.Error())
	} else {
		a.renderPosts(posts)
	}

	var pendingImage string

	for {
		fmt.Print(a.prompt(screenCommunity))
		line, err := a.readLine()
		if err != nil {
			return screenExit
		}
		cmd, arg := splitCommand(line)

		switch cmd {
		case "":
			continue
		case "help":
			a.say("Available commands: post <text>, attach <file>, like <n>, delete <n>, refresh, menu, back, exit")
		case "attach":
			if arg == "" {
				a.say("Usage: attach <file>")
				continue
			}
			pendingImage = arg
			a.say("Image attached to your next post.")
		case "post":
			if err := a.feed.AddPost(ctx, arg, pendingImage); err != nil {
				switch {
				case errors.Is(err, services.ErrEmptyPost):
					a.alert("Please enter some text or attach an image.")
				case errors.Is(err, common.ErrSignInRequired):
					a.alert("You must sign in to publish a post.")
				default:
					a.alert("Could not publish the post: " + err.Error())
				}
				continue
			}
			pendingImage = ""
			posts = a.refreshPosts(ctx, posts)
		case "like":
			post, ok := postByIndex(posts, arg)
			if !ok {
				a.say("Usage: like <post number>")
				continue
			}
			refreshed, err := a.feed.ToggleLike(ctx, post.ID)
			if err != nil {
				if errors.Is(err, common.ErrSignInRequired) {
					a.alert("You must sign in to like a post.")
				} else {
					a.alert(err.Error())
				}
				continue
			}
			posts = refreshed
			a.renderPosts(posts)
		case "delete":
			post, ok := postByIndex(posts, arg)
			if !ok {
				a.say("Usage: delete <post number>")
				continue
			}
			confirmed, err := Confirm(a.reader,
				"Delete this post? This cannot be undone.", a.out)
			if err != nil {
				return screenExit
			}
			if !confirmed {
				continue
			}
			if err := a.feed.DeletePost(ctx, post.ID); err != nil {
				switch {
				case errors.Is(err, common.ErrForbidden):
					a.alert("You can only delete your own posts.")
				case errors.Is(err, common.ErrSignInRequired):
					a.alert("You must sign in to delete a post.")
				default:
					a.alert("Could not delete the post: " + err.Error())
				}
				continue
			}
			a.say("The post was deleted.")
			posts = a.refreshPosts(ctx, posts)
		case "refresh":
			posts = a.refreshPosts(ctx, posts)
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

func (a *App) refreshPosts(ctx context.Context, previous []models.Post) []models.Post {
	posts, err := a.feed.FetchPosts(ctx)
	if err != nil {
		a.alert("Could not load the posts: " + err.Error())
		return previous
	}
	a.renderPosts(posts)
	return posts
}

func (a *App) renderPosts(posts []models.Post) {
	if len(posts) == 0 {
		a.say("No posts yet. What's up?")
		return
	}

	uid := ""
	if user, ok := a.session.Current(); ok {
		uid = user.UID
	}

	now := time.Now()
	for i, p := range posts {
		header := fmt.Sprintf("%d. %s - %s", i+1, p.Username, services.FormatPostAge(p.CreatedAt, now))
		a.say(header)
		if p.Content != "" {
			a.say("   " + p.Content)
		}
		if p.ImageURL != "" {
			a.say("   [image] " + p.ImageURL)
		}
		likes := fmt.Sprintf("   %d like", len(p.Likes))
		if len(p.Likes) != 1 {
			likes += "s"
		}
		if uid != "" && p.LikedBy(uid) {
			likes += " (you)"
		}
		a.say(likes)
	}
}

func postByIndex(posts []models.Post, arg string) (models.Post, bool) {
	var n int
	if _, err := fmt.Sscanf(arg, "%d", &n); err != nil {
		return models.Post{}, false
	}
	if n < 1 || n > len(posts) {
		return models.Post{}, false
	}
	return posts[n-1], true
}
