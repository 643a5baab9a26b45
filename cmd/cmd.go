// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/snackx/internal/formatter"
	"github.com/desertthunder/snackx/internal/models"
)

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

// setupCommand handles setup operations for configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml if missing, initialize the local database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration instead",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles account operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in, sign up and manage the stored session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email (defaults to the last one used)"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password (prompted when omitted)"},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "signup",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Display name", Required: true},
					&cli.StringFlag{Name: "email", Usage: "Account email", Required: true},
					&cli.StringFlag{Name: "password", Usage: "Password, at least 8 characters (prompted when omitted)"},
					&cli.StringFlag{Name: "confirm", Usage: "Password again (prompted when omitted)"},
					&cli.BoolFlag{Name: "agree", Usage: "Agree to the terms of service"},
					&cli.StringSliceFlag{Name: "health", Usage: "Health concern code or label: " + codeList(models.HealthConcerns)},
					&cli.StringSliceFlag{Name: "allergy", Usage: "Allergy code or label: " + codeList(models.Allergies)},
				},
				Action: r.AuthSignUp,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session, favorites and profile",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show whether a session is stored and when it expires",
				Action: r.AuthStatus,
			},
		},
	}
}

// snacksCommand handles catalog operations
func snacksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "snacks",
		Aliases: []string{"snack", "s"},
		Usage:   "Search the catalog, read nutrition facts and get recommendations",
		Commands: []*cli.Command{
			{
				Name:  "search",
				Usage: "Search snacks by name, category and badges",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "keyword"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Usage: "Category: " + strings.Join(models.CatalogCategories, ", ")},
					&cli.StringSliceFlag{Name: "tag", Usage: "Badge filter: " + strings.Join(models.Badges, ", ")},
					&cli.IntFlag{Name: "page", Usage: "Page number, starting at 1", Value: 1},
					&cli.IntFlag{Name: "size", Usage: "Snacks per page (default from config)"},
					jsonFlag(),
				},
				Action: r.SnacksSearch,
			},
			{
				Name:  "show",
				Usage: "Show one snack with nutrition facts",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "open", Usage: "Open the snack picture in a browser"},
					jsonFlag(),
				},
				Action: r.SnacksShow,
			},
			{
				Name:  "recommend",
				Usage: "Recommend snacks for your health profile",
				// "과자,떡,빵" is a single category, so values are never split on commas.
				DisableSliceFlagSeparator: true,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "category", Usage: "Narrow to a category (repeatable): " + strings.Join(models.RecommendCategories, " | ")},
					&cli.BoolFlag{Name: "save", Usage: "Remember the categories for next time"},
					jsonFlag(),
				},
				Action: r.SnacksRecommend,
			},
		},
	}
}

// favoritesCommand handles the favorites collection
func favoritesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "favorites",
		Aliases: []string{"fav", "f"},
		Usage:   "Manage favorite snacks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List favorites (refreshed from the server when signed in)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "offline", Usage: "Show the cached list without contacting the server"},
					jsonFlag(),
				},
				Action: r.FavoritesList,
			},
			{
				Name:      "toggle",
				Usage:     "Add a snack to favorites, or remove it if already there",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.FavoritesToggle,
			},
			{
				Name:      "remove",
				Usage:     "Remove a snack from favorites",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.FavoritesRemove,
			},
			{
				Name:   "refresh",
				Usage:  "Replace the cached list with the server's",
				Action: r.FavoritesRefresh,
			},
			{
				Name:  "export",
				Usage: "Export favorites to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Export format: " + strings.Join(formatter.Formats, ", "), Value: "json"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file (directory for markdown)"},
					&cli.BoolFlag{Name: "details", Usage: "Include nutrition facts for every snack"},
					&cli.BoolFlag{Name: "images", Usage: "Download snack pictures (markdown only)"},
					&cli.IntFlag{Name: "workers", Usage: "Concurrent detail requests", Value: 4},
				},
				Action: r.FavoritesExport,
			},
		},
	}
}

// profileCommand handles the signed-in user's profile
func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Show or edit your profile",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the profile",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.ProfileShow,
			},
			{
				Name:  "update",
				Usage: "Change name, email, health concerns or allergies",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "New display name"},
					&cli.StringFlag{Name: "email", Usage: "New email"},
					&cli.StringSliceFlag{Name: "health", Usage: "Replace health concerns: " + codeList(models.HealthConcerns)},
					&cli.StringSliceFlag{Name: "allergy", Usage: "Replace allergies: " + codeList(models.Allergies)},
				},
				Action: r.ProfileUpdate,
			},
		},
	}
}

// apiCommand handles direct backend calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls to the backend",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints the JSON response",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "JSON body to send", Required: true},
				},
				Action: r.APIPost,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for browsing snacks and favorites",
		Action:  r.TUI,
	}
}

func codeList(table []models.Code) string {
	parts := make([]string, len(table))
	for i, c := range table {
		parts[i] = c.Value
	}
	return strings.Join(parts, ", ")
}
