package main

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/snackx/internal/favorites"
	"github.com/desertthunder/snackx/internal/repositories"
	"github.com/desertthunder/snackx/internal/services"
	"github.com/desertthunder/snackx/internal/shared"
	"github.com/desertthunder/snackx/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      *bufio.Reader

	state    *repositories.StateRepository
	session  *repositories.SessionRepository
	profiles *repositories.ProfileCache

	api         *services.APIService
	users       *services.UserService
	snacks      *services.SnackService
	likes       *services.LikeService
	favorites   *favorites.Store
	browser     *tasks.Browser
	recommender *tasks.Recommender
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// DB holds local state. Without one, nothing is remembered between runs.
	DB         *sql.DB
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      bufio.NewReader(opts.Input),
	}
	r.wire()
	return r
}

// wire builds the repositories, services and stores on top of the database and config.
func (r *Runner) wire() {
	var (
		session  services.Session
		profiles services.ProfileStore
		cache    favorites.Cache
		state    tasks.JSONState
	)
	if r.db != nil {
		r.state = repositories.NewStateRepository(r.db)
		r.session = repositories.NewSessionRepository(r.state)
		r.profiles = repositories.NewProfileCache(r.state)
		session, profiles, cache, state = r.session, r.profiles, r.state, r.state
	}

	r.api = services.NewAPIServiceFromConfig(r.config.API, session, shared.WithLogger(r.logger, "component", "api"))
	r.api.WithHTTPClient(r.httpClient)
	r.users = services.NewUserService(r.api, session, profiles)
	r.snacks = services.NewSnackService(r.api, r.config.Search.PageSize)
	r.likes = services.NewLikeService(r.api)
	r.favorites = favorites.New(favorites.Options{
		Remote:        r.likes,
		Session:       session,
		Cache:         cache,
		Logger:        shared.WithLogger(r.logger, "component", "favorites"),
		ToggleTimeout: r.config.Favorites.ToggleTimeout(),
	})
	r.browser = tasks.NewBrowser(r.snacks, r.logger)
	r.recommender = tasks.NewRecommender(r.snacks, state, r.logger)
}

// SetLogger replaces the logger used by the runner and everything it wired.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.wire()
}

// requireState fails commands that need the local database when none is open.
func (r *Runner) requireState() error {
	if r.state == nil {
		return fmt.Errorf("%w: local database not initialized, run 'snackx setup'", shared.ErrServiceUnavailable)
	}
	return nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, snacksCommand, favoritesCommand, profileCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// prompt reads one line from the runner's input after printing label.
func (r *Runner) prompt(label string) (string, error) {
	if err := r.writePlain("%s: ", label); err != nil {
		return "", err
	}
	line, err := r.input.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, strings.ToLower(label))
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
