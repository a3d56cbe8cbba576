package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/momentlog/momentlog/account"
	"github.com/momentlog/momentlog/app"
	"github.com/momentlog/momentlog/domain"
	core "github.com/momentlog/momentlog/feed"
	"github.com/momentlog/momentlog/infra/auth"
	"github.com/momentlog/momentlog/infra/config"
	"github.com/momentlog/momentlog/infra/editor"
	"github.com/momentlog/momentlog/infra/logger"
	"github.com/momentlog/momentlog/infra/media"
	"github.com/momentlog/momentlog/infra/music"
	"github.com/momentlog/momentlog/infra/sqlite"
	"github.com/momentlog/momentlog/tui"
	"github.com/momentlog/momentlog/tui/feed"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type cliMode int

const (
	cliRun cliMode = iota
	cliVersion
	cliHelp
	cliLogin
	cliLogout
	cliImport
	cliUsername
	cliProfile
	cliInvalid
)

// parseCLIArgs returns the mode and, for login, username and import, its
// argument. Profile flags are parsed later by parseProfileFlags.
// For cliInvalid the string is the error message.
func parseCLIArgs(args []string) (cliMode, string) {
	if len(args) == 0 {
		return cliRun, ""
	}

	switch args[0] {
	case "--version", "-version", "-v":
		return cliVersion, ""
	case "--help", "-h", "help":
		return cliHelp, ""
	case "login":
		if len(args) != 2 || strings.TrimSpace(args[1]) == "" {
			return cliInvalid, "login expects exactly one username"
		}
		return cliLogin, strings.TrimSpace(args[1])
	case "logout":
		if len(args) != 1 {
			return cliInvalid, "logout takes no arguments"
		}
		return cliLogout, ""
	case "username":
		if len(args) != 2 || strings.TrimSpace(args[1]) == "" {
			return cliInvalid, "username expects exactly one name"
		}
		return cliUsername, strings.TrimSpace(args[1])
	case "profile":
		if len(args) == 1 {
			return cliInvalid, "profile expects at least one of --name, --avatar, --bio, --private, --public"
		}
		return cliProfile, ""
	case "import":
		if len(args) != 2 || strings.TrimSpace(args[1]) == "" {
			return cliInvalid, "import expects exactly one file"
		}
		return cliImport, args[1]
	default:
		return cliInvalid, fmt.Sprintf("unexpected argument: %s", strings.Join(args, " "))
	}
}

func usage() string {
	return "Usage: momentlog [--version|-version|-v] [--help|-h] [login <username>] [logout] [username <name>] [profile --name N --avatar A --bio B --private|--public] [import <file.json>]"
}

func resolveVersionInfo(v, c, d, moduleVersion string, settings map[string]string) (string, string, string) {
	if v == "dev" {
		mv := strings.TrimSpace(moduleVersion)
		if mv != "" && mv != "(devel)" {
			v = mv
		}
	}
	if c == "none" {
		rev := strings.TrimSpace(settings["vcs.revision"])
		if rev != "" {
			if len(rev) > 12 {
				rev = rev[:12]
			}
			c = rev
		}
	}
	if d == "unknown" {
		t := strings.TrimSpace(settings["vcs.time"])
		if t != "" {
			d = t
		}
	}
	return v, c, d
}

func buildSettingsMap(in []debug.BuildSetting) map[string]string {
	out := make(map[string]string, len(in))
	for _, s := range in {
		out[s.Key] = s.Value
	}
	return out
}

func resolvedRuntimeVersionInfo(v, c, d string) (string, string, string) {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return v, c, d
	}
	return resolveVersionInfo(v, c, d, info.Main.Version, buildSettingsMap(info.Settings))
}

func main() {
	args := os.Args[1:]
	mode, arg := parseCLIArgs(args)
	switch mode {
	case cliVersion:
		v, c, d := resolvedRuntimeVersionInfo(version, commit, date)
		fmt.Printf("momentLog %s\ncommit: %s\nbuilt: %s\n", v, c, d)
		return
	case cliHelp:
		fmt.Println(usage())
		return
	case cliInvalid:
		fmt.Fprintf(os.Stderr, "%s\n%s\n", arg, usage())
		os.Exit(2)
	}

	if err := run(mode, arg, args); err != nil {
		fmt.Fprintf(os.Stderr, "momentlog: %v\n", err)
		os.Exit(1)
	}
}

// run opens the store and session, then performs mode. Deferred cleanup
// always runs because errors are returned rather than exiting here.
func run(mode cliMode, arg string, args []string) error {
	ctx := context.Background()

	// 1. Load config from environment.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Path: cfg.LogPath})
	defer logger.Close()

	// 2. Open the store and the signed-in session.
	store, err := sqlite.Open(ctx, cfg.DBPath, sqlite.WithLogger(logger.Named("sqlite")))
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer store.Close()

	identity, err := auth.NewFileIdentity(cfg.SessionPath)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	accounts := account.New(store, store, identity)

	// 3. One-shot commands.
	switch mode {
	case cliLogin:
		return login(ctx, accounts, identity, arg)
	case cliLogout:
		if err := identity.SignOut(); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		fmt.Println("Signed out.")
		return nil
	case cliImport:
		return importFile(ctx, store, arg)
	case cliUsername:
		if err := accounts.ChangeUsername(ctx, arg); err != nil {
			return fmt.Errorf("username: %w", err)
		}
		fmt.Printf("Username is now @%s.\n", account.NormalizeUsername(arg))
		return nil
	case cliProfile:
		return editProfile(ctx, accounts, identity, args[1:])
	}
	return runTUI(ctx, cfg, store, identity, accounts)
}

func login(ctx context.Context, accounts *account.Service, identity *auth.FileIdentity, username string) error {
	p, err := accounts.FindOrCreate(ctx, username)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := identity.SignIn(app.User{ID: p.ID, DisplayName: p.DisplayName, Avatar: p.Avatar}); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	fmt.Printf("Signed in as @%s.\n", p.Username)
	return nil
}

func importFile(ctx context.Context, store *sqlite.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer f.Close()
	stats, err := store.Import(ctx, f)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Printf("Imported %d users, %d moments, %d comments (%d skipped).\n",
		stats.Users, stats.Moments, stats.Comments, stats.Skipped)
	return nil
}

// parseProfileFlags applies the profile flags on top of the current profile,
// so fields that are not named keep their value.
func parseProfileFlags(args []string, current domain.UserProfile) (account.ProfileEdit, error) {
	edit := account.ProfileEdit{
		DisplayName: current.DisplayName,
		Avatar:      current.Avatar,
		Bio:         current.Bio,
		Private:     current.Private,
	}
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&edit.DisplayName, "name", edit.DisplayName, "display name")
	fs.StringVar(&edit.Avatar, "avatar", edit.Avatar, "avatar emoji")
	fs.StringVar(&edit.Bio, "bio", edit.Bio, "short bio")
	private := fs.Bool("private", false, "require approval for new followers")
	public := fs.Bool("public", false, "let anyone follow")

	if err := fs.Parse(args); err != nil {
		return edit, err
	}
	if fs.NArg() > 0 {
		return edit, fmt.Errorf("unexpected argument: %s", strings.Join(fs.Args(), " "))
	}
	if *private && *public {
		return edit, errors.New("--private and --public cannot be combined")
	}
	if *private {
		edit.Private = true
	}
	if *public {
		edit.Private = false
	}
	return edit, nil
}

func editProfile(ctx context.Context, accounts *account.Service, identity *auth.FileIdentity, args []string) error {
	u, ok := identity.CurrentUser()
	if !ok {
		return domain.ErrNotSignedIn
	}
	current, err := accounts.Profile(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	edit, err := parseProfileFlags(args, current)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	if err := accounts.UpdateProfile(ctx, edit); err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	// Keep the session's display snapshot in step with the profile.
	u.DisplayName, u.Avatar = strings.TrimSpace(edit.DisplayName), edit.Avatar
	if err := identity.SignIn(u); err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	state := "public"
	if edit.Private {
		state = "private"
	}
	fmt.Printf("Profile updated (%s).\n", state)
	return nil
}

func runTUI(ctx context.Context, cfg config.Config, store *sqlite.Store, identity *auth.FileIdentity, accounts *account.Service) error {
	log := logger.Get()

	// 4. Build the optional integrations.
	var sink app.MediaSink
	if cfg.Media.Enabled() {
		s3, err := media.NewS3Sink(ctx, cfg.Media)
		if err != nil {
			return fmt.Errorf("media: %w", err)
		}
		sink = s3
	}
	player := feed.NewPlayer(logger.Named("player"))
	defer player.StopAll()

	// 5. Wire the feed core.
	agg := core.NewAggregator(core.WithPageSize(cfg.PageSize), core.WithLogger(logger.Named("feed")))
	session := core.NewSession(agg, core.SessionConfig{
		Source:   store,
		Identity: identity,
		Profiles: store,
		Player:   player,
		Log:      logger.Named("session"),
	})
	defer session.Close()
	coord := core.NewCoordinator(agg, core.Services{
		Source:   store,
		Sink:     store,
		Media:    sink,
		Music:    music.NewResolver(cfg.Music),
		Identity: identity,
		Profiles: store,
		Reloader: session,
		Log:      logger.Named("coordinator"),
	})
	if err := coord.RefreshMine(ctx); err != nil {
		log.Warn().Err(err).Msg("initial refresh of own moments failed")
	}

	uiState, err := config.LoadUIState(cfg.UIStatePath)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring unreadable ui state")
	}

	// 6. Wire root TUI model.
	rootModel := tui.NewApp(tui.Deps{
		Session:     session,
		Aggregator:  agg,
		Coordinator: coord,
		Accounts:    accounts,
		Source:      store,
		Identity:    identity,
		Editor:      editor.NewEnvEditor(),
		Player:      player,
		State:       uiState,
		SaveState: func(st config.UIState) error {
			return config.SaveUIState(cfg.UIStatePath, st)
		},
		Log: logger.Named("tui"),
	})
	defer rootModel.Close()

	// 7. Run.
	p := tea.NewProgram(rootModel, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
