// Package main provides the mixtape command line player.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mixtape/internal/infra/config"
	"github.com/osa030/mixtape/internal/infra/logger"
)

var (
	app        = kingpin.New("mixtape", "Local MP3 player with JSON-backed playlists")
	configPath = app.Flag("config", "Path to config file").Envar("MIXTAPE_CONFIG").String()
	storePath  = app.Flag("store", "Path to the playlist store (overrides config)").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	// playlists command
	playlistsCmd = app.Command("playlists", "List playlists").Alias("ls")

	// create command
	createCmd  = app.Command("create", "Create a playlist")
	createName = createCmd.Arg("name", "Playlist name").Required().String()

	// rename command
	renameCmd = app.Command("rename", "Rename a playlist")
	renameOld = renameCmd.Arg("old", "Current name").Required().String()
	renameNew = renameCmd.Arg("new", "New name").Required().String()

	// delete command
	deleteCmd  = app.Command("delete", "Delete a playlist").Alias("rm")
	deleteName = deleteCmd.Arg("name", "Playlist name").Required().String()

	// tracks command
	tracksCmd  = app.Command("tracks", "Show the tracks of a playlist").Alias("show")
	tracksName = tracksCmd.Arg("name", "Playlist name").Required().String()

	// add command
	addCmd   = app.Command("add", "Add audio files to a playlist")
	addName  = addCmd.Arg("name", "Playlist name").Required().String()
	addPaths = addCmd.Arg("files", "Audio files").Required().ExistingFiles()

	// remove command
	removeCmd   = app.Command("remove", "Remove a track from a playlist")
	removeName  = removeCmd.Arg("name", "Playlist name").Required().String()
	removeIndex = removeCmd.Arg("index", "Track number (1-based)").Required().Int()

	// update command
	updateCmd    = app.Command("update", "Update fields of a track (path, title, duration)")
	updateName   = updateCmd.Arg("name", "Playlist name").Required().String()
	updateIndex  = updateCmd.Arg("index", "Track number (1-based)").Required().Int()
	updateFields = updateCmd.Arg("fields", "field=value pairs").Required().StringMap()

	// sort command
	sortCmd  = app.Command("sort", "Sort a playlist by title")
	sortName = sortCmd.Arg("name", "Playlist name").Required().String()

	// search command
	searchCmd   = app.Command("search", "Search a playlist by title or path")
	searchName  = searchCmd.Arg("name", "Playlist name").Required().String()
	searchQuery = searchCmd.Arg("query", "Text to look for").Required().String()

	// import command
	importCmd  = app.Command("import", "Import a list of paths (one per line, M3U works) into a playlist")
	importName = importCmd.Arg("name", "Playlist name").Required().String()
	importFile = importCmd.Arg("file", "List file, or - for stdin").Default("-").String()

	// filters command
	filtersCmd = app.Command("filters", "List the active file filters")

	// play command
	playCmd     = app.Command("play", "Start the interactive player").Default()
	playArgs    = playCmd.Arg("playlist-or-files", "A playlist name, or audio files to play").Strings()
	playShuffle = playCmd.Flag("shuffle", "Start with shuffle on").Bool()
	playRepeat  = playCmd.Flag("repeat", "Start with repeat-one on").Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stderr",
		Level:  "warn",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closeLog()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}
	if *storePath != "" {
		cfg.Store.Path = *storePath
	}
	zlog.Debug().Msgf("config loaded: path=%q store=%s", *configPath, cfg.Store.Path)

	if err := run(command, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closeLog()
		os.Exit(1)
	}
}

// run dispatches the parsed command.
func run(command string, cfg *config.Config) error {
	out := os.Stdout

	switch command {
	case playlistsCmd.FullCommand():
		return listPlaylists(out, cfg)
	case createCmd.FullCommand():
		return createPlaylist(out, cfg, *createName)
	case renameCmd.FullCommand():
		return renamePlaylist(out, cfg, *renameOld, *renameNew)
	case deleteCmd.FullCommand():
		return deletePlaylist(out, cfg, *deleteName)
	case tracksCmd.FullCommand():
		return showTracks(out, cfg, *tracksName)
	case addCmd.FullCommand():
		return addFiles(out, cfg, *addName, *addPaths)
	case removeCmd.FullCommand():
		return removeTrack(out, cfg, *removeName, *removeIndex)
	case updateCmd.FullCommand():
		return updateTrack(out, cfg, *updateName, *updateIndex, *updateFields)
	case sortCmd.FullCommand():
		return sortPlaylist(out, cfg, *sortName)
	case searchCmd.FullCommand():
		return searchPlaylist(out, cfg, *searchName, *searchQuery)
	case importCmd.FullCommand():
		return importList(out, cfg, *importName, *importFile)
	case filtersCmd.FullCommand():
		return listFilters(out, cfg)
	case playCmd.FullCommand():
		if *playShuffle {
			cfg.Playback.Shuffle = true
		}
		if *playRepeat {
			cfg.Playback.Repeat = config.RepeatOne
		}
		return play(os.Stdin, out, cfg, *playArgs)
	}
	return nil
}
