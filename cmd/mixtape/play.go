package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mixtape/internal/app/notification"
	"github.com/osa030/mixtape/internal/app/playback"
	"github.com/osa030/mixtape/internal/app/session"
	"github.com/osa030/mixtape/internal/infra/audio"
	"github.com/osa030/mixtape/internal/infra/config"
)

const playerHelp = `Commands:
  n, next              next track
  p, prev              previous track
  pause                pause / resume
  stop                 stop playback
  shuffle              toggle shuffle
  repeat               toggle repeat-one
  vol N                set volume (0-100)
  goto N               play track N of the queue
  play NAME            play a playlist
  load PATH            play a single file
  drop PATH...         play dropped files
  dropto NAME PATH...  add files to a playlist
  add NAME             add the current track to a playlist
  ls                   list playlists
  queue                show the queue
  recent               show recently played tracks
  status               show player status
  q, quit              exit`

// console serializes writes from the prompt and the notification sink.
type console struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

func (c *console) Printf(format string, args ...any) {
	fmt.Fprintf(c, format, args...)
}

// play runs the interactive player on the system audio output.
func play(in io.Reader, out io.Writer, cfg *config.Config, args []string) error {
	if !audio.Available {
		zlog.Warn().Msg("audio output is not available in this build; tracks will fail to play")
	}

	engine := audio.NewEngine()
	defer func() {
		if err := engine.Close(); err != nil {
			zlog.Warn().Msgf("failed to close audio engine: %v", err)
		}
	}()

	manager, err := openSession(cfg, engine)
	if err != nil {
		return err
	}
	defer manager.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runPlayer(ctx, in, out, manager, args)
}

// runPlayer starts the session and processes player commands until quit,
// end of input, or ctx is done.
func runPlayer(ctx context.Context, in io.Reader, out io.Writer, manager *session.Manager, args []string) error {
	con := &console{w: out}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := manager.Start(ctx); err != nil {
		return err
	}
	subID := manager.Subscribe(notification.SinkFunc(func(n notification.Notification) error {
		announce(con, n.Event)
		return nil
	}))
	defer manager.Unsubscribe(subID)

	if err := startFromArgs(ctx, con, manager, args); err != nil {
		con.Printf("Error: %v\n", err)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	con.Printf("Type 'help' for commands.\n")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-manager.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := handleCommand(ctx, con, manager, line)
			if err != nil {
				con.Printf("Error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// startFromArgs plays a playlist when args name one, otherwise treats args as files.
func startFromArgs(ctx context.Context, con *console, manager *session.Manager, args []string) error {
	switch {
	case len(args) == 0:
		return nil
	case len(args) == 1 && manager.Store().Exists(args[0]):
		return manager.PlayPlaylist(args[0])
	default:
		result, err := manager.DropFiles(ctx, args, "")
		if result != nil && len(result.Rejected) > 0 {
			renderIntake(con, result)
		}
		return err
	}
}

// announce prints playback notifications the listener cares about.
func announce(con *console, event playback.Event) {
	switch event.Type {
	case playback.EventTrackStarted:
		if event.Track == nil {
			return
		}
		if event.Index >= 0 {
			con.Printf("▶ [%d] %s (%s)\n", event.Index+1, event.Track.Title, event.Track.DisplayDuration())
		} else {
			con.Printf("▶ %s (%s)\n", event.Track.Title, event.Track.DisplayDuration())
		}
	case playback.EventQueueExhausted:
		con.Printf("■ End of queue\n")
	}
}

// handleCommand executes one player command. It reports whether the player should exit.
func handleCommand(ctx context.Context, con *console, manager *session.Manager, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "q", "quit", "exit":
		return true, nil
	case "help", "?":
		con.Printf("%s\n", playerHelp)
	case "n", "next":
		return false, manager.Next()
	case "p", "prev":
		return false, manager.Prev()
	case "pause":
		return false, manager.TogglePause()
	case "stop":
		return false, manager.Stop()
	case "shuffle":
		on, err := manager.ToggleShuffle()
		if err != nil {
			return false, err
		}
		con.Printf("Shuffle: %s\n", onOff(on))
	case "repeat":
		mode, err := manager.ToggleRepeat()
		if err != nil {
			return false, err
		}
		con.Printf("Repeat: %s\n", mode)
	case "vol", "volume":
		if len(args) != 1 {
			return false, errors.New("usage: vol N (0-100)")
		}
		percent, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return false, errors.Wrapf(err, "invalid volume %q", args[0])
		}
		volume, err := manager.SetVolume(percent / 100)
		if err != nil {
			return false, err
		}
		con.Printf("Volume: %.0f%%\n", volume*100)
	case "goto":
		if len(args) != 1 {
			return false, errors.New("usage: goto N")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, errors.Wrapf(err, "invalid track number %q", args[0])
		}
		return false, manager.PlayIndex(n - 1)
	case "play":
		if len(args) == 0 {
			return false, errors.New("usage: play NAME")
		}
		name := strings.Join(args, " ")
		if err := requirePlaylist(manager.Store(), name); err != nil {
			return false, err
		}
		return false, manager.PlayPlaylist(name)
	case "load":
		if len(args) == 0 {
			return false, errors.New("usage: load PATH")
		}
		return false, manager.LoadFile(strings.Join(args, " "))
	case "drop":
		if len(args) == 0 {
			return false, errors.New("usage: drop PATH...")
		}
		result, err := manager.DropFiles(ctx, args, "")
		if err != nil {
			return false, err
		}
		renderIntake(con, result)
	case "dropto":
		if len(args) < 2 {
			return false, errors.New("usage: dropto NAME PATH...")
		}
		result, err := manager.DropFiles(ctx, args[1:], args[0])
		if err != nil {
			return false, err
		}
		renderIntake(con, result)
	case "add":
		if len(args) == 0 {
			return false, errors.New("usage: add NAME")
		}
		name := strings.Join(args, " ")
		result, err := manager.AddCurrentToPlaylist(ctx, name)
		if err != nil {
			return false, err
		}
		if result.Accepted {
			con.Printf("Added to %q\n", name)
		} else {
			con.Printf("Not added to %q: %s\n", name, result.Code)
		}
	case "ls":
		renderPlaylists(con, manager.Store())
	case "queue":
		renderTracks(con, manager.Queue(), manager.GetStatus().CurrentIndex)
	case "recent":
		renderTracks(con, manager.RecentlyPlayed(), -1)
	case "status":
		renderStatus(con, manager.GetStatus())
	default:
		return false, errors.Newf("unknown command %q (type 'help')", cmd)
	}
	return false, nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
