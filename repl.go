package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/sat8bit/firstcontact/engine"
	"github.com/sat8bit/firstcontact/leader"
	"github.com/sat8bit/firstcontact/renderer"
	"github.com/sat8bit/firstcontact/simclock"
	"github.com/sat8bit/firstcontact/species"
)

const helpText = `Commands:
  species [name]       list species, or choose one
  skip                 play the default species
  leaders              list world leaders
  highlight <n|role>   select a leader on the map
  contact              open a channel to the highlighted leader
  send <message>       send a message to the highlighted leader
  missile              launch a missile at the highlighted leader's nation
  end                  close the channel
  relations <n|role>   show a leader's opinion of the others
  pause | resume       stop or restart the clock
  speed <x>            set the clock multiplier
  status               show the session
  quit                 end the session`

// errQuit は利用者がセッションを終了したことを表します。
var errQuit = errors.New("quit")

// repl は端末からのコマンドをエンジンに渡します。
type repl struct {
	engine   *engine.Engine
	clock    *simclock.Clock
	registry *leader.Registry
	catalog  *species.Catalog
	console  *renderer.ConsoleRenderer
	out      io.Writer
}

// Run は in から1行ずつコマンドを読み、quit か ctx の終了まで処理します。
func (r *repl) Run(ctx context.Context, in io.Reader) error {
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

	fmt.Fprintln(r.out, "Type 'help' for commands.")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := r.exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintf(r.out, "error: %v\n", err)
			}
		}
	}
}

func (r *repl) exec(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
		return nil
	case "help", "?":
		fmt.Fprintln(r.out, helpText)

	case "species":
		if arg == "" {
			for _, p := range r.catalog.All() {
				fmt.Fprintf(r.out, "- %s (intelligence %d, good %d, evil %d, power %d)\n", p.Name, p.Intelligence, p.Good, p.Evil, p.Power)
			}
			return nil
		}
		return r.engine.SelectSpecies(ctx, arg)

	case "skip":
		return r.engine.SkipSpecies(ctx)

	case "leaders":
		for i, e := range r.registry.All() {
			fmt.Fprintf(r.out, "%2d. %s (%s), standing %d\n", i+1, e.Role, e.Name, e.Standing)
		}

	case "highlight", "select":
		role, err := r.role(arg)
		if err != nil {
			return err
		}
		if _, ok := r.engine.HighlightLeader(ctx, role); !ok {
			return fmt.Errorf("unknown leader %q", arg)
		}

	case "contact", "open":
		if !r.engine.BeginExchange(ctx) {
			return errors.New("cannot open a channel: choose a species and highlight a leader, and wait for pending replies")
		}

	case "send", "say":
		if _, ok := r.engine.SendMessage(ctx, arg); !ok {
			return errors.New("message not sent: choose a species, highlight a leader and type a message")
		}

	case "missile", "strike":
		if _, ok := r.engine.LaunchConsequence(ctx); !ok {
			return errors.New("cannot launch: choose a species and highlight a leader, and wait for the previous strike")
		}

	case "end", "close":
		r.engine.EndExchange(ctx)

	case "relations":
		role, err := r.role(arg)
		if err != nil {
			return err
		}
		return r.relations(role)

	case "pause":
		r.clock.Pause()
		fmt.Fprintln(r.out, "[Clock] paused")
	case "resume":
		r.clock.Resume()
		fmt.Fprintln(r.out, "[Clock] running")
	case "speed":
		m, err := strconv.ParseFloat(arg, 64)
		if err != nil || m <= 0 {
			return fmt.Errorf("speed must be a positive number, got %q", arg)
		}
		r.clock.SetMultiplier(m)
		fmt.Fprintf(r.out, "[Clock] x%g\n", m)

	case "status":
		r.console.Status(r.engine.Snapshot(ctx))

	case "quit", "exit":
		return errQuit

	default:
		return fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
	return nil
}

// role は一覧の番号か Role 名を受け取ります。未知の Role もそのまま返し、判定はエンジンに任せます。
func (r *repl) role(arg string) (string, error) {
	if arg == "" {
		return "", errors.New("which leader? (see 'leaders')")
	}
	if n, err := strconv.Atoi(arg); err == nil {
		entries := r.registry.All()
		if n < 1 || n > len(entries) {
			return "", fmt.Errorf("no leader number %d", n)
		}
		return entries[n-1].Role, nil
	}
	for _, e := range r.registry.All() {
		if strings.EqualFold(e.Role, arg) {
			return e.Role, nil
		}
	}
	return arg, nil
}

func (r *repl) relations(role string) error {
	l, ok := r.registry.Get(role)
	if !ok {
		return fmt.Errorf("unknown leader %q", role)
	}
	targets := make([]string, 0, len(l.Relations))
	for t := range l.Relations {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	fmt.Fprintf(r.out, "%s (%s):\n", role, l.Name)
	for _, t := range targets {
		fmt.Fprintf(r.out, "  %-40s %3d\n", t, l.Relations[t])
	}
	return nil
}
