package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/manav03panchal/chime/internal/alert"
	"github.com/manav03panchal/chime/internal/config"
	"github.com/manav03panchal/chime/internal/delivery"
	"github.com/manav03panchal/chime/internal/logging"
	"github.com/manav03panchal/chime/internal/model"
	"github.com/manav03panchal/chime/internal/notify"
	"github.com/manav03panchal/chime/internal/tui"
	"github.com/manav03panchal/chime/internal/validate"
)

var listenFlagPlain bool

// listenCmd connects to chime serve and presents due reminders.
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Ring reminders pushed by chime serve",
	Long: `Open a session to chime serve and ring each reminder as it comes due.

The session reconnects on its own when the connection drops. Alerts are
acknowledged, skipped or snoozed from here and the result is recorded by
the server.

Keys:
  a / enter  acknowledge     s  skip
  z          snooze          d  dismiss
  p          yield audio     q  quit

Yielding hands the audio to another local feature, such as a call or
playback starting. The alert closes unanswered and does not come back.

Without a terminal (or with --plain) alerts are printed as lines and the
same keys are read from stdin, one per line.

Examples:
  chime listen
  CHIME_TOKEN=secret chime listen --plain`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationDatabase: "none"},
	RunE:        runListen,
}

func init() {
	listenCmd.Flags().BoolVar(&listenFlagPlain, "plain", false,
		"Print alerts as text instead of the interactive view")
	rootCmd.AddCommand(listenCmd)
}

// listenController turns user actions on an open alert into presenter
// commands and action frames.
type listenController struct {
	ctx       context.Context
	presenter *alert.Presenter
	client    *delivery.Client
}

func (c *listenController) Acknowledge(e model.DueEvent) error {
	return c.respond(e, delivery.Action{Kind: delivery.FrameAck, ReminderID: e.ReminderID, FiredAt: e.FiredAt})
}

func (c *listenController) Skip(e model.DueEvent) error {
	return c.respond(e, delivery.Action{Kind: delivery.FrameSkip, ReminderID: e.ReminderID, FiredAt: e.FiredAt})
}

func (c *listenController) Snooze(e model.DueEvent, d time.Duration) error {
	return c.respond(e, delivery.Action{Kind: delivery.FrameSnooze, ReminderID: e.ReminderID, FiredAt: e.FiredAt, Snooze: d})
}

func (c *listenController) Dismiss(e model.DueEvent) error {
	c.presenter.Dismiss(e.Key())
	return nil
}

func (c *listenController) Preempt(model.DueEvent) error {
	c.presenter.Preempt()
	return nil
}

func (c *listenController) respond(e model.DueEvent, a delivery.Action) error {
	c.presenter.Acknowledge(e.Key())
	return c.client.Send(c.ctx, a)
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg := ctx.Config
	if err := validate.ServerURL(cfg.Delivery.ServerURL); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	interactive := !listenFlagPlain && !ctx.IsJSON() && isatty.IsTerminal(os.Stdout.Fd())
	controller := &listenController{ctx: runCtx}

	var (
		prog    *tea.Program
		surface alert.Surface
	)
	if interactive {
		prog = tui.Program(tui.NewListenModel(tui.ListenConfig{
			Controller: controller,
			SnoozeFor:  cfg.Alert.SnoozeFor,
			Now:        ctx.Clock.Now,
		}))
		surface = tui.NewSurface(prog)
	} else {
		surface = alert.NewTextSurface(cmd.OutOrStdout())
	}

	presenter := alert.New(alert.Options{
		SilenceAfter:    cfg.Alert.SilenceAfter,
		DuplicateWindow: cfg.Alert.DuplicateWindow,
		DeepLinkBase:    cfg.Alert.DeepLinkBase,
		Audio:           alert.NewBell(os.Stderr, cfg.Alert.BellInterval, ctx.Clock),
		Notifier:        notify.FromConfig(cfg.Alert),
		Surface:         surface,
		Clock:           ctx.Clock,
	})
	defer presenter.Close()
	controller.presenter = presenter

	var client *delivery.Client
	client, err := delivery.NewClient(delivery.ClientOptions{
		URL:         cfg.Delivery.ServerURL,
		Token:       cfg.Delivery.Token,
		MinBackoff:  cfg.Delivery.MinBackoff,
		MaxBackoff:  cfg.Delivery.MaxBackoff,
		DialTimeout: cfg.Delivery.DialTimeout,
		OnState: func(s delivery.State) {
			if prog != nil {
				prog.Send(tui.ConnStateMsg{State: s, Session: client.Session()})
				return
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s]\n", s)
		},
		OnResult: func(f delivery.Frame) {
			if prog != nil {
				prog.Send(tui.ResultMsg{Frame: f})
				return
			}
			printResult(cmd.OutOrStdout(), f)
		},
	})
	if err != nil {
		return err
	}
	controller.client = client

	log := logging.Component("listen")
	go watchAlertConfig(runCtx, presenter, log)

	done := make(chan error, 1)
	go func() {
		done <- client.Run(runCtx, func(ctx context.Context, e model.DueEvent) {
			if _, err := presenter.Deliver(ctx, e); err != nil {
				log.Warn("alert not presented", logging.KeyReminderID, e.ReminderID, logging.KeyError, err)
			}
		})
	}()

	if interactive {
		_, err := prog.Run()
		cancel()
		<-done
		return err
	}

	go readPlainKeys(runCtx, cmd.InOrStdin(), controller, cfg.Alert.SnoozeFor, cancel)
	return <-done
}

// watchAlertConfig applies alert timing changes from the config file to a
// running presenter.
func watchAlertConfig(ctx context.Context, p *alert.Presenter, log *slog.Logger) {
	path := flagConfig
	if path == "" {
		path = config.DefaultPath()
	}
	err := config.Watch(ctx, path, func(cfg *config.RuntimeConfig, err error) {
		if err != nil {
			log.Warn("config reload failed", logging.KeyError, err)
			return
		}
		p.Configure(alert.Timings{
			SilenceAfter:    cfg.Alert.SilenceAfter,
			DuplicateWindow: cfg.Alert.DuplicateWindow,
		})
		log.Info("alert settings reloaded")
	})
	if err != nil {
		log.Warn("config watch unavailable", logging.KeyError, err)
	}
}

// readPlainKeys acts on the open alert for each key line read from r.
func readPlainKeys(ctx context.Context, r io.Reader, c *listenController, snoozeFor time.Duration, quit func()) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		key := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if key == "q" {
			quit()
			return
		}
		e, ok := c.presenter.Current()
		if !ok {
			continue
		}

		var err error
		switch key {
		case "a", "":
			err = c.Acknowledge(e)
		case "s":
			err = c.Skip(e)
		case "z":
			err = c.Snooze(e, snoozeFor)
		case "d":
			err = c.Dismiss(e)
		case "p":
			err = c.Preempt(e)
		default:
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

func printResult(w io.Writer, f delivery.Frame) {
	switch {
	case f.Error != "":
		fmt.Fprintf(w, "   error: %s\n", f.Error)
	case f.Metrics == nil:
	case f.Metrics.Duplicate:
		fmt.Fprintln(w, "   already recorded")
	default:
		m := f.Metrics.Metrics
		fmt.Fprintf(w, "   streak %d, done %d, skipped %d\n", m.Streak, m.DoneCount, m.SkipCount)
	}
}
