package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/tuicore/internal/app"
	"github.com/zjrosen/tuicore/internal/backend/bubbletea"
	"github.com/zjrosen/tuicore/internal/config"
	"github.com/zjrosen/tuicore/internal/core/eventparser"
	"github.com/zjrosen/tuicore/internal/core/vnode"
	"github.com/zjrosen/tuicore/internal/log"
	"github.com/zjrosen/tuicore/internal/tracestore"
	"github.com/zjrosen/tuicore/internal/tracing"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a small sample view against the bubbletea backend",
	Long:  `Boots the bubbletea backend against a tiny counter view, useful for manual smoke-testing the turn pipeline and as the target of end-to-end tests.`,
	RunE:  runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

type demoState struct {
	count int
}

const demoButtonID = "demo-increment"

func demoView(appState any) vnode.VNode {
	s, _ := appState.(*demoState)
	count := 0
	if s != nil {
		count = s.count
	}
	return vnode.VNode{
		Kind: vnode.KindColumn,
		Children: []vnode.VNode{
			{Kind: vnode.KindText, Props: vnode.Props{Text: fmt.Sprintf("count: %d", count)}},
			{Kind: vnode.KindButton, Props: vnode.Props{ID: demoButtonID, Text: "increment (enter)"}},
		},
	}
}

func runDemo(cmd *cobra.Command, args []string) error {
	cleanup, err := initDebugLogging("tuicore-demo")
	if err != nil {
		return err
	}
	defer cleanup()

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	be := bubbletea.New()
	a := app.New(&cfg, be, demoView, &demoState{})

	a.RegisterWidgetHandler(vnode.KindButton, func(ev eventparser.Event, focusedID string) bool {
		if focusedID != demoButtonID || ev.Kind != eventparser.KindKey || ev.Key.Key != "enter" {
			return false
		}
		a.Enqueue(func(appState any) any {
			s := appState.(*demoState)
			return &demoState{count: s.count + 1}
		})
		return true
	})

	var sinks []tracing.TraceSink
	if cfg.Tracing.Enabled {
		provider, err := tracing.NewProvider(cfg.Tracing)
		if err != nil {
			return fmt.Errorf("starting tracer: %w", err)
		}
		defer provider.Shutdown(context.Background())
		sinks = append(sinks, tracing.NewOtelSink(provider))
	}
	if cfg.Tracing.StorePath != "" {
		store, err := tracestore.Open(cfg.Tracing.StorePath)
		if err != nil {
			return fmt.Errorf("opening tracestore: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, tracestore.NewSink(store))
	}
	if len(sinks) > 0 {
		a.SetTraceSink(tracing.NewMultiSink(sinks...))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("starting app: %w", err)
	}

	select {
	case <-be.Done():
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
