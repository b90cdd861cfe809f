// Command ticktask-demo drives a small state machine on a fixed-step tick
// loop, printing transitions and task stacks as it goes. It exists to
// exercise the public API end to end; pass --metrics-addr to also expose the
// manager's Prometheus metrics.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/halcyon-games/ticktask/core"
	ttprom "github.com/halcyon-games/ticktask/observability/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "ticktask-demo",
		Usage: "run a demo task FSM on a fixed-step tick loop",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "ticks",
				Value: 120,
				Usage: "number of ticks to simulate",
			},
			&cli.Float64Flag{
				Name:  "dt",
				Value: 1.0 / 60.0,
				Usage: "simulated seconds per tick",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log transitions and print task stacks every tick",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on this address (e.g. :9100)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	ticks := c.Int("ticks")
	dt := core.TaskTime(c.Float64("dt"))
	verbose := c.Bool("verbose")

	var logger core.Logger = core.NewNoOpLogger()
	if verbose {
		logger = core.NewDefaultLogger()
	}

	cfg := &core.ManagerConfig{Logger: logger}
	if addr := c.String("metrics-addr"); addr != "" {
		exporter, err := ttprom.NewMetricsExporter("ticktask", prom.DefaultRegisterer, ttprom.ExporterOptions{})
		if err != nil {
			return fmt.Errorf("metrics setup: %w", err)
		}
		cfg.Metrics = exporter
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			_ = http.ListenAndServe(addr, nil)
		}()
	}

	// Frame clock: saved once per tick so every task resumed in one update
	// observes the same time.
	now := core.TaskTime(0)
	clock := func() core.TaskTime { return now }

	mgr := core.NewTaskManager(cfg)
	mgr.SetName("demo")

	fsm := buildDemoFSM(clock)
	fsm.SetLogger(logger)

	fsmHandle := core.RunOn(mgr, fsm.Run(nil, func(d core.TransitionDebugData) {
		if verbose {
			fmt.Printf("transition: %s -> %s\n", d.OldStateName, d.NewStateName)
		}
	}))
	defer fsmHandle.Release()

	// A fire-and-forget heartbeat next to the FSM.
	mgr.RunManaged(core.Start(func(tc *core.TaskContext) {
		tc.SetDebugName("heartbeat")
		for {
			core.AwaitValue(tc, core.WaitSeconds(0.5, clock))
			if verbose {
				fmt.Printf("heartbeat at t=%.2f\n", now)
			}
		}
	}))

	for i := 0; i < ticks && !fsmHandle.IsDone(); i++ {
		now += dt
		mgr.Update()
		if verbose {
			fmt.Println(core.DebugStackFormatter{}.Format(mgr.DebugString()))
		}
	}

	if fsmHandle.IsDone() {
		if id, ok := fsmHandle.TakeReturnValue(); ok {
			fmt.Printf("fsm finished in %s after simulating %.2fs\n", id, now)
			mgr.KillAll()
			return nil
		}
	}
	fmt.Printf("fsm still running after %d ticks (t=%.2fs)\n", ticks, now)
	mgr.KillAll()
	return nil
}

// buildDemoFSM wires a patrol/chase/done machine: patrol for a bit, "spot"
// a target at a scripted time, chase it with a timeout, then finish.
func buildDemoFSM(clock core.TimeFn) *core.TaskFSM {
	fsm := core.NewTaskFSM()
	fsm.SetName("patrol")

	patrol := core.AddState(fsm, "Patrol", func() *core.Task[core.Void] {
		return core.Start(func(tc *core.TaskContext) {
			tc.SetDebugName("patrolling")
			core.AwaitValue(tc, core.WaitSeconds(0.25, clock))
		})
	})

	chase := core.AddStateWithInput(fsm, "Chase", func(speed float64) *core.Task[core.Void] {
		return core.Start(func(tc *core.TaskContext) {
			tc.SetDebugName("chasing")
			chaseTime := core.TaskTime(1.0 / speed)
			core.AwaitValue(tc, core.Timeout(core.WaitSeconds(chaseTime, clock), 0.75, clock))
		})
	})

	done := fsm.AddExitState("Done")

	spotted := func() bool { return clock() >= 0.5 }
	fsm.EntryLinks(patrol.Link())
	fsm.StateLinks(patrol,
		chase.LinkIf(spotted, 2.0),
		patrol.OnCompleteLink(),
	)
	fsm.StateLinks(chase, done.OnCompleteLink())

	return fsm
}
