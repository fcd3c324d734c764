package cli

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/yaoapp/xbridge/abi"
	"github.com/yaoapp/xbridge/bridge"
	"github.com/yaoapp/xbridge/config"
	"github.com/yaoapp/xbridge/farside"
)

type demoResult struct {
	Dest        string `json:"dest"`
	Sent        int    `json:"sent"`
	Received    int64  `json:"received"`
	AfterCancel string `json:"after_cancel"`
}

type demoReport struct {
	Results []demoResult  `json:"results"`
	Stats   farside.Stats `json:"stats"`
	Leaked  int           `json:"leaked_cells"`
}

// countingReceiver counts deliveries.
type countingReceiver struct {
	n atomic.Int64
}

func (c *countingReceiver) OnSend(string, []byte) { c.n.Add(1) }

func newDemoCmd() *cobra.Command {
	var dests []string
	var count int
	var post bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Register, dispatch, cancel and release against an in-process library",
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := runDemo(config.Conf, dests, count, post)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return jsoniter.NewEncoder(out).Encode(rep)
			}

			ok := color.New(color.FgGreen)
			bad := color.New(color.FgRed)
			for _, r := range rep.Results {
				c := ok
				if r.Received != int64(r.Sent) {
					c = bad
				}
				c.Fprintf(out, "%-12s sent=%d received=%d after-cancel=%s\n", r.Dest, r.Sent, r.Received, r.AfterCancel)
			}
			fmt.Fprintf(out, "stats: registered=%d cancelled=%d dispatched=%d dropped=%d leaked=%d\n",
				rep.Stats.Registered, rep.Stats.Cancelled, rep.Stats.Dispatched, rep.Stats.Dropped, rep.Leaked)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&dests, "dest", []string{"topic-a", "topic-b"}, "destinations to register")
	cmd.Flags().IntVar(&count, "count", 3, "payloads per destination")
	cmd.Flags().BoolVar(&post, "post", false, "deliver asynchronously through the library queues")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func runDemo(cfg config.Config, dests []string, count int, post bool) (*demoReport, error) {
	if count < 0 {
		return nil, fmt.Errorf("demo: count must not be negative")
	}

	before := abi.Live()
	lib, err := farside.New(farside.WithConfig(cfg))
	if err != nil {
		return nil, err
	}
	client := bridge.New(lib)

	type entry struct {
		reg  *bridge.Registration
		recv *countingReceiver
	}
	entries := make([]entry, 0, len(dests))
	for _, dest := range dests {
		recv := &countingReceiver{}
		reg, err := client.Register(dest, recv)
		if err != nil {
			return nil, multierror.Append(err, client.Close()).ErrorOrNil()
		}
		entries = append(entries, entry{reg: reg, recv: recv})
	}

	rep := &demoReport{}
	for _, e := range entries {
		dest := e.reg.Destination()
		for i := 0; i < count; i++ {
			payload := []byte(fmt.Sprintf("%s#%d", dest, i))
			send := client.Send
			if post {
				send = client.Post
			}
			if err := send(dest, payload); err != nil {
				return nil, multierror.Append(err, client.Close()).ErrorOrNil()
			}
		}
		if post {
			waitFor(func() bool { return e.recv.n.Load() >= int64(count) }, 2*time.Second)
		}
	}

	for _, e := range entries {
		dest := e.reg.Destination()
		if err := client.Cancel(e.reg); err != nil {
			return nil, multierror.Append(err, client.Close()).ErrorOrNil()
		}
		after := lib.Send(dest, []byte("late")).String()
		rep.Results = append(rep.Results, demoResult{
			Dest:        dest,
			Sent:        count,
			Received:    e.recv.n.Load(),
			AfterCancel: after,
		})
	}

	if err := client.Close(); err != nil {
		return nil, err
	}
	rep.Stats = lib.Stats()
	rep.Leaked = abi.Live() - before
	return rep, nil
}

func waitFor(cond func() bool, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for !cond() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
}
