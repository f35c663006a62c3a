// Command bpmgrd is a thin CLI front end for the breakpoint management
// core: it loads a target configuration, wires a gdbremote.Session to a
// ptrace-backed process and enables its managers, and offers a
// subcommand to parse and print site addresses. It does not implement the GDB remote wire protocol
// itself (spec.md §1) — a real debug server embeds pkg/bpmgr the same
// way this binary does and layers its own ProtocolLayer on top.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/undoio/bpmgr/internal/config"
	"github.com/undoio/bpmgr/pkg/bpmgr"
	"github.com/undoio/bpmgr/pkg/gdbremote"
)

var log = logrus.WithFields(logrus.Fields{"layer": "bpmgrd"})

var configPath string

func main() {
	setupConsole()

	root := &cobra.Command{
		Use:   "bpmgrd",
		Short: "breakpoint management core, CLI front end",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(serveCmd())
	root.AddCommand(inspectSitesCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupConsole mirrors cmd/dlv's console setup: colorized logrus output
// only when stderr is a real terminal.
func setupConsole() {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		logrus.SetOutput(colorable.NewColorableStderr())
	} else {
		logrus.SetOutput(os.Stderr)
	}
}

func loadConfig() config.Config {
	if configPath == "" {
		return config.Default()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Warnf("could not load config %s, using defaults: %v", configPath, err)
		return config.Default()
	}
	return cfg
}

func serveCmd() *cobra.Command {
	var pid int
	var tids []int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "wire a session to an already-attached process and enable its breakpoint managers",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
				logrus.SetLevel(lvl)
			}

			if len(tids) == 0 {
				tids = []int{pid}
			}
			process := bpmgr.NewPtraceProcess(pid, tids)
			session := gdbremote.NewSession(process)
			session.EnableAll()

			log.Infof("serving pid %d on %s (arch=%s)", pid, cfg.Listen, cfg.Arch)
			// A real ProtocolLayer would drive session from here; this
			// CLI front end only demonstrates the wiring.
		},
	}
	cmd.Flags().IntVar(&pid, "pid", 0, "pid of the already-attached traced process")
	cmd.Flags().IntSliceVar(&tids, "tid", nil, "tids of the already-attached threads (defaults to pid itself)")
	return cmd
}

func inspectSitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect-sites <addr>...",
		Short: "parse and print breakpoint addresses as they would be registered",
		Run: func(cmd *cobra.Command, args []string) {
			for _, arg := range args {
				raw, err := strconv.ParseUint(arg, 0, 64)
				if err != nil {
					fmt.Fprintf(os.Stderr, "skipping %q: %v\n", arg, err)
					continue
				}
				addr := bpmgr.NewAddress(raw)
				fmt.Printf("%s valid=%v\n", addr, addr.Valid())
			}
		},
	}
}
