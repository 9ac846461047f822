package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/finscore/internal/cli"
	"github.com/theirongolddev/finscore/internal/config"
	"github.com/theirongolddev/finscore/internal/daemon"
)

var (
	flagDaemonAddr         string
	flagDaemonSchedule     string
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run a background scoring daemon with HTTP/SSE endpoints",
	Long: "Recompute the report and risk score on a schedule and serve them over HTTP.\n" +
		"Endpoints: /healthz, /v1/status, /v1/report, /v1/risk, /v1/events, /v1/stream, /metrics.",
	RunE: runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonSchedule, "schedule", "", "Recompute schedule, cron expression or @every (default from config)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonPIDFile, "pid-file", filepath.Join(config.DataDir(), "finscored.pid"), "PID file path")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonLogFile, "log-file", filepath.Join(config.DataDir(), "finscored.log"), "Log file path for detached mode")
	daemonCmd.PersistentFlags().IntVar(&flagDaemonEventsBuffer, "events-buffer", 0, "Max in-memory events retained (default from config)")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

func daemonAddr() string {
	if flagDaemonAddr != "" {
		return flagDaemonAddr
	}
	return cfg.Daemon.Addr
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("invalid daemon launch mode")
	}
	pf := pidFile(flagDaemonPIDFile)
	if err := pf.claim(); err != nil {
		return err
	}
	if flagDaemonDetach {
		return startDaemonDetached(pf)
	}
	return runDaemonForeground(cmd.Context(), pf)
}

func startDaemonDetached(pf pidFile) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := make([]string, 0, len(os.Args))
	for _, a := range os.Args[1:] {
		if a != "--detach" && !strings.HasPrefix(a, "--detach=") {
			args = append(args, a)
		}
	}
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}
	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	child.Stdout = logf
	child.Stderr = logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n", pf)
	fmt.Printf("  API: http://%s/v1/status\n", daemonAddr())
	fmt.Printf("  Log: %s\n", flagDaemonLogFile)
	return nil
}

func runDaemonForeground(ctx context.Context, pf pidFile) error {
	user, err := userID()
	if err != nil {
		return err
	}

	log.SetFormatter(&logrus.JSONFormatter{})

	eng, cleanup, err := openEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	schedule := flagDaemonSchedule
	if schedule == "" {
		schedule = cfg.Daemon.Schedule
	}
	buffer := flagDaemonEventsBuffer
	if buffer == 0 {
		buffer = cfg.Daemon.EventsBuffer
	}
	svc, err := daemon.New(eng, daemon.Config{
		UserID:       user,
		Period:       periodLabel(),
		Schedule:     schedule,
		Addr:         daemonAddr(),
		EventsBuffer: buffer,
		AllowOrigins: cfg.Daemon.AllowOrigins,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	if err := pf.write(daemonState{
		PID:       os.Getpid(),
		Addr:      daemonAddr(),
		StartedAt: time.Now(),
		UserID:    user,
	}); err != nil {
		return err
	}
	defer pf.remove()

	fmt.Printf("  finscore daemon listening on http://%s\n", daemonAddr())
	fmt.Printf("  Scoring %s (%s) on schedule %s\n", user, periodLabel(), schedule)
	fmt.Printf("  Stop with: finscore daemon stop --pid-file %s\n", pf)
	log.WithFields(logrus.Fields{"user_id": user, "schedule": schedule}).Info("daemon started")

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(cmd *cobra.Command, _ []string) error {
	st, err := pidFile(flagDaemonPIDFile).read()
	if err != nil {
		fmt.Printf("  Daemon: not running (%v)\n", err)
		return nil
	}
	if !processAlive(st.PID) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", st.PID)
		return nil
	}

	addr := st.Addr
	if addr == "" {
		addr = daemonAddr()
	}
	fmt.Printf("  Daemon PID: %d\n", st.PID)
	fmt.Printf("  Address: http://%s\n", addr)

	reqCtx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, "http://"+addr+"/v1/status", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var status daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}

	if status.LastPollAt.IsZero() {
		fmt.Println("  Last poll: pending")
	} else {
		fmt.Printf("  Last poll: %s\n", status.LastPollAt.Local().Format(time.RFC3339))
	}
	sum := status.Summary
	fmt.Printf("  Poll count: %d (%s)\n", status.PollCount, status.Schedule)
	fmt.Printf("  User: %s, period: %s\n", status.UserID, sum.Period)
	fmt.Printf("  Spent: %s over %d transactions\n", cli.FormatMoney(sum.TotalSpend), sum.Transactions)
	fmt.Printf("  Health: %.0f (%s)\n", sum.HealthScore, sum.HealthLevel)
	fmt.Printf("  Risk: %.1f (%s)\n", sum.RiskScore, sum.RiskLevel)
	if status.LastError != "" {
		fmt.Printf("  Last error: %s\n", status.LastError)
	}
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	pf := pidFile(flagDaemonPIDFile)
	st, err := pf.read()
	if err != nil {
		return errors.New("daemon is not running")
	}

	if err := signalTerminate(st.PID); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(st.PID) {
			pf.remove()
			fmt.Printf("  Stopped daemon (pid %d)\n", st.PID)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("daemon (pid %d) did not exit in time", st.PID)
}
