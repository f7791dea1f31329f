package main

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"topten/internal/api"
	"topten/internal/config"
)

const (
	serverStartTimeout = 3 * time.Second
	serverStopTimeout  = 2 * time.Second
	serverPollInterval = 100 * time.Millisecond

	noAutostartEnvKey = "TOPTEN_NO_AUTOSTART"
)

func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	cleanup, err := ensureServer(cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	client := api.NewClient(cfg.APIURL)
	return fn(client)
}

// ensureServer starts a private `topten srv` child when nothing answers at
// cfg.APIURL. The returned cleanup stops that child.
func ensureServer(cfg *config.Config) (func(), error) {
	client := api.NewClient(cfg.APIURL)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := client.Ping(ctx); err == nil {
		return nil, nil
	}
	if autostartDisabled() {
		return nil, nil
	}

	cmd, err := startServerProcess(cfg)
	if err != nil {
		return nil, err
	}

	if err := waitForServer(client, serverStartTimeout); err != nil {
		stopServerProcess(cmd)
		return nil, err
	}

	return func() { stopServerProcess(cmd) }, nil
}

func autostartDisabled() bool {
	raw := strings.TrimSpace(os.Getenv(noAutostartEnvKey))
	if raw == "" {
		return false
	}
	disabled, err := strconv.ParseBool(raw)
	return err == nil && disabled
}

func startServerProcess(cfg *config.Config) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(exe, "srv")
	cmd.Env = append(os.Environ(),
		"TOPTEN_DB="+cfg.DBPath,
		"TOPTEN_API_URL="+cfg.APIURL,
	)
	if cfg.Blob.URL != "" {
		cmd.Env = append(cmd.Env, "TOPTEN_BLOB_URL="+cfg.Blob.URL)
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// stopServerProcess asks the child to shut down gracefully, killing it when
// it does not exit in time.
func stopServerProcess(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}
	select {
	case <-done:
	case <-time.After(serverStopTimeout):
		_ = cmd.Process.Kill()
		<-done
	}
}

func waitForServer(client *api.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		err := client.Ping(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if !isConnRefused(err) {
			return err
		}
		time.Sleep(serverPollInterval)
	}
	return errors.New("server did not start in time")
}

func isConnRefused(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
