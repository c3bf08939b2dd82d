package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

type statusEnvelope struct {
	Data *struct {
		Connected bool              `json:"connected"`
		State     string            `json:"state"`
		Scope     string            `json:"scope"`
		Unread    int               `json:"unread"`
		Stale     bool              `json:"stale"`
		Checks    map[string]string `json:"checks"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// runStatus prints the status of the daemon listening on --addr, falling
// back to TENDERBELL_LOCAL_ADDR.
func runStatus(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("status", pflag.ContinueOnError)
	addr := fs.String("addr", "", "loopback address of the daemon")
	timeout := fs.Duration("timeout", 3*time.Second, "request timeout")
	if helped, err := parseFlags(fs, args, out); helped || err != nil {
		return err
	}
	if *addr == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		*addr = cfg.Local.Addr
	}
	if *addr == "" {
		return errors.New("daemon address unknown: pass --addr or set TENDERBELL_LOCAL_ADDR")
	}

	base := *addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/status", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var env statusEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	if env.Error != nil {
		return fmt.Errorf("%s: %s", env.Error.Code, env.Error.Message)
	}
	if env.Data == nil {
		return errors.New("empty status response")
	}

	d := env.Data
	fmt.Fprintf(out, "scope:     %s\n", d.Scope)
	fmt.Fprintf(out, "state:     %s\n", d.State)
	fmt.Fprintf(out, "connected: %t\n", d.Connected)
	fmt.Fprintf(out, "unread:    %d\n", d.Unread)
	if d.Stale {
		fmt.Fprintln(out, "feed:      stale (restored from snapshot)")
	}
	for _, name := range slices.Sorted(maps.Keys(d.Checks)) {
		fmt.Fprintf(out, "check %s: %s\n", name, d.Checks[name])
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon unhealthy: HTTP %d", resp.StatusCode)
	}
	return nil
}
