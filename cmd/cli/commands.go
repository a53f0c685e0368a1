package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	base string
	key  string
	http *http.Client
}

type envelope struct {
	Success     bool            `json:"success"`
	Error       string          `json:"error"`
	Data        json.RawMessage `json:"data"`
	Stats       map[string]int  `json:"stats"`
	Cached      bool            `json:"cached"`
	CheckTimeMS int64           `json:"check_time_ms"`
	Timestamp   string          `json:"timestamp"`
}

type row struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	Provider     string `json:"provider"`
	Status       string `json:"status"`
	ResponseTime int64  `json:"responseTime"`
	Error        string `json:"error"`
	Method       string `json:"method"`
	HTTPCode     int    `json:"httpCode"`
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &client{http: &http.Client{Timeout: 60 * time.Second}}

	root := &cobra.Command{
		Use:           "mirrormon",
		Short:         "Query a mirrormon API for Docker mirror health",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultBase := os.Getenv("API_BASE")
	if defaultBase == "" {
		defaultBase = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&c.base, "api", defaultBase, "API base URL (env API_BASE)")
	root.PersistentFlags().StringVar(&c.key, "key", os.Getenv("API_KEY"), "API key sent as X-API-Key (env API_KEY)")

	root.AddCommand(newCheckCmd(c, out), newProbeCmd(c, out))
	return root
}

func newCheckCmd(c *client, out io.Writer) *cobra.Command {
	var (
		quick   bool
		force   bool
		timeout int
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check every configured mirror (or the first few with --quick)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			q.Set("action", "check_all")
			if quick {
				q.Set("action", "quick_check")
			}
			if force {
				q.Set("force", "1")
			}
			if timeout > 0 {
				q.Set("timeout", strconv.Itoa(timeout))
			}

			env, err := c.do(http.MethodGet, q, nil)
			if err != nil {
				return err
			}
			var rows []row
			if err := json.Unmarshal(env.Data, &rows); err != nil {
				return fmt.Errorf("decode results: %w", err)
			}
			printTable(out, rows)
			printSummary(out, env)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quick, "quick", "q", false, "only check the first mirrors")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the server cache")
	cmd.Flags().IntVarP(&timeout, "timeout", "t", 0, "per-probe timeout in seconds (1-30)")
	return cmd
}

func newProbeCmd(c *client, out io.Writer) *cobra.Command {
	var timeout int
	cmd := &cobra.Command{
		Use:   "probe <url>",
		Short: "Check a single mirror URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.TrimSpace(args[0])
			if !strings.Contains(raw, "://") {
				raw = "https://" + raw
			}
			if _, err := url.ParseRequestURI(raw); err != nil {
				return fmt.Errorf("invalid URL %q", args[0])
			}

			body, _ := json.Marshal(map[string]any{"url": raw, "timeout": timeout})
			env, err := c.do(http.MethodPost, url.Values{"action": {"check_service"}}, body)
			if err != nil {
				return err
			}
			var r row
			if err := json.Unmarshal(env.Data, &r); err != nil {
				return fmt.Errorf("decode result: %w", err)
			}
			printTable(out, []row{r})
			return nil
		},
	}
	cmd.Flags().IntVarP(&timeout, "timeout", "t", 0, "probe timeout in seconds (1-30)")
	return cmd
}

func (c *client) do(method string, q url.Values, body []byte) (*envelope, error) {
	u := strings.TrimRight(c.base, "/") + "/api?" + q.Encode()
	req, err := http.NewRequest(method, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "mirrormon-cli/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contacting API: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("API returned status %s", resp.Status)
	}
	if !env.Success {
		if env.Error == "" {
			env.Error = resp.Status
		}
		return nil, fmt.Errorf("API error: %s", env.Error)
	}
	return &env, nil
}
