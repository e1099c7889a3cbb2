package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agroloop/agroloop/internal/app/advisory"
	"github.com/agroloop/agroloop/internal/daemon"
)

// ─── ask / config ───────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(askCmd, configCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask QUESTION...",
	Short: "Ask the farming advisor",
	Long: `Ask the farming advisor a question. With an OpenAI key configured the
answer comes from the vendor; otherwise, or when the vendor fails, it comes
from the built-in knowledge base.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			resp, err := app.Chat.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printResult(cmd, resp, func(w io.Writer) {
				fmt.Fprintln(w, resp.Message)
				fmt.Fprintf(w, "\n(%s, %.0f%% confidence)\n", resp.Provenance.Service, resp.Confidence*100)
			})
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change advisory settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			ai := app.AIConfig.Get()
			view := map[string]any{
				"home":           app.Config.Home,
				"apiAddr":        app.Config.API.Addr(),
				"simulationMode": app.Config.Verification.SimulationMode,
				"enableRealTime": ai.EnableRealTime,
				"useFreeModels":  ai.UseFreeModels,
				"plantnetApiKey": maskKey(ai.PlantNetAPIKey),
				"openaiApiKey":   maskKey(ai.OpenAIAPIKey),
			}
			return printResult(cmd, view, func(w io.Writer) {
				fmt.Fprintf(w, "Home:             %s\n", app.Config.Home)
				fmt.Fprintf(w, "Config file:      %s\n", daemon.ConfigPath(app.Config.Home))
				fmt.Fprintf(w, "API address:      %s\n", app.Config.API.Addr())
				fmt.Fprintf(w, "Simulation mode:  %v\n", app.Config.Verification.SimulationMode)
				fmt.Fprintf(w, "Real-time:        %v\n", ai.EnableRealTime)
				fmt.Fprintf(w, "Free models:      %v\n", ai.UseFreeModels)
				fmt.Fprintf(w, "PlantNet API key: %s\n", maskKey(ai.PlantNetAPIKey))
				fmt.Fprintf(w, "OpenAI API key:   %s\n", maskKey(ai.OpenAIAPIKey))
			})
		})
	},
}

// maskKey keeps the last four characters of a key.
func maskKey(k string) string {
	switch {
	case k == "":
		return "(not set)"
	case len(k) <= 4:
		return "****"
	}
	return "****" + k[len(k)-4:]
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change a setting",
	Long: `Change a setting. Advisory keys are stored with the app data:

  realtime          true|false  real-time analysis preference
  free-models       true|false  prefer free vendor tiers
  plantnet-key      string      PlantNet API key ("" clears)
  openai-key        string      OpenAI API key ("" clears)

A vendor is called whenever its key is set; without a key the built-in
analysis answers.

Daemon keys are written to config.toml:

  simulation-mode   true|false  accept any unseen code 1-100 once
  api-host          string      local API listen host
  api-port          int         local API listen port
  metrics           true|false  expose /metrics
  cleanup-interval  duration    expired code sweep interval (e.g. 1h)
  advisor-timeout   duration    vendor request timeout (e.g. 30s)`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if set, ok := daemonSettings[key]; ok {
			home, _ := cmd.Flags().GetString("home")
			if _, err := daemon.Update(home, func(c *daemon.Config) error { return set(c, value) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s updated.\n", key)
			return nil
		}
		p, err := parseConfigPatch(key, value)
		if err != nil {
			return err
		}
		return withApp(cmd, func(app *daemon.App, out io.Writer) error {
			if _, err := app.AIConfig.Update(p); err != nil {
				return err
			}
			fmt.Fprintf(out, "✅ %s updated.\n", key)
			return nil
		})
	},
}

// daemonSettings are the config set keys that live in config.toml.
var daemonSettings = map[string]func(c *daemon.Config, v string) error{
	"simulation-mode": func(c *daemon.Config, v string) error {
		return setBool(&c.Verification.SimulationMode, "simulation-mode", v)
	},
	"metrics": func(c *daemon.Config, v string) error {
		return setBool(&c.Telemetry.Metrics, "metrics", v)
	},
	"api-host": func(c *daemon.Config, v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("api-host must not be empty")
		}
		c.API.Host = v
		return nil
	},
	"api-port": func(c *daemon.Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 65535 {
			return fmt.Errorf("api-port expects a port number, got %q", v)
		}
		c.API.Port = n
		return nil
	},
	"cleanup-interval": func(c *daemon.Config, v string) error {
		return setDuration(&c.Verification.CleanupInterval, "cleanup-interval", v)
	},
	"advisor-timeout": func(c *daemon.Config, v string) error {
		return setDuration(&c.Advisory.Timeout, "advisor-timeout", v)
	},
}

func setBool(dst *bool, key, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s expects true or false, got %q", key, v)
	}
	*dst = b
	return nil
}

func setDuration(dst *string, key, v string) error {
	if d, err := time.ParseDuration(v); err != nil || d <= 0 {
		return fmt.Errorf("%s expects a positive duration such as 30s, got %q", key, v)
	}
	*dst = v
	return nil
}

func parseConfigPatch(key, value string) (advisory.ConfigPatch, error) {
	var p advisory.ConfigPatch
	switch key {
	case "realtime", "free-models":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return p, fmt.Errorf("%s expects true or false, got %q", key, value)
		}
		if key == "realtime" {
			p.EnableRealTime = &b
		} else {
			p.UseFreeModels = &b
		}
	case "plantnet-key":
		p.PlantNetAPIKey = &value
	case "openai-key":
		p.OpenAIAPIKey = &value
	default:
		return p, fmt.Errorf("unknown setting %q (see 'agroloop config set --help')", key)
	}
	return p, nil
}
