// Package main provides the entry point for the trace-voice CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/mindjig/trace-tools/internal/lockfile"
	"github.com/mindjig/trace-tools/internal/speech"
	"github.com/mindjig/trace-tools/internal/voice"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	voiceFlag    string
	agentFlag    string
	listVoices   bool
	language     string
	listPool     bool
	showSession  bool
	resetSession bool

	rootCmd = &cobra.Command{
		Use:   "trace-voice [TEXT...]",
		Short: "Speak notifications with Edge neural voices",
		Long: paragraph(
			fmt.Sprintf("\nSpeak notification messages out loud, %s.\n\nEach agent picks a voice on first use and keeps it for the session. Concurrent agents never talk over each other.", keyword("one agent, one voice")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		RunE:             execute,
	}
)

// environ is ambient environment configuration.
type environ struct {
	AgentID string `env:"TRACE_AGENT_ID" envDefault:"default"`
	LogFile string `env:"TRACE_VOICE_LOGFILE"`
}

func execute(cmd *cobra.Command, args []string) error {
	envCfg, err := env.ParseAs[environ]()
	if err != nil {
		return fmt.Errorf("error parsing environment: %v", err)
	}

	store := voice.NewFileStore(viper.GetString("session_file"))

	switch {
	case resetSession:
		if err := store.Reset(); err != nil {
			return err
		}
		fmt.Println("Session reset. Agents will pick new voices on next use.")
		return nil

	case showSession:
		printSession(store)
		return nil

	case listPool:
		printPool()
		return nil

	case listVoices:
		return printRemoteVoices(cmd, language)
	}

	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		_ = cmd.Help()
		return fmt.Errorf("missing text to speak")
	}

	// Flag takes precedence over config file value, then env, then "default".
	agentID := viper.GetString("agent")
	if agentID == "" {
		agentID = envCfg.AgentID
	}

	resolver := voice.NewResolver(store, policy())
	voiceID := resolver.Resolve(agentID, viper.GetString("voice"))
	log.Debug("Resolved voice", "agent", agentID, "voice", voiceID)

	pipeline := speech.NewPipeline(
		newEngine(),
		&speech.FFPlay{
			Command: viper.GetString("playback.command"),
			Args:    viper.GetStringSlice("playback.args"),
		},
		lockfile.New(viper.GetString("lock_file")),
	)
	return pipeline.Speak(cmd.Context(), text, voiceID)
}

func policy() voice.Policy {
	if viper.GetString("policy") == string(voice.PolicyFixed) {
		return voice.PolicyFixed
	}
	return voice.PolicyRandom
}

func newEngine() *speech.EdgeEngine {
	return speech.NewEdgeEngine(speech.EdgeConfig{
		OutputFormat:      viper.GetString("tts.output_format"),
		RequestsPerMinute: viper.GetInt("tts.requests_per_minute"),
	})
}

func printSession(store voice.Store) {
	session := store.Load()
	if len(session.Agents) == 0 {
		fmt.Println("No agents have spoken yet this session.")
		return
	}

	fmt.Printf("%-20s %-30s\n", "Agent", "Voice")
	fmt.Println(strings.Repeat("-", 52))
	for agent, v := range session.Agents {
		fmt.Printf("%-20s %-30s\n", agent, v)
		if desc := voice.Describe(v); desc != "" {
			fmt.Printf("%20s (%s)\n", "", desc)
		}
	}
}

func printPool() {
	fmt.Printf("%-30s %-30s\n", "Voice", "Description")
	fmt.Println(strings.Repeat("-", 62))
	for _, v := range voice.Pool {
		fmt.Printf("%-30s %-30s\n", v.ID, v.Description)
	}
}

func printRemoteVoices(cmd *cobra.Command, localePrefix string) error {
	voices, err := newEngine().ListVoices(cmd.Context(), localePrefix)
	if err != nil {
		return err
	}

	fmt.Printf("%-30s %-8s %-10s\n", "Voice Name", "Gender", "Locale")
	fmt.Println(strings.Repeat("-", 50))
	for _, v := range voices {
		fmt.Printf("%-30s %-8s %-10s\n", v.ShortName, v.Gender, v.Locale)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

// setupLog sends logs to TRACE_VOICE_LOGFILE when set, otherwise to stderr
// at warn level so spoken notifications stay quiet.
func setupLog() (func() error, error) {
	envCfg, err := env.ParseAs[environ]()
	if err != nil {
		return nil, fmt.Errorf("error parsing environment: %v", err)
	}
	if envCfg.LogFile == "" {
		log.SetLevel(log.WarnLevel)
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(envCfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	return f.Close, nil
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&voiceFlag, "voice", "v", "", "voice to use (overrides agent voice)")
	rootCmd.Flags().StringVarP(&agentFlag, "agent", "a", "", "agent ID (default from TRACE_AGENT_ID)")
	rootCmd.Flags().BoolVarP(&listVoices, "list-voices", "l", false, "list all available neural voices")
	rootCmd.Flags().StringVar(&language, "language", "", "filter --list-voices by language code (e.g. 'en', 'fr')")
	rootCmd.Flags().BoolVar(&listPool, "list-pool", false, "list the voice pool used for random selection")
	rootCmd.Flags().BoolVar(&showSession, "show-session", false, "show current session's agent-to-voice mappings")
	rootCmd.Flags().BoolVar(&resetSession, "reset-session", false, "reset session (agents will pick new voices)")

	// Config bindings
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("agent", rootCmd.Flags().Lookup("agent"))

	viper.SetDefault("policy", string(voice.PolicyRandom))
	viper.SetDefault("session_file", "")
	viper.SetDefault("lock_file", "")
	viper.SetDefault("playback.command", "ffplay")
	viper.SetDefault("playback.args", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"})
	viper.SetDefault("tts.output_format", speech.DefaultOutputFormat)
	viper.SetDefault("tts.requests_per_minute", 30)

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "trace-voice")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "trace-voice")}, dirs...)
	}

	if c := os.Getenv("TRACE_VOICE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("trace-voice")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("trace_voice")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "trace-voice.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}

var (
	keywordStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"})
	paragraphStyle = lipgloss.NewStyle().Margin(0, 0, 0, 2)
)

func keyword(s string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return s
	}
	return keywordStyle.Render(s)
}

func paragraph(s string) string {
	return paragraphStyle.Render(s)
}
