package util

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dDocs/lib/common"
	"github.com/ValentinKolb/dDocs/lib/docstore"
	"github.com/ValentinKolb/dDocs/lib/remote"
	"github.com/ValentinKolb/dDocs/lib/remote/ghstore"
	"github.com/ValentinKolb/dDocs/lib/remote/mstore"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
	"time"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}
	return strings.Join(wrappedLines, "\n")
}

// SetupStoreFlags adds the remote and store flags to a command
func SetupStoreFlags(cmd *cobra.Command) {
	def := docstore.DefaultConfig()
	flags := cmd.PersistentFlags()

	key := "remote"
	flags.String(key, "github", WrapString("The remote holding the documents (github, memory). The memory remote is lost on exit and meant for testing"))

	key = "github-token"
	flags.String(key, "", WrapString("The GitHub API token (also read from GITHUB_TOKEN)"))

	key = "github-owner"
	flags.String(key, "", WrapString("Owner of the repository holding the documents"))

	key = "github-repo"
	flags.String(key, "", WrapString("Name of the repository holding the documents"))

	key = "github-branch"
	flags.String(key, "", WrapString("Branch to commit to (default branch if empty)"))

	key = "github-api"
	flags.String(key, common.DefaultAPIBase, WrapString("Base URL of the GitHub REST API"))

	key = "timeout"
	flags.Int(key, 10, WrapString("Timeout in seconds of a single remote call"))

	key = "data-dir"
	flags.String(key, docstore.DefaultDataDir, WrapString("Directory for the local mirror and the metadata file"))

	key = "config-file"
	flags.String(key, docstore.DefaultConfigFile, WrapString("Path of the store configuration file. Once created its settings take precedence over the flags below"))

	key = "cache-size"
	flags.Int(key, def.MaxCacheSize, WrapString("Maximum number of cached documents"))

	key = "max-backups"
	flags.Int(key, def.MaxBackups, WrapString("Number of backups kept per document"))

	key = "auto-backup"
	flags.Bool(key, def.AutoBackup, WrapString("Whether to back up the previous version before every write"))

	key = "compression"
	flags.Bool(key, def.Compression, WrapString("Whether to upload compact instead of indented JSON"))

	key = "serialize-writes"
	flags.Bool(key, def.SerializeWrites, WrapString("Whether writes to the same document are serialized in process"))

	key = "resync-interval"
	flags.Duration(key, 0, WrapString("Interval of the periodic resync and cleanup (0 disables it)"))

	key = "log-level"
	flags.String(key, "info", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error). Single loggers can be overridden, e.g. 'warn,remote=debug'"))
}

// InitConfig loads .env files and initializes viper with the DDOCS env prefix
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("ddocs")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	_ = viper.BindEnv("github-token", "DDOCS_GITHUB_TOKEN", "GITHUB_TOKEN")
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetClientConfig reads the remote configuration from viper
func GetClientConfig() common.ClientConfig {
	return common.ClientConfig{
		Token:         viper.GetString("github-token"),
		Owner:         viper.GetString("github-owner"),
		Repo:          viper.GetString("github-repo"),
		Branch:        viper.GetString("github-branch"),
		APIBase:       viper.GetString("github-api"),
		TimeoutSecond: viper.GetInt("timeout"),
	}
}

// GetStoreOptions reads the store options from viper.
// The config values are only used if the config file does not exist yet.
func GetStoreOptions() docstore.Options {
	def := docstore.DefaultConfig()
	def.MaxCacheSize = viper.GetInt("cache-size")
	def.MaxBackups = viper.GetInt("max-backups")
	def.AutoBackup = viper.GetBool("auto-backup")
	def.Compression = viper.GetBool("compression")
	def.SerializeWrites = viper.GetBool("serialize-writes")
	def.GitHubSync = viper.GetString("remote") == "github"

	return docstore.Options{
		ConfigFile:     viper.GetString("config-file"),
		DataDir:        viper.GetString("data-dir"),
		Defaults:       &def,
		ResyncInterval: viper.GetDuration("resync-interval"),
	}
}

// GetRemote creates the configured remote store
func GetRemote() (remote.IRemoteStore, error) {
	switch viper.GetString("remote") {
	case "github":
		gh, err := ghstore.NewGitHubStore(GetClientConfig())
		if err != nil {
			return nil, err
		}
		return gh, nil
	case "memory":
		return mstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("invalid remote %s", viper.GetString("remote"))
	}
}

// BuildStore initializes the loggers and creates the document store from the bound flags.
// The store is not initialized yet.
func BuildStore() (*docstore.Store, error) {
	if _, err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return nil, err
	}

	r, err := GetRemote()
	if err != nil {
		return nil, err
	}
	return docstore.New(r, GetStoreOptions()), nil
}

// Shutdown shuts the store down with a bounded wait for the background tasks
func Shutdown(s *docstore.Store) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
