package serve

import (
	"context"
	cmdUtil "github.com/ValentinKolb/dDocs/cmd/util"
	"github.com/ValentinKolb/dDocs/lib/api"
	"github.com/ValentinKolb/dDocs/lib/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"syscall"
)

var (
	ServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the dDocs HTTP server",
		Long: `Start the dDocs HTTP server with the specified configuration. The configuration can be set via command line flags or environment variables.
The format of the environment variables is DDOCS_<flag> (e.g. DDOCS_GITHUB_REPO=bot-data). The token is also read from GITHUB_TOKEN.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmdUtil.BindCommandFlags(cmd)
		},
		RunE: run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	cmdUtil.SetupStoreFlags(ServeCmd)

	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen"))
}

// run initializes the store and serves it until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	store, err := cmdUtil.BuildStore()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Init(ctx); err != nil {
		return err
	}
	defer func() { _ = cmdUtil.Shutdown(store) }()

	levels, err := common.ParseLevels(viper.GetString("log-level"))
	if err != nil {
		return err
	}

	server := api.NewServer(store, api.ServerConfig{
		Endpoint: viper.GetString("endpoint"),
		LogLevel: common.LevelName(levels.Of("api")),
	})
	return server.ListenAndServe(ctx)
}
