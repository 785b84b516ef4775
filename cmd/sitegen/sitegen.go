package sitegen

import (
	"github.com/dszqbsm/stockdaily/cmd/boot"
	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/site"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var SiteCmd = &cobra.Command{
	Use:   "site",
	Short: "regenerate the static site from the stored indexes.",
	Long:  "regenerate the static site from the stored indexes.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run()
	},
}

var (
	configPath string
	outDir     string
	title      string
)

func init() {
	SiteCmd.Flags().StringVar(
		&configPath, "config", "config.toml", "set config file")
	SiteCmd.Flags().StringVar(
		&outDir, "out", "", "override outDir in config")
	SiteCmd.Flags().StringVar(
		&title, "title", "股市每日数据", "set site title")
}

// Run 只读取索引，不发起任何网络请求
func Run() error {
	env, err := boot.Setup(configPath, outDir)
	if err != nil {
		return err
	}
	defer env.Close()

	store, err := env.Tasks(collect.NewHTTPFetch())
	if err != nil {
		return err
	}
	r := site.New(
		site.WithOutDir(env.Cfg.OutDir),
		site.WithTitle(title),
		site.WithLogger(env.Logger.Named("site")),
	)
	collections, err := r.Render(store.List()...)
	env.Logger.Info("site done", zap.Int("collections", len(collections)))
	return err
}
