package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dszqbsm/stockdaily/cmd/boot"
	"github.com/dszqbsm/stockdaily/engine"
	"github.com/dszqbsm/stockdaily/index"
	"github.com/dszqbsm/stockdaily/market"
	"github.com/dszqbsm/stockdaily/site"
	"github.com/dszqbsm/stockdaily/sqlstorage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var CrawlCmd = &cobra.Command{
	Use:   "crawl <collection...|all>",
	Short: "crawl collections for one trading day.",
	Long: "crawl collections for one trading day, merge them into the per-collection index " +
		"and print a one-line report per source.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return Run(ctx, cmd.OutOrStdout(), args)
	},
}

var (
	configPath string
	date       string
	outDir     string
	render     bool
)

// ErrStoreFailed 表示至少一个集合的索引没有写成功，进程以非零码退出
var ErrStoreFailed = errors.New("store failed")

func init() {
	CrawlCmd.Flags().StringVar(
		&configPath, "config", "config.toml", "set config file")
	CrawlCmd.Flags().StringVar(
		&date, "date", "", "trading day YYYY-MM-DD, default latest trading day")
	CrawlCmd.Flags().StringVar(
		&outDir, "out", "", "override outDir in config")
	CrawlCmd.Flags().BoolVar(
		&render, "render", true, "regenerate site after crawling")
}

/*
输入上下文、报告输出目标和集合名称，输出错误

来源失败只体现在报告中；任何集合存储失败时返回ErrStoreFailed
*/
func Run(ctx context.Context, w io.Writer, names []string) error {
	env, err := boot.Setup(configPath, outDir)
	if err != nil {
		return err
	}
	defer env.Close()
	logger := env.Logger

	day := date
	if day == "" {
		day = market.LatestTradingDate(time.Now())
	}
	if !index.ValidDate(day) {
		return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", day)
	}

	f, err := env.Fetcher()
	if err != nil {
		return err
	}
	store, err := env.Tasks(f)
	if err != nil {
		return err
	}
	tasks, err := store.Select(names...)
	if err != nil {
		return err
	}

	opts := []engine.Option{
		engine.WithOutDir(env.Cfg.OutDir),
		engine.WithLogger(logger.Named("engine")),
	}
	if sc := env.Cfg.Storage; sc.SQLURL != "" {
		s, err := sqlstorage.New(
			sqlstorage.WithSQLURL(sc.SQLURL),
			sqlstorage.WithLogger(logger.Named("sqlDB")),
			sqlstorage.WithBatchCount(sc.BatchCount),
		)
		if err != nil {
			logger.Error("create sqlstorage failed, mirror disabled", zap.Error(err))
		} else {
			opts = append(opts, engine.WithMirror(s))
		}
	}

	logger.Info("crawl start", zap.String("date", day), zap.Strings("collections", names))
	report, err := engine.NewCrawler(opts...).Run(ctx, day, tasks...)
	if err != nil {
		return err
	}
	if err := report.Write(w); err != nil {
		return err
	}

	if render {
		r := site.New(site.WithOutDir(env.Cfg.OutDir), site.WithLogger(logger.Named("site")))
		if _, err := r.Render(store.List()...); err != nil {
			logger.Warn("site render incomplete", zap.Error(err))
		}
	}

	if report.StoreFailed() {
		logger.Error("crawl finished with store errors", zap.Error(report.Err()))
		return ErrStoreFailed
	}
	return nil
}
