package cmd

import (
	"os"

	"github.com/dszqbsm/stockdaily/cmd/crawl"
	"github.com/dszqbsm/stockdaily/cmd/sitegen"
	"github.com/dszqbsm/stockdaily/version"
	"github.com/spf13/cobra"
)

// 子命令：crawl 抓取并合并某个交易日的数据，site 根据已有索引重新生成静态站点，version 打印版本信息

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version.",
	Long:  "print version.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version.Printer(cmd.OutOrStdout())
	},
}

func Execute() {
	var rootCmd = &cobra.Command{
		Use:          "stockdaily",
		Short:        "daily snapshots of Chinese equities market data.",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(crawl.CrawlCmd, sitegen.SiteCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
