package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/offline"
)

var (
	offlineBaseURL  string
	offlineDBPath   string
	offlineImageDir string
	offlineLang     string

	listCategory string
	listSeason   int
	listTag      string
	listIcon     string

	showMultiplier string
	showYeast      []int
)

var offlineCmd = &cobra.Command{
	Use:   "offline",
	Short: "Keep a local copy of the recipe catalog",
	Long: `Download the recipe catalog into a local SQLite file and read it
back when the server is unreachable.

Reading commands try the server first and fall back to the local copy.`,
}

var offlineSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download every recipe into the local copy",
	RunE:  runOfflineSync,
}

var offlineStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show when the local copy was last downloaded",
	RunE:  runOfflineStatus,
}

var offlineClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every recipe from the local copy",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := offline.Open(offlineDBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Clear(cmd.Context())
	},
}

var offlineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recipes, optionally filtered",
	Long: `Without filters the start page is shown: every recipe and the ones in
season this month, in today's order. Filters read the local copy only.`,
	RunE: runOfflineList,
}

var offlineShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print one recipe as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runOfflineShow,
}

func defaultOfflineDB() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "homestead", "recipes.db")
}

func parseLang(raw string) (model.Lang, error) {
	lang, ok := model.ParseLang(raw)
	if !ok {
		return "", fmt.Errorf("unknown language %q: use %s or %s", raw, model.LangDE, model.LangEN)
	}
	return lang, nil
}

func runOfflineSync(cmd *cobra.Command, args []string) error {
	store, err := offline.Open(offlineDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if offlineImageDir != "" {
		if err := os.MkdirAll(offlineImageDir, 0o755); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	syncer := offline.NewSyncer(offline.NewClient(offlineBaseURL, nil), store, offlineImageDir, logger)
	res := syncer.Download(cmd.Context(), func(p offline.Progress) {
		logger.Debug("offline_sync_progress", "phase", p.Phase, "message", p.Message)
	})
	if !res.Success {
		return fmt.Errorf("sync failed: %s", res.Error)
	}

	fmt.Fprintf(out, "saved %d recipes to %s\n", res.RecipeCount, store.Path())
	return nil
}

func runOfflineStatus(cmd *cobra.Command, args []string) error {
	store, err := offline.Open(offlineDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	info, err := store.LastSync(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if info == nil {
		fmt.Fprintln(out, "never synced")
		return nil
	}
	fmt.Fprintf(out, "%d recipes, last synced %s\n", info.RecipeCount, info.LastSync.Local().Format("2006-01-02 15:04"))
	return nil
}

func runOfflineList(cmd *cobra.Command, args []string) error {
	lang, err := parseLang(offlineLang)
	if err != nil {
		return err
	}
	store, err := offline.Open(offlineDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var briefs []*model.BriefRecipe
	switch {
	case listCategory != "":
		briefs, err = store.BriefByCategory(ctx, lang, listCategory)
	case listSeason != 0:
		if listSeason < 1 || listSeason > 12 {
			return fmt.Errorf("--season must be between 1 and 12")
		}
		briefs, err = store.BriefBySeason(ctx, lang, listSeason)
	case listTag != "":
		briefs, err = store.BriefByTag(ctx, lang, listTag)
	case listIcon != "":
		briefs, err = store.BriefByIcon(ctx, lang, listIcon)
	default:
		client := offline.NewClient(offlineBaseURL, nil)
		page := offline.NewLoader(store, client, logger).List(ctx, client, lang)
		if page.IsOffline {
			fmt.Fprintln(out, "(offline)")
		}
		fmt.Fprintln(out, "In season:")
		printBriefs(out, page.Season)
		fmt.Fprintln(out, "\nAll recipes:")
		printBriefs(out, page.AllBrief)
		return nil
	}
	if err != nil {
		return err
	}
	printBriefs(out, briefs)
	return nil
}

func printBriefs(w io.Writer, briefs []*model.BriefRecipe) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, b := range briefs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Icon, b.ShortName, b.Name, b.Category)
	}
	_ = tw.Flush()
}

func runOfflineShow(cmd *cobra.Command, args []string) error {
	lang, err := parseLang(offlineLang)
	if err != nil {
		return err
	}
	store, err := offline.Open(offlineDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	query := url.Values{}
	if showMultiplier != "" {
		query.Set("multiplier", showMultiplier)
	}
	for _, n := range showYeast {
		query.Set(fmt.Sprintf("y%d", n), "1")
	}

	ctx := cmd.Context()
	client := offline.NewClient(offlineBaseURL, nil)
	page := offline.NewLoader(store, client, logger).Recipe(ctx, client, lang, strings.TrimSpace(args[0]), query)
	if page.Error != "" {
		return fmt.Errorf("%s", page.Error)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(page)
}

func init() {
	offlineCmd.PersistentFlags().StringVar(&offlineBaseURL, "base-url", "http://localhost:8080", "homestead server origin")
	offlineCmd.PersistentFlags().StringVar(&offlineDBPath, "db", defaultOfflineDB(), "local SQLite file")
	offlineCmd.PersistentFlags().StringVar(&offlineLang, "lang", string(model.LangDE), "recipe language route (rezepte or recipes)")

	offlineSyncCmd.Flags().StringVar(&offlineImageDir, "images", "", "directory for downloaded thumbnails")

	offlineListCmd.Flags().StringVar(&listCategory, "category", "", "only this category")
	offlineListCmd.Flags().IntVar(&listSeason, "season", 0, "only recipes in season in this month (1-12)")
	offlineListCmd.Flags().StringVar(&listTag, "tag", "", "only recipes with this tag")
	offlineListCmd.Flags().StringVar(&listIcon, "icon", "", "only recipes with this icon")

	offlineShowCmd.Flags().StringVar(&showMultiplier, "multiplier", "", "scale the ingredient amounts")
	offlineShowCmd.Flags().IntSliceVar(&showYeast, "swap-yeast", nil, "swap fresh and dry yeast of these yeast ingredients (0-based)")

	offlineCmd.AddCommand(offlineSyncCmd, offlineStatusCmd, offlineClearCmd, offlineListCmd, offlineShowCmd)
	rootCmd.AddCommand(offlineCmd)
}
