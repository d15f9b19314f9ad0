package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/minhokang/streamwatch/internal/config"
	"github.com/minhokang/streamwatch/internal/countparse"
	"github.com/minhokang/streamwatch/internal/crawl"
	"github.com/minhokang/streamwatch/internal/database"
	"github.com/minhokang/streamwatch/internal/export"
	"github.com/minhokang/streamwatch/internal/match"
	"github.com/minhokang/streamwatch/internal/notify"
	"github.com/minhokang/streamwatch/internal/platform"
	"github.com/minhokang/streamwatch/internal/record"
	"github.com/minhokang/streamwatch/internal/scrape"
	"github.com/minhokang/streamwatch/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "streamwatch",
	Short:   "Daily song streaming metrics",
	Long:    "streamwatch collects daily view and listener counts for a song catalog across genie, melon, youtube and youtube music.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(songCmd)
	rootCmd.AddCommand(songsCmd)
	rootCmd.AddCommand(failuresCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("streamwatch", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/streamwatch/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to tune matching thresholds, crawl pacing, and platforms.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Today: %s\n\n", database.Today())
		fmt.Println("Catalog:")
		fmt.Printf("  Total songs: %d\n", stats.TotalSongs)
		fmt.Printf("  Active: %d\n", stats.ActiveSongs)
		fmt.Println("\nCollection:")
		fmt.Printf("  Samples today: %d\n", stats.SamplesToday)
		fmt.Printf("  Failing songs: %d\n", stats.FailingSongs)
		fmt.Printf("  Run reports: %d\n", stats.RunReports)
		return nil
	},
}

// --- crawl command ---

var (
	crawlDate string
	crawlSong string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Collect metrics for every active song across all platforms",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		orch := buildOrchestrator(db, "")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var summary *crawl.Summary
		if crawlSong != "" {
			summary, err = orch.RunOne(ctx, crawlSong, crawlDate)
			if err != nil {
				return err
			}
		} else {
			summary = orch.Run(ctx, crawlDate)
		}

		printSummary(summary)
		return nil
	},
}

func init() {
	crawlCmd.Flags().StringVar(&crawlDate, "date", "", "Sample date (YYYY-MM-DD, default today)")
	crawlCmd.Flags().StringVar(&crawlSong, "song", "", "Collect a single song by ID")
}

func printSummary(s *crawl.Summary) {
	fmt.Printf("\nRun %s: %s (%d songs, %s)\n", s.RunDate, s.State, s.SongCount, s.Duration.Round(time.Millisecond))

	var platforms []platform.Platform
	for p := range s.Platforms {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	for _, p := range platforms {
		st := s.Platforms[p]
		fmt.Printf("  %-14s %d/%d ok\n", p.DisplayName(), st.Succeeded, st.Attempted)
	}

	if len(s.Failures) > 0 {
		fmt.Printf("\n%d song(s) with failures:\n", len(s.Failures))
		var labels []string
		for label := range s.Failures {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			fmt.Printf("  %s\n", label)
			for _, reason := range s.Failures[label] {
				fmt.Printf("    - %s\n", reason)
			}
		}
	}
}

// buildOrchestrator wires fetchers, matching and recording from config.
// A non-empty only restricts the run to that single platform.
func buildOrchestrator(db *database.DB, only platform.Platform) *crawl.Orchestrator {
	client := scrape.NewClient(scrape.ClientOptions{
		Timeout:  time.Duration(cfg.Crawl.TimeoutSeconds) * time.Second,
		Retries:  cfg.Crawl.Retries,
		DelayMin: time.Duration(cfg.Crawl.DelayMinMS) * time.Millisecond,
		DelayMax: time.Duration(cfg.Crawl.DelayMaxMS) * time.Millisecond,
	})

	fetchers := make(map[platform.Platform]platform.Fetcher)
	if cfg.PlatformEnabled("genie") {
		fetchers[platform.Genie] = scrape.NewGenie(client, cfg.BaseURL("genie"))
	}
	if cfg.PlatformEnabled("melon") {
		fetchers[platform.Melon] = scrape.NewMelon(client, cfg.BaseURL("melon"), "")
	}
	yt := scrape.NewYouTube(client, cfg.BaseURL("youtube"))
	if cfg.PlatformEnabled("youtube") {
		fetchers[platform.YouTube] = yt
	}
	if cfg.PlatformEnabled("youtube_music") {
		fetchers[platform.YouTubeMusic] = scrape.NewYouTubeMusic(yt)
	}
	if only != "" {
		for p := range fetchers {
			if p != only {
				delete(fetchers, p)
			}
		}
	}

	engine := match.NewEngine(
		cfg.Matching.KeywordThreshold,
		cfg.Matching.RatioThreshold,
		cfg.Matching.AliasPairs(),
	)
	strategies := platform.NewStrategies(engine, db, fetchers, platform.Options{
		CandidateLimit: cfg.Crawl.CandidateLimit,
		DiscoveryLimit: cfg.Crawl.DiscoveryLimit,
	})

	recorder := record.New(db, countparse.New(cfg.Counts.Units))
	reporter := notify.NewSlackFromEnv(cfg.Notify.SlackWebhookEnv)
	return crawl.New(db, recorder, strategies, cfg.Crawl.Workers, reporter)
}

// --- song command ---

var (
	songDate     string
	songPlatform string
)

var songCmd = &cobra.Command{
	Use:   "song [id]",
	Short: "Collect metrics for a single song",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var only platform.Platform
		if songPlatform != "" {
			p, err := platform.Parse(songPlatform)
			if err != nil {
				return err
			}
			only = p
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		summary, err := buildOrchestrator(db, only).RunOne(ctx, args[0], songDate)
		if err != nil {
			return err
		}
		printSummary(summary)
		return nil
	},
}

func init() {
	songCmd.Flags().StringVar(&songDate, "date", "", "Sample date (YYYY-MM-DD, default today)")
	songCmd.Flags().StringVar(&songPlatform, "platform", "", "Restrict to one platform (genie, melon, youtube, youtube_music)")
}

// --- songs command ---

var songsCmd = &cobra.Command{
	Use:   "songs",
	Short: "Manage the song catalog",
}

var (
	addArtistKo string
	addArtistEn string
	addTitleKo  string
	addTitleEn  string
	addYouTube  string
	addMelonID  string
)

var songsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a song to the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addArtistKo == "" || addTitleKo == "" {
			return fmt.Errorf("--artist-ko and --title-ko are required")
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		song := database.Song{
			ArtistKo: addArtistKo,
			ArtistEn: addArtistEn,
			TitleKo:  addTitleKo,
			TitleEn:  addTitleEn,
			IsActive: true,
		}
		if addYouTube != "" {
			song.YouTubeURL = &addYouTube
		}
		if addMelonID != "" {
			song.MelonSongID = &addMelonID
		}

		id, err := db.InsertSong(song)
		if err != nil {
			return err
		}
		fmt.Printf("Added song %s: %s\n", id, song.Label())
		return nil
	},
}

var songsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the song catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		songs, err := db.ListSongs()
		if err != nil {
			return err
		}
		if len(songs) == 0 {
			fmt.Println("No songs. Add one with: streamwatch songs add")
			return nil
		}

		for _, s := range songs {
			active := " "
			if s.IsActive {
				active = "*"
			}
			fmt.Printf("  %s %s  %s", active, s.ID, s.Label())
			if s.TitleEn != "" || s.ArtistEn != "" {
				fmt.Printf("  (%s - %s)", s.ArtistEn, s.TitleEn)
			}
			fmt.Println()
		}
		return nil
	},
}

var songsImportCmd = &cobra.Command{
	Use:   "import [file.csv]",
	Short: "Import songs from a CSV file",
	Long: `Import songs from a CSV file with columns:
artist_ko,title_ko,artist_en,title_en,youtube_url,melon_song_id
Only the first two are required. A header row is skipped automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		added, skipped, err := importSongs(db, f)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d song(s), skipped %d row(s)\n", added, skipped)
		return nil
	},
}

func importSongs(db *database.DB, r io.Reader) (added, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return added, skipped, err
		}
		if len(row) > 0 {
			// Strip a BOM left by spreadsheet exports.
			row[0] = strings.TrimPrefix(row[0], "\uFEFF")
		}
		if len(row) < 2 || row[0] == "" || row[1] == "" || row[0] == "artist_ko" {
			skipped++
			continue
		}

		song := database.Song{ArtistKo: row[0], TitleKo: row[1], IsActive: true}
		if len(row) > 2 {
			song.ArtistEn = row[2]
		}
		if len(row) > 3 {
			song.TitleEn = row[3]
		}
		if len(row) > 4 && row[4] != "" {
			url := row[4]
			song.YouTubeURL = &url
		}
		if len(row) > 5 && row[5] != "" {
			id := row[5]
			song.MelonSongID = &id
		}

		if _, err := db.InsertSong(song); err != nil {
			log.Printf("skipping %s - %s: %v", song.ArtistKo, song.TitleKo, err)
			skipped++
			continue
		}
		added++
	}
	return added, skipped, nil
}

func init() {
	songsAddCmd.Flags().StringVar(&addArtistKo, "artist-ko", "", "Artist name (Korean)")
	songsAddCmd.Flags().StringVar(&addArtistEn, "artist-en", "", "Artist name (romanized)")
	songsAddCmd.Flags().StringVar(&addTitleKo, "title-ko", "", "Song title (Korean)")
	songsAddCmd.Flags().StringVar(&addTitleEn, "title-en", "", "Song title (romanized)")
	songsAddCmd.Flags().StringVar(&addYouTube, "youtube-url", "", "Official video URL")
	songsAddCmd.Flags().StringVar(&addMelonID, "melon-id", "", "Melon song ID")

	songsCmd.AddCommand(songsAddCmd)
	songsCmd.AddCommand(songsListCmd)
	songsCmd.AddCommand(songsImportCmd)
}

// --- failures command ---

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List songs whose last collection failed",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		failures, err := db.ListFailures()
		if err != nil {
			return err
		}
		if len(failures) == 0 {
			fmt.Println("No failures recorded.")
			return nil
		}

		for _, f := range failures {
			label := f.SongID
			if song, err := db.GetSong(f.SongID); err == nil && song != nil {
				label = song.Label()
			}
			fmt.Printf("  %s: %s\n", label, strings.Join(f.FailedPlatforms, ", "))
		}
		return nil
	},
}

// --- export command ---

var (
	exportDate string
	exportSong string
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export samples as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var w io.Writer = os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		if exportSong != "" {
			err = export.WriteSongHistory(w, db, exportSong)
		} else {
			date := exportDate
			if date == "" {
				date = database.Today()
			}
			err = export.WriteDay(w, db, date)
		}
		if err != nil {
			return err
		}
		if exportOut != "" {
			fmt.Printf("Wrote %s\n", exportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDate, "date", "", "Export one day's samples (default today)")
	exportCmd.Flags().StringVar(&exportSong, "song", "", "Export one song's full history by ID")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default stdout)")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "streamwatch.db")
	return database.Open(dbPath)
}
