package offline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/homestead/homestead/internal/model"
)

// Phase names a step of a download.
type Phase string

// Download phases, in order.
const (
	PhaseRecipes Phase = "recipes"
	PhasePages   Phase = "pages"
	PhaseData    Phase = "data"
	PhaseImages  Phase = "images"
)

// imageWorkers bounds concurrent thumbnail downloads.
const imageWorkers = 4

// Progress is reported while a download runs.
type Progress struct {
	Phase     Phase  `json:"phase"`
	Message   string `json:"message"`
	Completed int    `json:"completed,omitempty"`
	Total     int    `json:"total,omitempty"`
}

// ProgressFunc receives progress updates. It may be called from several
// goroutines during the image phase, but never concurrently.
type ProgressFunc func(Progress)

// SyncResult is the outcome of a download.
type SyncResult struct {
	Success     bool   `json:"success"`
	RecipeCount int    `json:"recipe_count"`
	Error       string `json:"error,omitempty"`
}

// Precache lists the URLs a client should warm after a download.
type Precache struct {
	Pages  []string
	Data   []string
	Images []string
}

// Syncer downloads the catalog into a Store.
type Syncer struct {
	client   *Client
	store    *Store
	imageDir string
	logger   *slog.Logger
}

// NewSyncer creates a Syncer. When imageDir is set the thumbnails are
// downloaded into it during the image phase.
func NewSyncer(client *Client, store *Store, imageDir string, logger *slog.Logger) *Syncer {
	return &Syncer{
		client:   client,
		store:    store,
		imageDir: imageDir,
		logger:   logger,
	}
}

// Download fetches the offline dump, saves it and walks the precache phases.
// Failures are reported in the result, never as an error.
func (s *Syncer) Download(ctx context.Context, progress ProgressFunc) SyncResult {
	if progress == nil {
		progress = func(Progress) {}
	}

	progress(Progress{Phase: PhaseRecipes, Message: "Downloading recipes..."})
	dump, err := s.client.OfflineDump(ctx)
	if err != nil {
		s.logger.Error("offline_sync_failed", slog.Any("error", err))
		return SyncResult{Error: fmt.Sprintf("failed to fetch recipes: %v", err)}
	}
	if err := s.store.SaveAll(ctx, dump); err != nil {
		s.logger.Error("offline_sync_failed", slog.Any("error", err))
		return SyncResult{Error: fmt.Sprintf("failed to save recipes: %v", err)}
	}
	progress(Progress{Phase: PhaseRecipes, Message: fmt.Sprintf("Saved %d recipes", len(dump.Brief))})

	pc := BuildPrecache(dump)

	progress(Progress{Phase: PhasePages, Message: "Caching pages...", Total: len(pc.Pages)})
	progress(Progress{Phase: PhaseData, Message: "Caching navigation data...", Total: len(pc.Data)})

	total := len(pc.Images)
	progress(Progress{Phase: PhaseImages, Message: "Caching images...", Total: total})
	if s.imageDir != "" && total > 0 {
		s.fetchImages(ctx, pc.Images, func(done int) {
			progress(Progress{
				Phase:     PhaseImages,
				Message:   fmt.Sprintf("Caching images (%d/%d)...", done, total),
				Completed: done,
				Total:     total,
			})
		})
	}

	s.logger.Info("offline_sync_completed",
		slog.Int("recipes", len(dump.Brief)),
		slog.Int("images", total),
	)
	return SyncResult{Success: true, RecipeCount: len(dump.Brief)}
}

// fetchImages downloads thumbnails. Single failures are logged and skipped.
func (s *Syncer) fetchImages(ctx context.Context, paths []string, onDone func(done int)) {
	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imageWorkers)
	for _, p := range paths {
		g.Go(func() error {
			if err := s.fetchImage(gctx, p); err != nil {
				s.logger.Warn("offline_image_failed", slog.String("path", p), slog.Any("error", err))
			}
			mu.Lock()
			done++
			onDone(done)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Syncer) fetchImage(ctx context.Context, path string) error {
	rel, err := url.PathUnescape(path)
	if err != nil {
		return err
	}
	dst := filepath.Join(s.imageDir, filepath.Base(rel))

	body, err := s.client.Get(ctx, path)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.CreateTemp(s.imageDir, ".thumb-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), dst)
}

// BuildPrecache lists the pages, API data and thumbnails belonging to dump.
func BuildPrecache(dump *model.OfflineDump) Precache {
	langs := []model.Lang{model.LangDE, model.LangEN}

	var pc Precache
	for _, lang := range langs {
		base := "/" + string(lang)
		pc.Pages = append(pc.Pages, base, base+"/offline-shell")
		for _, sub := range []string{"category", "tag", "icon", "season", "favorites"} {
			pc.Pages = append(pc.Pages, base+"/"+sub)
		}
	}

	categories := map[string]bool{}
	tags := map[string]bool{}
	icons := map[string]bool{}
	for _, b := range dump.Brief {
		if b.Category != "" {
			categories[b.Category] = true
		}
		if b.Icon != "" {
			icons[b.Icon] = true
		}
		for _, t := range b.Tags {
			tags[t] = true
		}
		if len(b.Images) > 0 && b.Images[0].MediaPath != "" {
			pc.Images = append(pc.Images, "/static/rezepte/thumb/"+url.PathEscape(b.Images[0].MediaPath))
		}
	}

	for _, r := range dump.Full {
		pc.Data = append(pc.Data, "/api/"+string(model.LangDE)+"/items/"+url.PathEscape(r.ShortName))
		if en := r.Translations.EN; en != nil && en.ShortName != "" {
			pc.Data = append(pc.Data, "/api/"+string(model.LangEN)+"/items/"+url.PathEscape(en.ShortName))
		}
	}
	for _, lang := range langs {
		api := "/api/" + string(lang) + "/items/"
		for _, c := range sortedKeys(categories) {
			pc.Data = append(pc.Data, api+"category/"+url.PathEscape(c))
		}
		for _, t := range sortedKeys(tags) {
			pc.Data = append(pc.Data, api+"tag/"+url.PathEscape(t))
		}
		for _, i := range sortedKeys(icons) {
			pc.Data = append(pc.Data, api+"icon/"+url.PathEscape(i))
		}
		for month := 1; month <= 12; month++ {
			pc.Data = append(pc.Data, api+"in_season/"+strconv.Itoa(month))
		}
	}
	return pc
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
