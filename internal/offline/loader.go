package offline

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/recipe"
	"github.com/homestead/homestead/internal/shuffle"
)

// MsgNotAvailable is the page error when neither network nor store has the recipe.
const MsgNotAvailable = "Recipe not available offline"

// LocalSource is the subset of Store the Loader reads.
type LocalSource interface {
	AllBrief(ctx context.Context, lang model.Lang) ([]*model.BriefRecipe, error)
	BriefBySeason(ctx context.Context, lang model.Lang, month int) ([]*model.BriefRecipe, error)
	FullRecipe(ctx context.Context, name string) (*model.Recipe, error)
	Available(ctx context.Context) bool
}

// Connectivity reports whether the server is currently unreachable.
type Connectivity interface {
	Offline() bool
}

// ListData is the data of the recipe start page.
type ListData struct {
	AllBrief  []*model.BriefRecipe `json:"all_brief"`
	Season    []*model.BriefRecipe `json:"season"`
	IsOffline bool                 `json:"is_offline"`
}

// RecipeData is the data of a single recipe page.
type RecipeData struct {
	Item                *model.Recipe `json:"item,omitempty"`
	Multiplier          float64       `json:"multiplier"`
	StrippedName        string        `json:"stripped_name,omitempty"`
	StrippedDescription string        `json:"stripped_description,omitempty"`
	IsOffline           bool          `json:"is_offline"`
	Error               string        `json:"error,omitempty"`
}

// ServerRecipe is what the server answered for a recipe page. Offline is set
// when an intermediary flagged the answer as coming from a cache.
type ServerRecipe struct {
	Item    *model.Recipe
	Offline bool
}

// Loader picks between server data and the local store for each page.
type Loader struct {
	local  LocalSource
	conn   Connectivity
	logger *slog.Logger
	now    func() time.Time
}

// NewLoader creates a Loader. A nil local disables the offline fallback and a
// nil conn is treated as always online.
func NewLoader(local LocalSource, conn Connectivity, logger *slog.Logger) *Loader {
	return &Loader{
		local:  local,
		conn:   conn,
		logger: logger,
		now:    time.Now,
	}
}

func (l *Loader) isOffline() bool {
	return l.conn != nil && l.conn.Offline()
}

// shouldUseLocal is the shared condition of every page: the store must be
// usable and something must point away from the server data.
func (l *Loader) shouldUseLocal(serverFlagged, serverEmpty bool) bool {
	return (l.isOffline() || serverFlagged || serverEmpty) && l.local != nil
}

// ListPage returns the start page data. server may be nil when the request
// was not made or failed.
func (l *Loader) ListPage(ctx context.Context, lang model.Lang, server *ListData) *ListData {
	flagged := server != nil && server.IsOffline
	empty := server == nil || len(server.AllBrief) == 0

	if l.shouldUseLocal(flagged, empty) && l.local.Available(ctx) {
		data, err := l.localList(ctx, lang)
		if err == nil {
			return data
		}
		l.logger.Error("offline_list_failed", slog.String("lang", string(lang)), slog.Any("error", err))
	}

	out := &ListData{}
	if server != nil {
		out.AllBrief = server.AllBrief
		out.Season = server.Season
	}
	return out
}

func (l *Loader) localList(ctx context.Context, lang model.Lang) (*ListData, error) {
	now := l.now()
	month := int(now.Month())

	var all, season []*model.BriefRecipe
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = l.local.AllBrief(gctx, lang)
		return err
	})
	g.Go(func() error {
		var err error
		season, err = l.local.BriefBySeason(gctx, lang, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ListData{
		AllBrief:  shuffle.Daily(all, now),
		Season:    shuffle.Daily(season, now),
		IsOffline: true,
	}, nil
}

// RecipePage returns a recipe page. query carries the multiplier and the
// y0, y1, ... yeast toggles.
func (l *Loader) RecipePage(ctx context.Context, lang model.Lang, name string, server ServerRecipe, query url.Values) *RecipeData {
	var (
		item      *model.Recipe
		isOffline bool
	)

	if l.shouldUseLocal(server.Offline, server.Item == nil) && l.local.Available(ctx) {
		local, err := l.local.FullRecipe(ctx, name)
		switch {
		case err == nil:
			item = local
			if lang.IsEnglish() {
				item = recipe.Overlay(local)
			}
			isOffline = true
		case errors.Is(err, ErrNotFound):
		default:
			l.logger.Error("offline_recipe_failed", slog.String("name", name), slog.Any("error", err))
		}
	}

	if item == nil && server.Item != nil {
		cp := *server.Item
		item = &cp
	}
	if item == nil {
		return &RecipeData{IsOffline: true, Error: MsgNotAvailable, Multiplier: 1}
	}

	recipe.SwapYeast(item, recipe.YeastToggles(query), lang.IsEnglish())
	return &RecipeData{
		Item:                item,
		Multiplier:          recipe.Multiplier(query),
		StrippedName:        recipe.StripHTML(item.Name),
		StrippedDescription: recipe.StripHTML(item.Description),
		IsOffline:           isOffline,
	}
}

// List loads the start page network-first through client.
func (l *Loader) List(ctx context.Context, client *Client, lang model.Lang) *ListData {
	server := &ListData{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		server.AllBrief, err = client.AllBrief(gctx, lang)
		return err
	})
	g.Go(func() error {
		var err error
		server.Season, err = client.InSeason(gctx, lang, int(l.now().Month()))
		return err
	})
	if err := g.Wait(); err != nil {
		l.logger.Warn("server_list_failed", slog.String("lang", string(lang)), slog.Any("error", err))
		server = nil
	}
	return l.ListPage(ctx, lang, server)
}

// Recipe loads a recipe page network-first through client.
func (l *Loader) Recipe(ctx context.Context, client *Client, lang model.Lang, name string, query url.Values) *RecipeData {
	var server ServerRecipe
	item, err := client.Recipe(ctx, lang, name)
	switch {
	case err == nil:
		server.Item = item
	case IsNotFound(err):
	default:
		l.logger.Warn("server_recipe_failed", slog.String("name", name), slog.Any("error", err))
	}
	return l.RecipePage(ctx, lang, name, server, query)
}
