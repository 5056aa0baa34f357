package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/entitlement"
	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const patternColumns = `id, title, COALESCE(description, '') AS description, COALESCE(category, '') AS category,
        status, COALESCE(thumbnail, '') AS thumbnail, download_url,
        COALESCE(tags, '{}') AS tags, COALESCE(formats, '{}') AS formats, created_at`

const motionColumns = `id, title, COALESCE(description, '') AS description, COALESCE(category, '') AS category,
        COALESCE(duration, '') AS duration, COALESCE(resolution, '') AS resolution, COALESCE(fps, '') AS fps,
        COALESCE(format, '') AS format, COALESCE(thumbnail, '') AS thumbnail, COALESCE(preview_url, '') AS preview_url,
        download_url, is_looping, has_alpha, COALESCE(tags, '{}') AS tags, created_at`

// CatalogRepository reads and writes the patterns and motion_videos tables.
type CatalogRepository interface {
	ListPatterns(ctx context.Context, f model.CatalogFilter) ([]model.Pattern, error)
	// GetPattern looks the id up normalized. Returns nil when absent.
	GetPattern(ctx context.Context, id string) (*model.Pattern, error)
	CreatePattern(ctx context.Context, p *model.Pattern) error
	DeletePattern(ctx context.Context, id string) (*model.Pattern, error)
	ListMotionVideos(ctx context.Context, f model.CatalogFilter) ([]model.MotionVideo, error)
	GetMotionVideo(ctx context.Context, id string) (*model.MotionVideo, error)
	CreateMotionVideo(ctx context.Context, m *model.MotionVideo) error
	DeleteMotionVideo(ctx context.Context, id string) (*model.MotionVideo, error)
	// UpdateMetadata fills in description and tags of an asset.
	UpdateMetadata(ctx context.Context, assetType entitlement.AssetType, id string, md model.AssetMetadata) error
}

type catalogRepo struct {
	pool *pgxpool.Pool
}

// NewCatalogRepo creates a new CatalogRepository.
func NewCatalogRepo(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepo{pool: pool}
}

// filterClause builds the WHERE conditions shared by both listings. Arguments start at $1.
func filterClause(f model.CatalogFilter, base []string) (string, []any) {
	conds := append([]string(nil), base...)
	var args []any
	if c := strings.TrimSpace(f.Category); c != "" && !strings.EqualFold(c, "all") {
		args = append(args, c)
		conds = append(conds, fmt.Sprintf("lower(category) = lower($%d)", len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(title ILIKE $%d OR description ILIKE $%d OR array_to_string(tags, ' ') ILIKE $%d)", n, n, n))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, max(f.Offset, 0))
	where += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return where, args
}

func (r *catalogRepo) ListPatterns(ctx context.Context, f model.CatalogFilter) ([]model.Pattern, error) {
	clause, args := filterClause(f, []string{"status = '" + model.PatternStatusPublished + "'"})
	rows, err := r.pool.Query(ctx, `SELECT `+patternColumns+` FROM patterns`+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	patterns, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Pattern])
	if err != nil {
		return nil, fmt.Errorf("scan patterns: %w", err)
	}
	return patterns, nil
}

func (r *catalogRepo) GetPattern(ctx context.Context, id string) (*model.Pattern, error) {
	q := `SELECT ` + patternColumns + ` FROM patterns WHERE upper(trim(id)) = $1`
	rows, err := r.pool.Query(ctx, q, entitlement.NormalizeAssetID(id))
	if err != nil {
		return nil, fmt.Errorf("fetch pattern %s: %w", id, err)
	}
	p, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Pattern])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan pattern %s: %w", id, err)
	}
	return &p, nil
}

func (r *catalogRepo) CreatePattern(ctx context.Context, p *model.Pattern) error {
	const q = `
        INSERT INTO patterns (id, title, description, category, status, thumbnail, download_url, tags, formats, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
        RETURNING created_at
    `
	err := r.pool.QueryRow(ctx, q, p.ID, p.Title, p.Description, p.Category, p.Status, p.Thumbnail,
		p.DownloadURL, p.Tags, p.Formats).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pattern %s: %w", p.ID, err)
	}
	return nil
}

func (r *catalogRepo) DeletePattern(ctx context.Context, id string) (*model.Pattern, error) {
	q := `DELETE FROM patterns WHERE upper(trim(id)) = $1 RETURNING ` + patternColumns
	rows, err := r.pool.Query(ctx, q, entitlement.NormalizeAssetID(id))
	if err != nil {
		return nil, fmt.Errorf("delete pattern %s: %w", id, err)
	}
	p, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Pattern])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete pattern %s: %w", id, err)
	}
	return &p, nil
}

func (r *catalogRepo) ListMotionVideos(ctx context.Context, f model.CatalogFilter) ([]model.MotionVideo, error) {
	clause, args := filterClause(f, nil)
	rows, err := r.pool.Query(ctx, `SELECT `+motionColumns+` FROM motion_videos`+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("list motion videos: %w", err)
	}
	videos, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.MotionVideo])
	if err != nil {
		return nil, fmt.Errorf("scan motion videos: %w", err)
	}
	return videos, nil
}

func (r *catalogRepo) GetMotionVideo(ctx context.Context, id string) (*model.MotionVideo, error) {
	q := `SELECT ` + motionColumns + ` FROM motion_videos WHERE upper(trim(id)) = $1`
	rows, err := r.pool.Query(ctx, q, entitlement.NormalizeAssetID(id))
	if err != nil {
		return nil, fmt.Errorf("fetch motion video %s: %w", id, err)
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.MotionVideo])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan motion video %s: %w", id, err)
	}
	return &m, nil
}

func (r *catalogRepo) CreateMotionVideo(ctx context.Context, m *model.MotionVideo) error {
	const q = `
        INSERT INTO motion_videos (id, title, description, category, duration, resolution, fps, format,
                                   thumbnail, preview_url, download_url, is_looping, has_alpha, tags, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
        RETURNING created_at
    `
	err := r.pool.QueryRow(ctx, q, m.ID, m.Title, m.Description, m.Category, m.Duration, m.Resolution, m.FPS,
		m.Format, m.Thumbnail, m.PreviewURL, m.DownloadURL, m.IsLooping, m.HasAlpha, m.Tags).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert motion video %s: %w", m.ID, err)
	}
	return nil
}

func (r *catalogRepo) DeleteMotionVideo(ctx context.Context, id string) (*model.MotionVideo, error) {
	q := `DELETE FROM motion_videos WHERE upper(trim(id)) = $1 RETURNING ` + motionColumns
	rows, err := r.pool.Query(ctx, q, entitlement.NormalizeAssetID(id))
	if err != nil {
		return nil, fmt.Errorf("delete motion video %s: %w", id, err)
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.MotionVideo])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete motion video %s: %w", id, err)
	}
	return &m, nil
}

func (r *catalogRepo) UpdateMetadata(ctx context.Context, assetType entitlement.AssetType, id string, md model.AssetMetadata) error {
	table := "patterns"
	if assetType == entitlement.AssetMotion {
		table = "motion_videos"
	}
	// Only fill in what is still empty so an admin edit made meanwhile wins.
	q := `
        UPDATE ` + table + `
        SET description = CASE WHEN COALESCE(description, '') = '' THEN $2 ELSE description END,
            tags = CASE WHEN COALESCE(cardinality(tags), 0) = 0 THEN $3 ELSE tags END
        WHERE upper(trim(id)) = $1
    `
	tag, err := r.pool.Exec(ctx, q, entitlement.NormalizeAssetID(id), md.Description, md.Tags)
	if err != nil {
		return fmt.Errorf("update metadata of %s %s: %w", assetType, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
