package repository

import (
	"testing"

	"storefront/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestFilterClause(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		where, args := filterClause(model.CatalogFilter{Category: "All"}, nil)
		assert.Equal(t, " ORDER BY created_at DESC LIMIT $1 OFFSET $2", where)
		assert.Equal(t, []any{50, 0}, args)
	})

	t.Run("category and query", func(t *testing.T) {
		where, args := filterClause(model.CatalogFilter{Category: " Floral ", Query: "rose", Limit: 10, Offset: 20}, []string{"status = 'Published'"})
		assert.Equal(t,
			" WHERE status = 'Published' AND lower(category) = lower($1) AND "+
				"(title ILIKE $2 OR description ILIKE $2 OR array_to_string(tags, ' ') ILIKE $2)"+
				" ORDER BY created_at DESC LIMIT $3 OFFSET $4",
			where)
		assert.Equal(t, []any{"Floral", "%rose%", 10, 20}, args)
	})

	t.Run("negative offset", func(t *testing.T) {
		_, args := filterClause(model.CatalogFilter{Offset: -5}, nil)
		assert.Equal(t, []any{50, 0}, args)
	})
}

func TestAppendParam(t *testing.T) {
	assert.Equal(t, "postgres://u@h/db?sslmode=disable", appendParam("postgres://u@h/db", "sslmode=disable"))
	assert.Equal(t, "postgresql://u@h/db?x=1&sslmode=disable", appendParam("postgresql://u@h/db?x=1", "sslmode=disable"))
	assert.Equal(t, "host=h dbname=db sslmode=disable", appendParam("host=h dbname=db", "sslmode=disable"))
}
