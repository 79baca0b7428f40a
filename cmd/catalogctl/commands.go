package main

import (
	"strings"

	"github.com/samber/do/v2"

	"github.com/maktabaapp/maktaba-server/internal/di/providers"
	"github.com/maktabaapp/maktaba-server/internal/service"
)

// RenormalizeCmd recomputes normalized fields after the folding rules change.
type RenormalizeCmd struct{}

// Run executes the renormalize command.
func (c *RenormalizeCmd) Run(a *app) error {
	storeHandle, err := do.Invoke[*providers.StoreHandle](a.injector)
	if err != nil {
		return err
	}

	reports, err := storeHandle.Renormalize(a.ctx)
	if err != nil {
		return err
	}

	for _, r := range reports {
		if len(r.Collisions) > 0 {
			a.log.Warn("records left unchanged because their new key is taken",
				"kind", r.Kind,
				"ids", r.Collisions,
			)
		}
	}
	return a.out.print(reports)
}

// SyncSubjectsCmd rebuilds the category subject caches.
type SyncSubjectsCmd struct{}

// Run executes the sync-subjects command.
func (c *SyncSubjectsCmd) Run(a *app) error {
	storeHandle, err := do.Invoke[*providers.StoreHandle](a.injector)
	if err != nil {
		return err
	}

	report, err := storeHandle.RebuildCategorySubjects(a.ctx)
	if err != nil {
		return err
	}
	return a.out.print(report)
}

// HistoryCmd groups the bulk history subcommands.
type HistoryCmd struct {
	List HistoryListCmd `cmd:"" default:"withargs" help:"List bulk reclassifications, newest first"`
	Undo HistoryUndoCmd `cmd:"" help:"Undo a bulk reclassification"`
}

// HistoryListCmd lists history records.
type HistoryListCmd struct {
	User     string `short:"u" help:"Only this user's updates"`
	Page     int    `help:"1-indexed page number" default:"1"`
	PageSize int    `help:"Records per page (default: configured page size)"`
}

// Run executes the history list command.
func (c *HistoryListCmd) Run(a *app) error {
	bulk, err := do.Invoke[*service.BulkService](a.injector)
	if err != nil {
		return err
	}

	page, err := bulk.ListHistory(a.ctx, c.User, c.Page, c.PageSize)
	if err != nil {
		return err
	}
	return a.out.print(page)
}

// HistoryUndoCmd undoes one history record.
type HistoryUndoCmd struct {
	ID string `arg:"" help:"History record ID"`
}

// Run executes the history undo command.
func (c *HistoryUndoCmd) Run(a *app) error {
	bulk, err := do.Invoke[*service.BulkService](a.injector)
	if err != nil {
		return err
	}

	result, err := bulk.Undo(a.ctx, c.ID)
	if err != nil {
		return err
	}
	return a.out.print(result)
}

// SearchCmd runs a catalog search.
type SearchCmd struct {
	Field    string   `short:"f" help:"Field to search: all, advanced, or a field name"`
	Sort     string   `help:"Address sort direction" default:"asc" enum:"asc,desc"`
	Page     int      `help:"1-indexed page number" default:"1"`
	PageSize int      `help:"Books per page (default: configured page size)"`
	Term     []string `arg:"" optional:"" help:"Search term; words are joined with spaces"`
}

// Run executes the search command.
func (c *SearchCmd) Run(a *app) error {
	search, err := do.Invoke[*service.SearchService](a.injector)
	if err != nil {
		return err
	}

	result, err := search.Search(a.ctx, service.SearchParams{
		Field:    c.Field,
		Query:    strings.Join(c.Term, " "),
		Page:     c.Page,
		PageSize: c.PageSize,
		Sort:     service.SortDirection(c.Sort),
	})
	if err != nil {
		return err
	}
	return a.out.print(result)
}
