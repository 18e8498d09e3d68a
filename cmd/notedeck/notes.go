package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amirk1998/notedeck/internal/models"
	"github.com/amirk1998/notedeck/internal/prefs"
	"github.com/amirk1998/notedeck/pkg/errors"
)

// requireAuth restores the stored session; note commands refuse to run
// anonymously.
func (a *app) requireAuth(ctx context.Context) error {
	if a.sessions.RestoreAuthState(ctx) == nil {
		return errors.ErrNotAuthenticated
	}
	return nil
}

func (a *app) loadNotes(ctx context.Context, archived bool) error {
	if err := a.requireAuth(ctx); err != nil {
		return err
	}
	a.notes.SetShowArchived(archived)
	_, err := a.notes.Fetch(ctx, archived)
	return err
}

func (a *app) notesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage notes",
	}
	cmd.AddCommand(
		a.notesListCmd(),
		a.notesCreateCmd(),
		a.notesEditCmd(),
		a.notesDeleteCmd(),
		a.notesArchiveCmd(),
		a.notesPinCmd(),
	)
	return cmd
}

func (a *app) notesListCmd() *cobra.Command {
	var search, category, priority, tag, sortBy string
	var archived bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes with filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadNotes(cmd.Context(), archived); err != nil {
				return err
			}

			filters := models.Filters{Search: search, Category: category, Priority: priority, Tag: tag}
			a.notes.SetFilters(filters)
			a.notes.SetSortBy(models.SortKey(sortBy))

			if search != "" {
				a.prefs.AddRecentSearch(search)
			}
			a.prefs.Save(prefs.Preferences{
				SortBy:       a.notes.SortBy(),
				ViewMode:     a.notes.ViewMode(),
				Filters:      filters,
				ShowArchived: archived,
			})

			for _, n := range a.selectors.Visible() {
				marker := " "
				if n.Pinned {
					marker = "*"
				}
				fmt.Printf("%s %-12s  %-8s  %-10s  %s\n", marker, n.ID, n.Priority, n.Category, n.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "free-text search over title, content, and tags")
	cmd.Flags().StringVar(&category, "category", models.FilterAll, "category filter")
	cmd.Flags().StringVar(&priority, "priority", models.FilterAll, "priority filter (high|medium|low)")
	cmd.Flags().StringVar(&tag, "tag", models.FilterAll, "tag filter")
	cmd.Flags().StringVar(&sortBy, "sort", string(models.SortByCreatedAt), "sort key (createdAt|title|priority|updatedAt|category)")
	cmd.Flags().BoolVar(&archived, "archived", false, "show archived notes")
	return cmd
}

func (a *app) notesCreateCmd() *cobra.Command {
	var req models.CreateNoteRequest
	var tags string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a note",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(cmd.Context()); err != nil {
				return err
			}
			if tags != "" {
				req.Tags = strings.Split(tags, ",")
			}
			note, err := a.notes.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.prefs.ClearDraft()
			fmt.Printf("Created note %s\n", note.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Title, "title", "", "note title")
	cmd.Flags().StringVar(&req.Content, "content", "", "note content")
	cmd.Flags().StringVar(&req.Category, "category", "", "category")
	cmd.Flags().StringVar((*string)(&req.Priority), "priority", "", "priority (high|medium|low)")
	cmd.Flags().StringVar(&req.Mood, "mood", "", "mood")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	cmd.Flags().StringVar(&req.Color, "color", "", "hex color")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("content")
	return cmd
}

func (a *app) notesEditCmd() *cobra.Command {
	var title, content, category, priority, mood, tags, color string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadNotes(cmd.Context(), false); err != nil {
				return err
			}

			var req models.UpdateNoteRequest
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("content") {
				req.Content = &content
			}
			if cmd.Flags().Changed("category") {
				req.Category = &category
			}
			if cmd.Flags().Changed("priority") {
				p := models.Priority(priority)
				req.Priority = &p
			}
			if cmd.Flags().Changed("mood") {
				req.Mood = &mood
			}
			if cmd.Flags().Changed("tags") {
				req.Tags = strings.Split(tags, ",")
			}
			if cmd.Flags().Changed("color") {
				req.Color = &color
			}

			note, err := a.notes.Update(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			fmt.Printf("Updated note %s\n", note.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "note title")
	cmd.Flags().StringVar(&content, "content", "", "note content")
	cmd.Flags().StringVar(&category, "category", "", "category")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (high|medium|low)")
	cmd.Flags().StringVar(&mood, "mood", "", "mood")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	cmd.Flags().StringVar(&color, "color", "", "hex color")
	return cmd
}

func (a *app) notesDeleteCmd() *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "delete <id> [id...]",
		Short: "Delete notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadNotes(cmd.Context(), false); err != nil {
				return err
			}

			if len(args) > 1 {
				return a.notes.BulkDelete(cmd.Context(), args)
			}

			if err := a.notes.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			if undo {
				// Exercise the undo affordance immediately: the note
				// comes back with a fresh identity.
				for _, n := range a.notifier.Pending() {
					if n.Action != nil && n.Action.Label == "Undo" {
						n.Action.Fn()
						break
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "immediately undo the delete (recreates the note)")
	return cmd
}

func (a *app) notesArchiveCmd() *cobra.Command {
	var unarchive bool

	cmd := &cobra.Command{
		Use:   "archive <id> [id...]",
		Short: "Archive or unarchive notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadNotes(cmd.Context(), unarchive); err != nil {
				return err
			}

			if len(args) > 1 {
				return a.notes.BulkArchive(cmd.Context(), args, !unarchive)
			}
			_, err := a.notes.Archive(cmd.Context(), args[0], !unarchive)
			return err
		},
	}

	cmd.Flags().BoolVar(&unarchive, "undo", false, "unarchive instead of archive")
	return cmd
}

func (a *app) notesPinCmd() *cobra.Command {
	var unpin bool

	cmd := &cobra.Command{
		Use:   "pin <id>",
		Short: "Pin or unpin a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadNotes(cmd.Context(), false); err != nil {
				return err
			}
			_, err := a.notes.Pin(cmd.Context(), args[0], !unpin)
			return err
		},
	}

	cmd.Flags().BoolVar(&unpin, "undo", false, "unpin instead of pin")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadNotes(cmd.Context(), false); err != nil {
				return err
			}

			stats := a.selectors.Stats()
			fmt.Printf("Total: %d  Active: %d  Archived: %d  Pinned: %d\n",
				stats.Total, stats.Active, stats.Archived, stats.Pinned)
			fmt.Printf("Created last 7 days: %d  Updated last 7 days: %d\n",
				stats.CreatedLast7Days, stats.UpdatedLast7Days)
			for category, count := range stats.ByCategory {
				fmt.Printf("  %s: %d\n", category, count)
			}
			return nil
		},
	}
}

func (a *app) tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List all tags in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadNotes(cmd.Context(), false); err != nil {
				return err
			}
			for _, tag := range a.selectors.Tags() {
				fmt.Println(tag)
			}
			return nil
		},
	}
}

func (a *app) backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Create an encrypted backup of local state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.backups == nil {
				return fmt.Errorf("backups require durable storage (set NOTEDECK_STORAGE_KEY)")
			}
			path, err := a.backups.CreateBackup()
			if err != nil {
				return err
			}
			if err := a.backups.CleanupOldBackups(); err != nil {
				return err
			}
			fmt.Printf("Backup written to %s\n", path)
			return nil
		},
	}
}
