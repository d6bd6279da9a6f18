package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ripostebot/riposte/internal/classification"
	"github.com/ripostebot/riposte/internal/common"
	"github.com/ripostebot/riposte/internal/model"
	"github.com/ripostebot/riposte/internal/registry"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "patterns",
		Aliases: []string{"pattern"},
		Short:   "Manage response patterns",
		Long: `Manage the pattern library that drives automatic replies. Each pattern pairs
a case-insensitive trigger regex with a response template, a confidence model,
and a send priority.`,
	}

	// Subcommands
	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsShowCmd())
	cmd.AddCommand(patternsCreateCmd())
	cmd.AddCommand(patternsEditCmd())
	cmd.AddCommand(patternsDeleteCmd())
	cmd.AddCommand(patternsEnableCmd())
	cmd.AddCommand(patternsDisableCmd())
	cmd.AddCommand(patternsTestCmd())
	cmd.AddCommand(patternsSeedCmd())
	cmd.AddCommand(patternsImportCmd())
	cmd.AddCommand(patternsExportCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List patterns",
		Long:  `List stored patterns with their triggers, confidence settings, and usage.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			includeDisabled, _ := cmd.Flags().GetBool("all")

			patterns, err := db.ListPatterns(ctx, includeDisabled)
			if err != nil {
				return fmt.Errorf("failed to list patterns: %w", err)
			}

			if len(patterns) == 0 {
				slog.Info("No patterns found", "hint", "run 'riposte patterns seed' to load the built-in set")
				return nil
			}

			// Display patterns in a table
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTYPE\tPRIORITY\tTRIGGER\tCONFIDENCE\tMIN\tUSES\tENABLED")
			_, _ = fmt.Fprintln(w, "──\t────\t────────\t───────\t──────────\t───\t────\t───────")

			for _, pattern := range patterns {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%d\t%t\n",
					pattern.ID,
					pattern.Type,
					pattern.Priority,
					truncateString(pattern.Trigger, 32),
					pattern.BaseConfidence,
					pattern.MinConfidence,
					pattern.UseCount,
					pattern.Enabled)
			}

			return w.Flush()
		},
	}

	cmd.Flags().BoolP("all", "a", false, "Include disabled patterns")
	return cmd
}

func patternsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show pattern details",
		Long:  `Display detailed information about a specific pattern.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			pattern, err := db.GetPattern(ctx, args[0])
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("pattern %q not found", args[0])
				}
				return fmt.Errorf("failed to get pattern: %w", err)
			}

			slog.Info("Pattern Details:")
			slog.Info("  ID", "id", pattern.ID)
			slog.Info("  Type", "type", pattern.Type)
			slog.Info("  Priority", "priority", pattern.Priority)
			slog.Info("  Trigger", "regex", pattern.Trigger)
			slog.Info("  Template", "template", pattern.Template)

			if len(pattern.Keywords) > 0 {
				slog.Info("  Keywords", "keywords", strings.Join(pattern.Keywords, ", "))
			} else {
				slog.Info("  Keywords", "keywords", "none")
			}

			slog.Info("  Base Confidence", "confidence", fmt.Sprintf("%.2f", pattern.BaseConfidence))
			slog.Info("  Min Confidence", "confidence", fmt.Sprintf("%.2f", pattern.MinConfidence))
			slog.Info("  Requires Context", "required", pattern.RequiresContext)
			slog.Info("  Enabled", "enabled", pattern.Enabled)
			slog.Info("  Use Count", "count", pattern.UseCount)
			slog.Info("  Created", "date", pattern.CreatedAt.Format("2006-01-02 15:04:05"))
			slog.Info("  Updated", "date", pattern.UpdatedAt.Format("2006-01-02 15:04:05"))

			return nil
		},
	}
}

func patternsCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pattern",
		Long:  `Create a new response pattern.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			id, _ := cmd.Flags().GetString("id")
			trigger, _ := cmd.Flags().GetString("trigger")
			template, _ := cmd.Flags().GetString("template")
			msgType, _ := cmd.Flags().GetString("type")
			priority, _ := cmd.Flags().GetString("priority")
			keywords, _ := cmd.Flags().GetStringSlice("keywords")
			baseConfidence, _ := cmd.Flags().GetFloat64("base-confidence")
			minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
			requiresContext, _ := cmd.Flags().GetBool("requires-context")

			pattern := &model.Pattern{
				ID:              id,
				Trigger:         trigger,
				Type:            model.MessageType(strings.ToUpper(msgType)),
				Template:        template,
				Priority:        model.Priority(strings.ToLower(priority)),
				Keywords:        keywords,
				BaseConfidence:  baseConfidence,
				MinConfidence:   minConfidence,
				RequiresContext: requiresContext,
				Enabled:         true,
			}

			if err := pattern.Validate(); err != nil {
				return fmt.Errorf("invalid pattern: %w", err)
			}

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			// Creation is not an update; reject existing IDs
			if _, err := db.GetPattern(ctx, pattern.ID); err == nil {
				return fmt.Errorf("pattern %q already exists, use 'riposte patterns edit'", pattern.ID)
			} else if !errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("failed to check pattern: %w", err)
			}

			if err := db.SavePattern(ctx, pattern); err != nil {
				return fmt.Errorf("failed to create pattern: %w", err)
			}

			slog.Info("✓ Pattern created successfully",
				"id", pattern.ID,
				"type", pattern.Type,
				"priority", pattern.Priority)

			return nil
		},
	}

	// Required flags
	cmd.Flags().String("id", "", "Unique pattern ID (required)")
	cmd.Flags().String("trigger", "", "Trigger regex, matched case-insensitively (required)")
	cmd.Flags().String("template", "", "Response template with {name}-style placeholders (required)")

	// Optional flags
	cmd.Flags().StringP("type", "t", string(model.TypeStatement), "Message type the pattern recognizes ("+messageTypeList()+")")
	cmd.Flags().StringP("priority", "p", string(model.PriorityMedium), "Send priority (immediate, high, medium, low)")
	cmd.Flags().StringSliceP("keywords", "k", nil, "Keywords that add confidence when present")
	cmd.Flags().Float64("base-confidence", 0.6, "Confidence when the trigger matches (0-1)")
	cmd.Flags().Float64("min-confidence", 0.55, "Minimum confidence to auto-respond (0-1)")
	cmd.Flags().Bool("requires-context", false, "Only match when prior conversation exists")

	for _, flag := range []string{"id", "trigger", "template"} {
		if err := cmd.MarkFlagRequired(flag); err != nil {
			slog.Error("failed to mark flag as required", "flag", flag, "error", err)
		}
	}

	return cmd
}

func patternsEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a pattern",
		Long:  `Edit an existing pattern. Only the fields set by flags change.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			pattern, err := db.GetPattern(ctx, args[0])
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("pattern %q not found", args[0])
				}
				return fmt.Errorf("failed to get pattern: %w", err)
			}

			// Update fields if flags provided
			changed := false

			if cmd.Flags().Changed("trigger") {
				pattern.Trigger, _ = cmd.Flags().GetString("trigger")
				changed = true
			}

			if cmd.Flags().Changed("template") {
				pattern.Template, _ = cmd.Flags().GetString("template")
				changed = true
			}

			if cmd.Flags().Changed("type") {
				msgType, _ := cmd.Flags().GetString("type")
				pattern.Type = model.MessageType(strings.ToUpper(msgType))
				changed = true
			}

			if cmd.Flags().Changed("priority") {
				priority, _ := cmd.Flags().GetString("priority")
				pattern.Priority = model.Priority(strings.ToLower(priority))
				changed = true
			}

			if cmd.Flags().Changed("keywords") {
				pattern.Keywords, _ = cmd.Flags().GetStringSlice("keywords")
				changed = true
			}

			if cmd.Flags().Changed("base-confidence") {
				pattern.BaseConfidence, _ = cmd.Flags().GetFloat64("base-confidence")
				changed = true
			}

			if cmd.Flags().Changed("min-confidence") {
				pattern.MinConfidence, _ = cmd.Flags().GetFloat64("min-confidence")
				changed = true
			}

			if cmd.Flags().Changed("requires-context") {
				pattern.RequiresContext, _ = cmd.Flags().GetBool("requires-context")
				changed = true
			}

			if !changed {
				slog.Info("No changes specified")
				return nil
			}

			if err := pattern.Validate(); err != nil {
				return fmt.Errorf("invalid pattern: %w", err)
			}

			if err := db.SavePattern(ctx, pattern); err != nil {
				return fmt.Errorf("failed to update pattern: %w", err)
			}

			slog.Info("✓ Pattern updated successfully", "id", pattern.ID)

			return nil
		},
	}

	cmd.Flags().String("trigger", "", "New trigger regex")
	cmd.Flags().String("template", "", "New response template")
	cmd.Flags().StringP("type", "t", "", "New message type ("+messageTypeList()+")")
	cmd.Flags().StringP("priority", "p", "", "New send priority")
	cmd.Flags().StringSliceP("keywords", "k", nil, "New keyword list (replaces the old one)")
	cmd.Flags().Float64("base-confidence", 0, "New base confidence (0-1)")
	cmd.Flags().Float64("min-confidence", 0, "New minimum confidence (0-1)")
	cmd.Flags().Bool("requires-context", false, "Only match when prior conversation exists")

	return cmd
}

func patternsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a pattern",
		Long:  `Delete a pattern. Outcome records referencing it are kept.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			pattern, err := db.GetPattern(ctx, args[0])
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return fmt.Errorf("pattern %q not found", args[0])
				}
				return fmt.Errorf("failed to get pattern: %w", err)
			}

			// Show pattern info
			_, _ = fmt.Fprintf(os.Stdout, "About to delete pattern:\n")
			_, _ = fmt.Fprintf(os.Stdout, "  ID: %s\n", pattern.ID)
			_, _ = fmt.Fprintf(os.Stdout, "  Type: %s\n", pattern.Type)
			_, _ = fmt.Fprintf(os.Stdout, "  Trigger: %s\n", pattern.Trigger)
			_, _ = fmt.Fprintf(os.Stdout, "  Use Count: %d\n\n", pattern.UseCount)

			// Get confirmation unless --force flag is set
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				slog.Info("Are you sure you want to delete this pattern? (y/N): ")
				var response string
				_, _ = fmt.Scanln(&response)
				if strings.ToLower(response) != "y" && strings.ToLower(response) != "yes" {
					slog.Info("Deletion canceled")
					return nil
				}
			}

			if err := db.DeletePattern(ctx, pattern.ID); err != nil {
				return fmt.Errorf("failed to delete pattern: %w", err)
			}

			slog.Info("Pattern deleted successfully", "id", pattern.ID)

			return nil
		},
	}

	cmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")
	return cmd
}

func patternsEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <id>",
		Short: "Enable a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPatternEnabled(cmd, args[0], true)
		},
	}
}

func patternsDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a pattern without deleting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPatternEnabled(cmd, args[0], false)
		},
	}
}

func setPatternEnabled(cmd *cobra.Command, id string, enabled bool) error {
	ctx := cmd.Context()

	db, cleanup, err := getDatabase()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := db.SetPatternEnabled(ctx, id, enabled); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("pattern %q not found", id)
		}
		return fmt.Errorf("failed to update pattern: %w", err)
	}

	if enabled {
		slog.Info("✓ Pattern enabled", "id", id)
	} else {
		slog.Info("✓ Pattern disabled", "id", id)
	}

	return nil
}

func patternsTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test patterns against a message",
		Long:  `Show which patterns match a message and which one the classifier would pick.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			text, _ := cmd.Flags().GetString("text")
			if text == "" {
				return fmt.Errorf("message text is required")
			}

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			reg, err := loadRegistry(ctx, db)
			if err != nil {
				return err
			}

			snapshot := reg.Snapshot()

			// Show every matching pattern, winner first
			var matches []registry.CompiledPattern
			for _, pattern := range snapshot.Patterns() {
				if pattern.Matches(text) {
					matches = append(matches, pattern)
				}
			}

			slog.Info("Testing message", "text", truncateString(text, 60), "candidates", len(matches))
			for _, match := range matches {
				slog.Info("  Match",
					"id", match.ID,
					"type", match.Type,
					"priority", match.Priority,
					"base_confidence", fmt.Sprintf("%.2f", match.BaseConfidence))
			}

			classifier, err := classification.NewClassifier(classification.Config{})
			if err != nil {
				return fmt.Errorf("failed to create classifier: %w", err)
			}

			result, err := classifier.Classify(ctx, text, snapshot)
			if err != nil {
				return fmt.Errorf("classification failed: %w", err)
			}

			if result.PatternID == "" {
				slog.Info("Classifier verdict: no pattern matched",
					"type", result.Type,
					"confidence", fmt.Sprintf("%.2f", result.Confidence))
				return nil
			}

			slog.Info("Classifier verdict",
				"pattern", result.PatternID,
				"type", result.Type,
				"confidence", fmt.Sprintf("%.2f", result.Confidence),
				"matched_keywords", strings.Join(result.MatchedKeywords, ", "),
				"urgency", result.HasUrgencyMarkers)

			return nil
		},
	}

	cmd.Flags().StringP("text", "m", "", "Message text to test (required)")

	if err := cmd.MarkFlagRequired("text"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	return cmd
}

func patternsSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Persist the built-in pattern set",
		Long:  `Store the built-in default patterns in the database so they can be edited.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			force, _ := cmd.Flags().GetBool("force")

			defaults := classification.DefaultPatterns()

			var saved, skipped int
			for i := range defaults {
				pattern := defaults[i]

				if !force {
					if _, err := db.GetPattern(ctx, pattern.ID); err == nil {
						skipped++
						continue
					} else if !errors.Is(err, common.ErrNotFound) {
						return fmt.Errorf("failed to check pattern: %w", err)
					}
				}

				if err := db.SavePattern(ctx, &pattern); err != nil {
					return fmt.Errorf("failed to save pattern %s: %w", pattern.ID, err)
				}
				saved++
			}

			slog.Info("✓ Built-in patterns seeded", "saved", saved, "skipped", skipped)
			if skipped > 0 && !force {
				slog.Info("Existing patterns were left untouched", "hint", "use --force to overwrite")
			}

			return nil
		},
	}

	cmd.Flags().BoolP("force", "f", false, "Overwrite patterns that already exist")
	return cmd
}

func patternsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import patterns from a JSON file",
		Long:  `Import patterns from a JSON array. Existing IDs are updated in place.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			var patterns []model.Pattern
			if err := json.Unmarshal(data, &patterns); err != nil {
				return fmt.Errorf("failed to parse patterns: %w", err)
			}

			if len(patterns) == 0 {
				slog.Info("No patterns to import")
				return nil
			}

			// Validate everything before writing anything
			for i := range patterns {
				if err := patterns[i].Validate(); err != nil {
					return fmt.Errorf("pattern %d (%s): %w", i, patterns[i].ID, err)
				}
			}

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			bar := progressbar.NewOptions(len(patterns),
				progressbar.OptionSetWriter(os.Stdout),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan][bold]Importing patterns...[reset]"),
				progressbar.OptionOnCompletion(func() {
					_, _ = fmt.Fprintln(os.Stdout)
				}),
			)

			for i := range patterns {
				if err := db.SavePattern(ctx, &patterns[i]); err != nil {
					return fmt.Errorf("failed to save pattern %s: %w", patterns[i].ID, err)
				}
				_ = bar.Add(1)
			}

			slog.Info("✓ Patterns imported successfully", "count", len(patterns), "file", args[0])

			return nil
		},
	}
}

func patternsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export patterns as JSON",
		Long:  `Export all patterns, including disabled ones, as a JSON array.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, cleanup, err := getDatabase()
			if err != nil {
				return err
			}
			defer cleanup()

			patterns, err := db.ListPatterns(ctx, true)
			if err != nil {
				return fmt.Errorf("failed to list patterns: %w", err)
			}

			data, err := json.MarshalIndent(patterns, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal patterns: %w", err)
			}

			if len(args) == 0 {
				_, _ = fmt.Fprintln(os.Stdout, string(data))
				return nil
			}

			if err := os.WriteFile(args[0], data, 0o600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}

			slog.Info("✓ Patterns exported successfully", "count", len(patterns), "file", args[0])

			return nil
		},
	}
}

// messageTypeList renders the valid --type values for flag help.
func messageTypeList() string {
	types := model.AllMessageTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
