package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/abhisek/docquiz/internal/ui/theme"
)

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"doc"},
	Short:   "Register, inspect and delete source documents",
}

var documentAddCmd = &cobra.Command{
	Use:   "add <file|->",
	Short: "Register an extracted plain-text document",
	Long:  "Register a document from a UTF-8 text file, or from stdin when the argument is '-'.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := principalFrom(cmd)
		if err != nil {
			return err
		}

		var data []byte
		name, _ := cmd.Flags().GetString("name")
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
			if name == "" {
				name = "stdin"
			}
		} else {
			data, err = os.ReadFile(args[0])
			if name == "" {
				name = filepath.Base(args[0])
			}
		}
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}
		if !utf8.Valid(data) {
			return fmt.Errorf("document %s is not UTF-8 text", name)
		}
		text := string(data)
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("document %s is empty", name)
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.store.Documents().AddDocument(cmd.Context(), principal, name, text)
		if err != nil {
			return fmt.Errorf("add document: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s as %s (%d characters)\n",
			doc.Name, theme.Label.Render(doc.ID), utf8.RuneCountInString(doc.Text))
		return nil
	},
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the principal's documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := principalFrom(cmd)
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.store.Documents().ListDocuments(cmd.Context(), principal)
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}

		w := cmd.OutOrStdout()
		if len(docs) == 0 {
			fmt.Fprintln(w, "No documents found.")
			return nil
		}

		fmt.Fprintf(w, "%-36s  %-19s  %8s  %s\n", "ID", "Added", "Chars", "Name")
		fmt.Fprintln(w, theme.Rule.Render(strings.Repeat("─", 90)))
		for _, d := range docs {
			fmt.Fprintf(w, "%-36s  %-19s  %8d  %s\n",
				d.ID,
				d.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				utf8.RuneCountInString(d.Text),
				d.Name,
			)
		}
		return nil
	},
}

// previewRunes is how much text `document show` prints without --full.
const previewRunes = 500

var documentShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a document and a preview of its text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := principalFrom(cmd)
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.store.Documents().GetDocument(cmd.Context(), principal, args[0])
		if err != nil {
			return err
		}

		full, _ := cmd.Flags().GetBool("full")
		text := doc.Text
		if r := []rune(text); !full && len(r) > previewRunes {
			text = string(r[:previewRunes]) + "..."
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, theme.Title.Render(doc.Name))
		fmt.Fprintf(w, "%s %s\n", theme.Label.Render("ID:   "), doc.ID)
		fmt.Fprintf(w, "%s %s\n", theme.Label.Render("Added:"), doc.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "%s %d\n", theme.Label.Render("Chars:"), utf8.RuneCountInString(doc.Text))
		fmt.Fprintln(w, theme.Rule.Render(strings.Repeat("─", 60)))
		fmt.Fprintln(w, text)
		return nil
	},
}

var documentDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a document",
	Long:    "Delete a document. Quizzes already generated from it are kept.",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		principal, err := principalFrom(cmd)
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.Documents().DeleteDocument(cmd.Context(), principal, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted document %s\n", args[0])
		return nil
	},
}

func init() {
	documentAddCmd.Flags().String("name", "", "Display name (defaults to the file name)")
	documentShowCmd.Flags().Bool("full", false, "Print the whole text instead of a preview")

	documentCmd.AddCommand(documentAddCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentShowCmd)
	documentCmd.AddCommand(documentDeleteCmd)
}
