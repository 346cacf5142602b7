package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nainya/annstore/internal/config"
	"github.com/nainya/annstore/internal/logger"
	"github.com/nainya/annstore/pkg/document"
	"github.com/nainya/annstore/pkg/storage"
)

// errProblems makes check exit non-zero without repeating its report
var errProblems = errors.New("problems found")

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <document>...",
		Short: "Report degraded lines and consistency problems",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			problems := 0
			for _, path := range args {
				n, err := checkDocument(cmd.OutOrStdout(), cfg, path)
				if err != nil {
					return err
				}
				problems += n
			}
			if problems > 0 {
				return fmt.Errorf("%w: %d", errProblems, problems)
			}
			return nil
		},
	}
}

func checkDocument(w io.Writer, cfg *config.Config, path string) (int, error) {
	doc, err := readDocument(cfg, path)
	if err != nil {
		return 0, err
	}

	fmt.Fprintf(w, "%s: %d annotations\n", doc.Name(), doc.Len())
	if !doc.HasText() {
		fmt.Fprintf(w, "  warning: no document text\n")
	}
	for _, warn := range doc.Warnings() {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}

	problems := 0
	for _, lse := range doc.SyntaxErrors() {
		fmt.Fprintf(w, "  degraded: %v\n", lse)
		problems++
	}
	for _, err := range doc.SanityCheck() {
		fmt.Fprintf(w, "  inconsistent: %v\n", err)
		problems++
	}
	if problems == 0 {
		fmt.Fprintf(w, "  ok\n")
	}
	return problems, nil
}

func newCatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <document>",
		Short: "Print a document's annotations as they would be written back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			doc, err := readDocument(cfg, args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), doc.String())
			return err
		},
	}
}

// readDocument opens an existing document and ends the session without
// writing. Missing files are an error rather than created.
func readDocument(cfg *config.Config, path string) (*document.Document, error) {
	annPath, err := storage.Resolve(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(annPath); err != nil {
		return nil, err
	}

	store, err := newStore(cfg, logger.Nop(), nil, nil)
	if err != nil {
		return nil, err
	}
	sess, err := store.Open(annPath)
	if err != nil {
		return nil, err
	}
	defer sess.Discard()
	return sess.Document(), nil
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var show uint64
	cmd := &cobra.Command{
		Use:   "history <document>",
		Short: "List the recorded earlier versions of a document",
		Long: `history lists the versions the revision journal recorded before each
write. With --show, the content of one revision is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			j, err := openJournal(cfg)
			if err != nil {
				return err
			}
			if j == nil {
				return errors.New("the revision journal is disabled (storage.journal_path is empty)")
			}
			defer j.Close()

			out := cmd.OutOrStdout()
			if cmd.Flags().Changed("show") {
				rev, err := j.Revision(show)
				if err != nil {
					return err
				}
				_, err = out.Write(rev.Content)
				return err
			}

			annPath, err := storage.Resolve(args[0])
			if err != nil {
				return err
			}
			revs, err := j.History(annPath)
			if err != nil {
				return err
			}
			if len(revs) == 0 {
				fmt.Fprintf(out, "no revisions recorded for %s\n", annPath)
				return nil
			}
			for _, rev := range revs {
				fmt.Fprintf(out, "%d\t%s\t%d bytes\n", rev.LSN, rev.Timestamp.Format(time.RFC3339), len(rev.Content))
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&show, "show", 0, "print the content of revision LSN")
	return cmd
}
