// foliate is a command-line companion for the foliate footnote engine:
// it audits serialized documents for footnote inconsistencies, repairs
// them, and demonstrates the atomic insertion commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ferrant/foliate"
)

var verbose bool

func main() {
	root := &cobra.Command{
		Use:           "foliate",
		Short:         "Audit and repair footnote structure in documents",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newCheckCmd())
	root.AddCommand(newFixCmd())
	root.AddCommand(newDemoCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func loadDocument(path string) (*foliate.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := foliate.ParseDocument(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Audit a document's footnote invariants and print a YAML report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}

			report := foliate.Audit(doc)
			out, err := yaml.Marshal(report)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))

			if !report.Clean() {
				return fmt.Errorf("%s: footnote invariants violated", args[0])
			}
			return nil
		},
	}
}

func newFixCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fix <file>",
		Short: "Run the consistency pass and write the repaired document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0])
			if err != nil {
				return err
			}

			sess := foliate.NewSession(doc, foliate.WithLogger(newLogger()))
			defer sess.Close()
			changed := sess.Repair()

			markup, err := doc.HTML()
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				fmt.Fprintln(cmd.OutOrStdout(), markup)
			} else if err := os.WriteFile(output, []byte(markup+"\n"), 0o644); err != nil {
				return err
			}

			if changed {
				fmt.Fprintln(cmd.ErrOrStderr(), "repaired footnote structure")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write repaired markup to file (default stdout)")
	return cmd
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Show the atomic insertion commands and single-step undo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := foliate.NewDocument(
				foliate.NewParagraph(foliate.NewText("The riverbed ran dry in 1934.")),
			)
			if err != nil {
				return err
			}

			sess := foliate.NewSession(doc, foliate.WithLogger(newLogger()))
			defer sess.Close()

			out := cmd.OutOrStdout()
			show := func(stage string) error {
				markup, err := doc.HTML()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "--- %s ---\n%s\n\n", stage, markup)
				return nil
			}

			if err := show("initial"); err != nil {
				return err
			}

			// Quoted excerpt with its footnote after the paragraph text.
			if err := sess.SetSelection(30, 30); err != nil {
				return err
			}
			if !sess.InsertQuoteWithFootnote(
				"We could see the storm coming from fifty miles off.",
				"Letters from the Plains, p. 113",
			) {
				return fmt.Errorf("insert quote with footnote failed")
			}
			if err := show("after InsertQuoteWithFootnote"); err != nil {
				return err
			}

			// A footnote earlier in the paragraph: the quote's footnote
			// renumbers from 1 to 2.
			if err := sess.SetSelection(10, 10); err != nil {
				return err
			}
			if !sess.InsertFootnote("Dust Bowl Archive, vol. 2") {
				return fmt.Errorf("insert footnote failed")
			}
			if err := show("after InsertFootnote (renumbered)"); err != nil {
				return err
			}

			// Each compound insertion is one undo step.
			sess.Undo()
			if err := show("after one undo"); err != nil {
				return err
			}
			sess.Undo()
			return show("after second undo")
		},
	}
}
