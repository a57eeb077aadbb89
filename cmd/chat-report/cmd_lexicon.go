package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/theimaginaryfoundation/chatlens/analysis/affection"
)

func newLexiconCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexicon",
		Short: "Inspect the affection lexicon",
	}
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective lexicon as YAML",
		Args:  exactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			lex, err := a.lexicon()
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(lex)
			if err != nil {
				return fmt.Errorf("marshal lexicon: %w", err)
			}
			_, err = a.stdout.Write(b)
			return err
		},
	}
	check := &cobra.Command{
		Use:   "check <file.yaml>",
		Short: "Validate a lexicon file",
		Args:  exactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			lex, err := affection.LoadLexicon(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s: %d affection keywords, %d positive emojis, %d green keywords, %d red keywords\n",
				args[0], len(lex.AffectionKeywords), len(lex.PositiveEmojis), len(lex.GreenKeywords), len(lex.RedKeywords))
			return nil
		},
	}
	dump.Flags().String("lexicon", "", "lexicon YAML file (default: embedded Spanish lexicon)")
	cmd.AddCommand(dump, check)
	return cmd
}
