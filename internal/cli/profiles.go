package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/syntor/forge/pkg/models"
	"github.com/syntor/forge/pkg/profile"
)

var (
	profilesMode string
	profilesLang string
	profilesAll  bool
)

// profilesCmd lists the agent team for a mode
var profilesCmd = &cobra.Command{
	Use:   "profiles [role]",
	Short: "Show the agent team for a mode",
	Long: `List the agents that run for a mode, in pipeline order.

Pass a role to print its full system instruction.

Examples:
  forge profiles
  forge profiles --mode chatbot --lang python
  forge profiles SYNTHESIZER --mode website`,
	Aliases: []string{"agents", "team"},
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, lang, err := profileSelection()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			return showProfile(cmd.OutOrStdout(), models.Role(args[0]), mode, lang)
		}
		return listProfiles(cmd.OutOrStdout(), mode, lang, profilesAll)
	},
}

func init() {
	profilesCmd.Flags().StringVarP(&profilesMode, "mode", "m", "", "output mode (default: pipeline.mode)")
	profilesCmd.Flags().StringVarP(&profilesLang, "lang", "l", "", "bot language (default: pipeline.bot_language)")
	profilesCmd.Flags().BoolVar(&profilesAll, "all", false, "include roles that never run in the pipeline")
}

func profileSelection() (models.Mode, models.BotLanguage, error) {
	modeName, langName := forgeConfig.Pipeline.Mode, forgeConfig.Pipeline.BotLanguage
	if profilesMode != "" {
		modeName = profilesMode
	}
	if profilesLang != "" {
		langName = profilesLang
	}
	mode, err := models.ParseMode(modeName)
	if err != nil {
		return "", "", err
	}
	lang, err := models.ParseBotLanguage(langName)
	if err != nil {
		return "", "", err
	}
	return mode, lang, nil
}

func listProfiles(out io.Writer, mode models.Mode, lang models.BotLanguage, all bool) error {
	roles := profile.Sequence()
	if all {
		roles = profile.All()
	}

	info := mode.Info()
	fmt.Fprintf(out, "%s: %s\n\n", info.Label, info.Description)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tROLE\tNAME\tTITLE\tDESCRIPTION")
	fmt.Fprintln(w, "----\t----\t----\t-----\t-----------")

	step := 0
	for _, role := range roles {
		p := profile.Lookup(role, mode, lang)
		label := "-"
		if role != models.RoleCritic {
			step++
			label = fmt.Sprintf("%d", step)
		}
		desc := p.Description
		if len(desc) > 50 {
			desc = desc[:47] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", label, role, p.Name, p.Title, desc)
	}
	return w.Flush()
}

func showProfile(out io.Writer, role models.Role, mode models.Mode, lang models.BotLanguage) error {
	known := false
	for _, r := range profile.All() {
		if r == role {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown role %q", role)
	}

	p := profile.Lookup(role, mode, lang)
	fmt.Fprintln(out, p.Label())
	fmt.Fprintln(out, p.Description)
	fmt.Fprintln(out)
	fmt.Fprintln(out, p.Instruction)
	return nil
}
